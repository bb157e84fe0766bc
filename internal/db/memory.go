package db

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-memory Store used by tests and local development.
// Documents are round-tripped through bson so tags and type conversions
// behave the same as with MongoDB.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]bson.M
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]bson.M)}
}

// Create inserts a document, minting a hex id when none is set.
func (s *MemoryStore) Create(ctx context.Context, collection string, doc interface{}) (string, error) {
	m, err := toDocument(doc)
	if err != nil {
		return "", err
	}
	id, _ := m["_id"].(string)
	if id == "" {
		id = primitive.NewObjectID().Hex()
		m["_id"] = id
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]bson.M)
	}
	s.collections[collection][id] = m
	return id, nil
}

// Get decodes one document by id.
func (s *MemoryStore) Get(ctx context.Context, collection, id string, out interface{}) error {
	s.mu.RLock()
	doc, ok := s.collections[collection][id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return decodeDocument(doc, out)
}

// Update merges a patch into one document.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	normalized, err := toDocument(patch)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range normalized {
		doc[k] = v
	}
	return nil
}

// Query decodes all documents matching every filter into out.
func (s *MemoryStore) Query(ctx context.Context, collection string, filters []Filter, out interface{}) error {
	s.mu.RLock()
	var matched []bson.M
	for _, doc := range s.collections[collection] {
		ok := true
		for _, f := range filters {
			if !matches(doc, f) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, doc)
		}
	}
	s.mu.RUnlock()
	return decodeAll(matched, out)
}

func matches(doc bson.M, f Filter) bool {
	got, ok := doc[f.Field]
	if !ok {
		return false
	}
	cmp, comparable := compareValues(got, f.Value)
	if !comparable {
		return false
	}
	switch f.Op {
	case "", "==":
		return cmp == 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	default:
		return false
	}
}

// compareValues compares a stored bson value against a filter value,
// normalizing across the types bson round-tripping produces.
func compareValues(a, b interface{}) (int, bool) {
	if at, ok := asTime(a); ok {
		bt, ok := asTime(b)
		if !ok {
			return 0, false
		}
		// primitive.DateTime is millis since epoch, so ordering is integer
		// ordering.
		switch {
		case at < bt:
			return -1, true
		case at > bt:
			return 1, true
		default:
			return 0, true
		}
	}
	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if ab, ok := a.(bool); ok {
		bb, ok := asBool(b)
		if !ok {
			return 0, false
		}
		if ab == bb {
			return 0, true
		}
		return 1, true
	}
	if as, ok := asString(a); ok {
		bs, ok := asString(b)
		if !ok {
			return 0, false
		}
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

func asTime(v interface{}) (tv primitive.DateTime, ok bool) {
	switch t := v.(type) {
	case primitive.DateTime:
		return t, true
	default:
		if tt, ok := v.(interface{ UnixMilli() int64 }); ok {
			return primitive.DateTime(tt.UnixMilli()), true
		}
	}
	return 0, false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asBool(v interface{}) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asString(v interface{}) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func decodeDocument(doc bson.M, out interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return bson.Unmarshal(raw, out)
}

func decodeAll(docs []bson.M, out interface{}) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("query output must be a pointer to a slice, got %T", out)
	}
	slice := reflect.MakeSlice(rv.Elem().Type(), 0, len(docs))
	elemType := rv.Elem().Type().Elem()
	for _, doc := range docs {
		elem := reflect.New(elemType)
		if err := decodeDocument(doc, elem.Interface()); err != nil {
			return err
		}
		slice = reflect.Append(slice, elem.Elem())
	}
	rv.Elem().Set(slice)
	return nil
}
