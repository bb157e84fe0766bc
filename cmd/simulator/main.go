// Usage simulator: seeds a demo equipment fleet and streams usage readings
// into the API so threshold schedules have something to chew on.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/facilix/building-maintenance/internal/db"
	"github.com/facilix/building-maintenance/internal/models"
)

type equipmentSpec struct {
	Name      string
	Type      string
	Location  string
	UsageType string
	Unit      string
	// readings are drawn uniformly from [Min, Max) per tick
	Min, Max float64
}

var fleet = []equipmentSpec{
	{Name: "AHU-01", Type: "hvac", Location: "Roof", UsageType: "runtime_hours", Unit: "hours", Min: 0.5, Max: 2.0},
	{Name: "AHU-02", Type: "hvac", Location: "Roof", UsageType: "runtime_hours", Unit: "hours", Min: 0.5, Max: 2.0},
	{Name: "Chiller 1", Type: "hvac", Location: "Basement", UsageType: "runtime_hours", Unit: "hours", Min: 1.0, Max: 4.0},
	{Name: "Elevator A", Type: "elevator", Location: "Lobby", UsageType: "trip_count", Unit: "cycles", Min: 20, Max: 120},
	{Name: "Elevator B", Type: "elevator", Location: "Lobby", UsageType: "trip_count", Unit: "cycles", Min: 20, Max: 120},
	{Name: "Booster Pump", Type: "plumbing", Location: "Basement", UsageType: "runtime_hours", Unit: "hours", Min: 0.2, Max: 1.5},
}

var authToken string

func authorizedPost(url string, body *bytes.Buffer) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

// seedEquipment writes the demo fleet straight into Mongo; there is no
// public equipment CRUD surface to go through.
func seedEquipment(ctx context.Context, store db.Store, buildingID string) ([]string, error) {
	ids := make([]string, 0, len(fleet))
	now := time.Now().UTC()
	for i, spec := range fleet {
		eq := models.Equipment{
			ID:            fmt.Sprintf("sim-eq-%d", i+1),
			Name:          spec.Name,
			EquipmentType: spec.Type,
			Location:      spec.Location,
			BuildingID:    buildingID,
			Status:        "operational",
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		var existing models.Equipment
		if err := store.Get(ctx, db.CollEquipment, eq.ID, &existing); err == nil {
			ids = append(ids, eq.ID)
			continue
		}
		id, err := store.Create(ctx, db.CollEquipment, eq)
		if err != nil {
			return nil, fmt.Errorf("seed equipment %s: %w", spec.Name, err)
		}
		log.WithFields(log.Fields{"equipment_id": id, "name": spec.Name}).Info("Seeded equipment")
		ids = append(ids, id)
	}
	return ids, nil
}

func sendUsage(apiURL string, entry models.UsageLog) {
	data, err := json.Marshal(entry)
	if err != nil {
		log.WithError(err).Error("Failed to marshal usage log")
		return
	}
	resp, err := authorizedPost(apiURL+"/usage", bytes.NewBuffer(data))
	if err != nil {
		log.WithError(err).Error("Failed to send usage log")
		return
	}
	defer resp.Body.Close()
	log.WithFields(log.Fields{
		"equipment_id": entry.EquipmentID,
		"value":        entry.UsageValue,
		"unit":         entry.UsageUnit,
		"status":       resp.Status,
	}).Info("Sent usage log")
}

func simulateEquipment(apiURL, equipmentID string, spec equipmentSpec, buildingID string, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		value := spec.Min + rand.Float64()*(spec.Max-spec.Min)
		sendUsage(apiURL, models.UsageLog{
			EquipmentID:     equipmentID,
			BuildingID:      buildingID,
			UsageType:       spec.UsageType,
			UsageValue:      float64(int(value*10)) / 10,
			UsageUnit:       spec.Unit,
			RecordingMethod: "sensor",
			RecordedBy:      "simulator",
		})
	}
}

func main() {
	authToken = os.Getenv("SIM_AUTH_TOKEN")

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	buildingID := os.Getenv("SIM_BUILDING_ID")
	if buildingID == "" {
		buildingID = "demo-building"
	}

	interval := 30 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	dbName := os.Getenv("MONGO_DATABASE")
	if dbName == "" {
		dbName = "building_maintenance"
	}
	store := db.NewMongoStore(client, dbName)

	ids, err := seedEquipment(context.Background(), store, buildingID)
	if err != nil {
		log.WithError(err).Fatal("Failed to seed equipment")
	}

	log.WithFields(log.Fields{
		"equipment": len(ids),
		"api_url":   apiURL,
		"interval":  interval,
	}).Info("Starting usage simulation")

	for i, id := range ids {
		go simulateEquipment(apiURL, id, fleet[i], buildingID, interval)
	}

	select {} // Block forever
}
