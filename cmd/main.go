package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/facilix/building-maintenance/internal/auth"
	"github.com/facilix/building-maintenance/internal/db"
	"github.com/facilix/building-maintenance/internal/handlers"
	"github.com/facilix/building-maintenance/internal/jobs"
	"github.com/facilix/building-maintenance/internal/middleware"
	"github.com/facilix/building-maintenance/internal/models"
	"github.com/facilix/building-maintenance/internal/notify"
	"github.com/facilix/building-maintenance/internal/scheduler"
)

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.WithField("key", key).Warn("invalid duration, using default")
	}
	return fallback
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})
	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	client, err := db.ConnectMongo()
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}()
	logger.Info("connected to MongoDB")

	dbName := os.Getenv("MONGO_DATABASE")
	if dbName == "" {
		dbName = "building_maintenance"
	}
	store := db.NewMongoStore(client, dbName)

	broker, err := notify.ConnectBroker()
	if err != nil {
		logger.WithError(err).Warn("MQTT broker unavailable, notifications are database-only")
	}
	var dispatcher *notify.Dispatcher
	if broker != nil {
		dispatcher = notify.NewDispatcher(store, broker, logger)
		defer broker.Disconnect(250)
	} else {
		dispatcher = notify.NewDispatcher(store, nil, logger)
	}

	engine := scheduler.NewEngine(store, nil, logger, dispatcher)

	authService, err := auth.NewService()
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize auth service")
	}
	authMW := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimitMiddleware()

	authHandler := handlers.NewAuthHandler(authService, store)
	maintHandler := handlers.NewMaintenanceHandler(engine, dispatcher, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/register", authHandler.Register)
	mux.HandleFunc("/api/auth/profile", authHandler.GetProfile)
	mux.HandleFunc("/api/auth/password", authHandler.ChangePassword)

	schedulePerms := authMW.RequireMethodPermission(map[string]string{
		http.MethodGet:    "view_schedules",
		http.MethodPost:   "manage_schedules",
		http.MethodPut:    "manage_schedules",
		http.MethodDelete: "manage_schedules",
	})
	taskPerms := authMW.RequireMethodPermission(map[string]string{
		http.MethodGet:  "view_tasks",
		http.MethodPost: "create_task",
	})
	taskStatusPerms := authMW.RequireMethodPermission(map[string]string{
		http.MethodGet:  "view_tasks",
		http.MethodPost: "update_task_status",
	})
	mux.Handle("/api/schedules", schedulePerms(http.HandlerFunc(maintHandler.Schedules)))
	mux.Handle("/api/schedules/", schedulePerms(http.HandlerFunc(maintHandler.ScheduleByID)))
	mux.Handle("/api/tasks", taskPerms(http.HandlerFunc(maintHandler.Tasks)))
	mux.Handle("/api/tasks/", taskStatusPerms(http.HandlerFunc(maintHandler.TaskByID)))
	mux.Handle("/api/usage", authMW.RequirePermission("log_usage")(http.HandlerFunc(maintHandler.UsageLogs)))
	mux.Handle("/api/events", authMW.RequirePermission("view_tasks")(http.HandlerFunc(maintHandler.Events)))

	adminOnly := authMW.RequireRole(models.RoleManager)
	mux.Handle("/api/admin/generate", adminOnly(http.HandlerFunc(maintHandler.GenerateTasks)))
	mux.Handle("/api/admin/evaluate", adminOnly(http.HandlerFunc(maintHandler.EvaluateUsage)))
	mux.Handle("/api/admin/sweep", adminOnly(http.HandlerFunc(maintHandler.SweepOverdue)))

	handler := rateLimiter.RateLimit(300, 60)(authMW.Authenticate(mux))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := jobs.NewRunner(engine, jobs.Config{
		GenerateInterval: envDuration("GENERATE_INTERVAL", 6*time.Hour),
		EvaluateInterval: envDuration("EVALUATE_INTERVAL", 15*time.Minute),
		SweepInterval:    envDuration("SWEEP_INTERVAL", time.Hour),
	}, logger)
	runner.Start(ctx)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{Addr: ":" + port, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.WithField("port", port).Info("HTTP server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("HTTP server failed")
	}
	runner.Wait()
	logger.Info("shutdown complete")
}
