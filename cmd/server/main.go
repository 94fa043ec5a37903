package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/syllabus/internal/app"
	"github.com/shrimpsizemoose/syllabus/internal/handlers"
	"github.com/shrimpsizemoose/syllabus/migrations"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	if err := service.Store.ApplyMigrations(migrations.FS); err != nil {
		logger.Error.Fatalf("Failed to apply migrations: %v", err)
	}

	h, err := handlers.New(service)
	if err != nil {
		logger.Error.Fatalf("Failed to set up handlers: %v", err)
	}

	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              service.Config.Server.Port,
		Handler:           handlers.Instrument(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info.Printf("Starting syllabus server on %s", service.Config.Server.Port)
	logger.Debug.Printf("Review retention: %s, throttle enabled: %v", service.Config.Reviews.Retention, service.Config.Throttle.Enabled)
	if err := server.ListenAndServe(); err != nil {
		logger.Error.Fatalf("Syllabus server failed: %v", err)
	}
}
