package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gigledger/gigledger/internal/api"
	"github.com/gigledger/gigledger/internal/eventlog"
	"github.com/gigledger/gigledger/internal/service"
	"github.com/gigledger/gigledger/internal/storage/sqlite"
	"github.com/gigledger/gigledger/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/deals.db")
	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		slog.Error("Invalid PORT", "error", err)
		os.Exit(1)
	}
	eventBuffer, err := strconv.Atoi(getEnv("EVENT_BUFFER", "100"))
	if err != nil {
		slog.Error("Invalid EVENT_BUFFER", "error", err)
		os.Exit(1)
	}

	// Initialize SQLite storage
	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	// Lifecycle events drain to the same database off the request path
	worker := eventlog.NewWorker(store, eventBuffer)
	worker.Start()
	defer worker.Shutdown()

	deals := service.NewDealService(store, worker, store)

	router := api.NewServer(deals).Routes()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf(":%d", port)
	slog.Info("Deal settlement server starting", "address", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
