package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/clienthunter/leadwatch/internal/api"
	"github.com/clienthunter/leadwatch/internal/leads"
	"github.com/clienthunter/leadwatch/internal/models"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type digestRunner interface {
	RunDigest(ctx context.Context) (*models.Report, error)
	GetMetrics() string
}

type dashboardSource interface {
	Dashboard(ctx context.Context, templates leads.TemplateLister) (models.DashboardStats, error)
}

func newRouter(runner digestRunner, dashboard dashboardSource, templates leads.TemplateLister) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Prometheus exposition and the JSON run summary
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/runs", runsHandler(runner)).Methods("GET")

	router.HandleFunc("/stats", statsHandler(dashboard, templates)).Methods("GET")

	// Manual trigger endpoint
	router.HandleFunc("/trigger", triggerHandler(runner)).Methods("POST")

	return router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("Failed to write response: %v", err)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func runsHandler(runner digestRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(runner.GetMetrics()))
	}
}

func statsHandler(dashboard dashboardSource, templates leads.TemplateLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := dashboard.Dashboard(r.Context(), templates)
		if err != nil {
			logrus.Errorf("Failed to compute dashboard stats: %v", err)
			status := http.StatusBadGateway
			if errors.Is(err, api.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeJSON(w, status, map[string]string{"error": api.UserMessage(err)})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func triggerHandler(runner digestRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			// The request context ends with the response
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if _, err := runner.RunDigest(ctx); err != nil {
				logrus.Errorf("Manual digest trigger failed: %v", err)
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{"message": "Digest triggered successfully"})
	}
}
