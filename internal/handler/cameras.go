package handler

import (
	"encoding/json"
	"net/http"

	"framerelay/internal/logger"
	"framerelay/internal/service"
)

// GetCamerasHandler returns the registered camera ids with their fetch statistics.
func GetCamerasHandler(relay *service.Relay, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := relay.Cameras()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// HealthHandler reports that the process is up.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
