package route

import (
	"net/http"

	"framerelay/internal/config"
	"framerelay/internal/handler"
	"framerelay/internal/logger"
	"framerelay/internal/middleware"
	"framerelay/internal/service"
)

// SetupRoutes registers the frame relay, camera listing, health and log
// endpoints and wraps the mux with request logging and CORS.
func SetupRoutes(relay *service.Relay, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Frame relay (GET patterns also match HEAD)
	mux.HandleFunc("GET /update_stream/{camera_id}", handler.StreamHandler(relay, logger))

	// API endpoints
	mux.HandleFunc("GET /api/cameras", handler.GetCamerasHandler(relay, logger))
	mux.HandleFunc("GET /healthz", handler.HealthHandler)

	// Log endpoints
	mux.HandleFunc("GET /logs/info", handler.ShowInfoLogsHandler(logger.Dir()))
	mux.HandleFunc("GET /logs/warning", handler.ShowWarningLogsHandler(logger.Dir()))
	mux.HandleFunc("GET /logs/error", handler.ShowErrorLogsHandler(logger.Dir()))

	// Apply middleware
	cors := middleware.CORS{AllowOrigin: cfg.AllowOrigin}
	return cors.Wrap(middleware.RequestLog(logger, mux))
}
