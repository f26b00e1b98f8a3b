package handler

import (
	"net/http"
	"strconv"

	"framerelay/internal/logger"
	"framerelay/internal/service"
)

// StreamHandler serves /update_stream/{camera_id}. HEAD only checks the camera
// is registered; GET returns the current frame annotated with detections.
func StreamHandler(relay *service.Relay, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cameraID := r.PathValue("camera_id")

		switch r.Method {
		case http.MethodHead:
			if err := relay.Probe(cameraID); err != nil {
				writeError(w, logger, cameraID, err)
				return
			}
			w.WriteHeader(http.StatusOK)

		case http.MethodGet:
			result, err := relay.Frame(r.Context(), cameraID)
			if err != nil {
				writeError(w, logger, cameraID, err)
				return
			}

			w.Header().Set("Content-Type", "image/jpeg")
			w.Header().Set("Content-Length", strconv.Itoa(len(result.Image)))
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("X-Detection-Count", strconv.Itoa(len(result.Detections)))
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write(result.Image); err != nil {
				logger.Warning("Failed to write frame for camera %s: %v", cameraID, err)
			}

		default:
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	}
}

// writeError logs a pipeline failure and translates it to an HTTP response.
func writeError(w http.ResponseWriter, logger *logger.Logger, cameraID string, err error) {
	status := service.StatusCode(err)
	switch {
	case status == http.StatusNotFound:
		logger.Debug("Unknown camera requested: %s", cameraID)
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway:
		logger.Error("Frame relay for camera %s failed: %v", cameraID, err)
	default:
		logger.Warning("Frame relay for camera %s failed: %v", cameraID, err)
	}
	http.Error(w, service.Message(err), status)
}
