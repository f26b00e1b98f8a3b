package service

import (
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrCameraNotFound = errors.New("camera not found")
	ErrDecode         = errors.New("failed to decode image")
	ErrInference      = errors.New("failed to run detection")
	ErrEncode         = errors.New("failed to encode image")
)

// FetchError reports that the upstream frame could not be retrieved.
type FetchError struct {
	CameraID string
	Err      error
}

func (e *FetchError) Error() string {
	return "could not fetch image for " + e.CameraID + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StatusCode maps a pipeline error to the HTTP status returned to the client.
func StatusCode(err error) int {
	var fetchErr *FetchError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrCameraNotFound):
		return http.StatusNotFound
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing text for a pipeline error.
func Message(err error) string {
	var fetchErr *FetchError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCameraNotFound):
		return "Camera not found"
	case errors.As(err, &fetchErr):
		return "Could not fetch image: " + fetchErr.Err.Error()
	case errors.Is(err, ErrDecode):
		return "Failed to decode image"
	case errors.Is(err, ErrInference):
		return "Failed to run detection"
	case errors.Is(err, ErrEncode):
		return "Failed to encode image"
	default:
		return http.StatusText(http.StatusInternalServerError)
	}
}
