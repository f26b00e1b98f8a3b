package dto

import (
	"encoding/json"
	"time"
)

// CameraInfo describes a registered camera and its upstream fetch statistics.
type CameraInfo struct {
	ID            string    `json:"id"`
	FetchOK       uint64    `json:"fetchOk"`
	FetchErrors   uint64    `json:"fetchErrors"`
	LatencyMs     float64   `json:"latencyMs"` // EWMA of fetch round trips
	LastFetchedAt time.Time `json:"lastFetchedAt"`
}

// MarshalJSON formats the last fetch time and leaves it empty when no fetch happened yet.
func (c CameraInfo) MarshalJSON() ([]byte, error) {
	type Alias CameraInfo
	lastFetched := ""
	if !c.LastFetchedAt.IsZero() {
		lastFetched = c.LastFetchedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(&struct {
		LastFetchedAt string `json:"lastFetchedAt"`
		Alias
	}{
		LastFetchedAt: lastFetched,
		Alias:         (Alias)(c),
	})
}

// CamerasData is the response payload for the camera listing.
type CamerasData struct {
	Cameras []CameraInfo `json:"cameras"`
	Length  int          `json:"length"`
}
