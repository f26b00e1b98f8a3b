package service

import (
	"context"
	"time"

	"framerelay/internal/camera"
	"framerelay/internal/dto"
	"framerelay/internal/logger"
	"framerelay/internal/metrics"
	"framerelay/internal/service/render"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Detector runs object detection over a decoded BGR frame.
type Detector interface {
	Detect(ctx context.Context, frame gocv.Mat) ([]dto.DetectionResult, error)
}

// FrameFetcher retrieves the raw bytes of a camera's latest still frame.
type FrameFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Relay turns a camera id into an annotated JPEG: fetch, decode, detect,
// annotate, encode. It holds no per-request state.
type Relay struct {
	registry    *camera.Registry
	fetcher     FrameFetcher
	detector    Detector
	latency     *metrics.LatencyTracker
	jpegQuality int
	logger      *logger.Logger
}

func NewRelay(registry *camera.Registry, fetcher FrameFetcher, detector Detector,
	latency *metrics.LatencyTracker, jpegQuality int, logger *logger.Logger) *Relay {
	if latency == nil {
		latency = metrics.NewLatencyTracker(0)
	}
	return &Relay{
		registry:    registry,
		fetcher:     fetcher,
		detector:    detector,
		latency:     latency,
		jpegQuality: jpegQuality,
		logger:      logger,
	}
}

// Probe reports whether the camera exists without touching the upstream source.
func (r *Relay) Probe(cameraID string) error {
	if !r.registry.Contains(cameraID) {
		return ErrCameraNotFound
	}
	return nil
}

// Frame fetches the camera's current frame and returns it annotated with detections.
func (r *Relay) Frame(ctx context.Context, cameraID string) (*dto.FrameResult, error) {
	url, ok := r.registry.Lookup(cameraID)
	if !ok {
		return nil, ErrCameraNotFound
	}

	data, err := r.fetch(ctx, cameraID, url)
	if err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, errors.Wrap(ErrDecode, err.Error())
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, ErrDecode
	}

	detections, err := r.detector.Detect(ctx, mat)
	if err != nil {
		return nil, errors.Wrap(ErrInference, err.Error())
	}

	if err := render.Annotate(&mat, detections); err != nil {
		return nil, errors.Wrap(ErrEncode, err.Error())
	}

	encoded, err := render.EncodeJPEG(mat, r.jpegQuality)
	if err != nil {
		return nil, errors.Wrap(ErrEncode, err.Error())
	}

	r.logger.Debug("Camera %s: %d detection(s), %d bytes", cameraID, len(detections), len(encoded))

	return &dto.FrameResult{
		CameraID:   cameraID,
		Detections: detections,
		Image:      encoded,
	}, nil
}

// fetch performs the single upstream attempt and records its outcome.
func (r *Relay) fetch(ctx context.Context, cameraID, url string) ([]byte, error) {
	start := time.Now()
	data, err := r.fetcher.Fetch(ctx, url)
	rtt := time.Since(start)

	if err != nil {
		r.latency.ObserveError(cameraID, rtt)
		return nil, &FetchError{CameraID: cameraID, Err: err}
	}
	r.latency.ObserveOK(cameraID, rtt)
	return data, nil
}

// Cameras lists registered cameras with their fetch statistics.
func (r *Relay) Cameras() dto.CamerasData {
	ids := r.registry.IDs()
	stats := r.latency.Snapshot()

	cameras := make([]dto.CameraInfo, 0, len(ids))
	for _, id := range ids {
		info := dto.CameraInfo{ID: id}
		if s, ok := stats[id]; ok {
			info.FetchOK = s.OK
			info.FetchErrors = s.Error
			info.LatencyMs = s.EWMAms
			info.LastFetchedAt = s.LastAt
		}
		cameras = append(cameras, info)
	}

	return dto.CamerasData{
		Cameras: cameras,
		Length:  len(cameras),
	}
}
