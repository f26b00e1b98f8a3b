package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"framerelay/internal/camera"
	"framerelay/internal/config"
	"framerelay/internal/logger"
	"framerelay/internal/metrics"
	"framerelay/internal/route"
	"framerelay/internal/service"
	"framerelay/internal/service/ai"
	"framerelay/internal/service/fetch"

	"github.com/pkg/errors"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 10 * time.Second

	// latencyAlpha smooths per-camera fetch latency.
	latencyAlpha = 0.2
)

type App struct {
	config   *config.Config
	logger   *logger.Logger
	registry *camera.Registry
	detector *ai.DetectorService
	relay    *service.Relay
}

// NewApp loads configuration, the camera registry and the detection model.
// Any failure here is fatal for the process.
func NewApp() (*App, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	registry, err := camera.LoadRegistry(cfg.CamerasPath)
	if err != nil {
		log.Close()
		return nil, err
	}
	log.Info("Loaded %d camera(s) from %s", registry.Len(), cfg.CamerasPath)

	detector, err := ai.LoadDetector(cfg, log)
	if err != nil {
		log.Close()
		return nil, errors.Wrap(err, "load detection model")
	}

	fetcher := fetch.NewFetcher(cfg.FetchTimeout, cfg.MaxFrameBytes)
	tracker := metrics.NewLatencyTracker(latencyAlpha)
	relay := service.NewRelay(registry, fetcher, detector, tracker, cfg.JPEGQuality, log)

	return &App{
		config:   cfg,
		logger:   log,
		registry: registry,
		detector: detector,
		relay:    relay,
	}, nil
}

// Run serves HTTP until SIGINT/SIGTERM, then drains in-flight requests.
func (a *App) Run() error {
	defer a.close()

	router := route.SetupRoutes(a.relay, a.config, a.logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	fmt.Printf("🔥 Smoke/fire frame relay\n")
	fmt.Printf("📍 URL: http://localhost:%d/update_stream/{camera_id}\n", a.config.Port)
	fmt.Printf("📷 Cameras: %d (%s)\n", a.registry.Len(), a.config.CamerasPath)
	fmt.Printf("🤖 AI Model: %s\n", a.config.ModelPath)
	fmt.Printf("📁 Logs: %s\n", a.config.LogDirectory)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

func (a *App) close() {
	if err := a.detector.Close(); err != nil {
		a.logger.Warning("Failed to release detection model: %v", err)
	}
	a.logger.Close()
}
