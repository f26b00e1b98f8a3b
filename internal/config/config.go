package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                int
	CamerasPath         string
	ModelPath           string
	LabelsPath          string  // Puste = domyślne etykiety fire/smoke
	ModelInputSize      int     // Bok kwadratowego wejścia sieci
	ConfidenceThreshold float64 // Minimalny wynik klasy
	NMSThreshold        float64 // Próg IoU dla NMS
	FetchTimeout        time.Duration
	MaxFrameBytes       int64
	JPEGQuality         int
	LogDirectory        string
	LogLevel            string
	AllowOrigin         string
}

// Load reads .env (when present) and builds the Config from the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                getEnvAsInt("PORT", 8000),
		CamerasPath:         getEnv("CAMERAS_PATH", "cameras.txt"),
		ModelPath:           getEnv("MODEL_PATH", "best.onnx"),
		LabelsPath:          getEnv("LABELS_PATH", ""),
		ModelInputSize:      getEnvAsInt("MODEL_INPUT_SIZE", 640),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.25),
		NMSThreshold:        getEnvAsFloat("NMS_THRESHOLD", 0.7),
		FetchTimeout:        getEnvAsDuration("FETCH_TIMEOUT", 5*time.Second),
		MaxFrameBytes:       getEnvAsInt64("MAX_FRAME_BYTES", 20<<20),
		JPEGQuality:         getEnvAsInt("JPEG_QUALITY", 95),
		LogDirectory:        getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		AllowOrigin:         getEnv("CORS_ALLOW_ORIGIN", "*"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("5s", "750ms") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
