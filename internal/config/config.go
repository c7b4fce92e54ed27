// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Monitor          int
	CaptureRegion    *image.Rectangle
	ImagesDir        string
	TemplatesMapping string
	OCRMapping       string
	Threshold        float64
	FallbackThresh   float64
	OCRLanguages     []string
	HTTPAddr         string
	PollInterval     time.Duration
	LogLevel         string
	OpenBrowser      bool
}

// Load reads .env (working directory first, then the executable's directory)
// and builds the configuration from environment variables.
func Load() (*Config, error) {
	envPaths := []string{".env"}
	if execPath, err := os.Executable(); err == nil {
		envPaths = append(envPaths, filepath.Join(filepath.Dir(execPath), ".env"))
	}
	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			break
		}
	}

	monitor, errMonitor := getEnvInt("MONITOR", 1)
	threshold, errThreshold := getEnvFloat("THRESHOLD", 0.75)
	fallback, errFallback := getEnvFloat("OCR_FALLBACK_THRESHOLD", 0.65)
	interval, errInterval := getEnvDuration("POLL_INTERVAL", time.Second)
	if err := errors.Join(errMonitor, errThreshold, errFallback, errInterval); err != nil {
		return nil, err
	}

	cfg := &Config{
		Monitor:          monitor,
		ImagesDir:        getEnv("IMAGES_DIR", "images"),
		TemplatesMapping: getEnv("TEMPLATES_MAPPING", "templates_mapping.json"),
		OCRMapping:       getEnv("OCR_MAPPING", "ocr_regions.json"),
		Threshold:        threshold,
		FallbackThresh:   fallback,
		OCRLanguages:     getEnvList("OCR_LANGUAGES", "+", []string{"spa", "eng"}),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8081"),
		PollInterval:     interval,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		OpenBrowser:      getEnvBool("OPEN_BROWSER", true),
	}

	if v := os.Getenv("CAPTURE_REGION"); v != "" {
		r, err := ParseRegion(v)
		if err != nil {
			return nil, fmt.Errorf("CAPTURE_REGION: %w", err)
		}
		cfg.CaptureRegion = &r
	}

	if cfg.FallbackThresh <= 0 || cfg.FallbackThresh >= cfg.Threshold || cfg.Threshold > 1 {
		return nil, fmt.Errorf("thresholds must satisfy 0 < OCR_FALLBACK_THRESHOLD (%.2f) < THRESHOLD (%.2f) <= 1",
			cfg.FallbackThresh, cfg.Threshold)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive, got %v", cfg.PollInterval)
	}

	return cfg, nil
}

// ParseRegion parses "left,top,width,height" into an absolute rectangle.
func ParseRegion(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("want left,top,width,height, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("invalid number %q: %w", p, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("width and height must be positive, got %dx%d", v[2], v[3])
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// The numeric getters return def only when key is unset. A value that does
// not parse is an error.
func getEnvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return i, nil
}

func getEnvFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, v)
	}
	return f, nil
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func getEnvList(key, sep string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, sep)
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return def
}
