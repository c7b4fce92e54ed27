package config

import (
	"image"
	"strings"
	"testing"
	"time"
)

var envVars = []string{
	"MONITOR", "CAPTURE_REGION", "IMAGES_DIR", "TEMPLATES_MAPPING", "OCR_MAPPING",
	"THRESHOLD", "OCR_FALLBACK_THRESHOLD", "OCR_LANGUAGES", "HTTP_ADDR",
	"POLL_INTERVAL", "LOG_LEVEL", "OPEN_BROWSER",
}

func clearEnv(t *testing.T) {
	for _, v := range envVars {
		t.Setenv(v, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Monitor != 1 {
		t.Errorf("Monitor = %d, want 1", cfg.Monitor)
	}
	if cfg.CaptureRegion != nil {
		t.Errorf("CaptureRegion = %v, want nil", cfg.CaptureRegion)
	}
	if cfg.Threshold != 0.75 {
		t.Errorf("Threshold = %f, want 0.75", cfg.Threshold)
	}
	if cfg.FallbackThresh != 0.65 {
		t.Errorf("FallbackThresh = %f, want 0.65", cfg.FallbackThresh)
	}
	if len(cfg.OCRLanguages) != 2 || cfg.OCRLanguages[0] != "spa" || cfg.OCRLanguages[1] != "eng" {
		t.Errorf("OCRLanguages = %v, want [spa eng]", cfg.OCRLanguages)
	}
	if cfg.HTTPAddr != ":8081" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8081")
	}
	if cfg.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want 1s", cfg.PollInterval)
	}
	if !cfg.OpenBrowser {
		t.Error("OpenBrowser should default to true")
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONITOR", "2")
	t.Setenv("CAPTURE_REGION", "0, 0, 3840, 2160")
	t.Setenv("THRESHOLD", "0.8")
	t.Setenv("OCR_FALLBACK_THRESHOLD", "0.6")
	t.Setenv("OCR_LANGUAGES", "eng")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("OPEN_BROWSER", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Monitor != 2 {
		t.Errorf("Monitor = %d, want 2", cfg.Monitor)
	}
	want := image.Rect(0, 0, 3840, 2160)
	if cfg.CaptureRegion == nil || *cfg.CaptureRegion != want {
		t.Errorf("CaptureRegion = %v, want %v", cfg.CaptureRegion, want)
	}
	if cfg.Threshold != 0.8 || cfg.FallbackThresh != 0.6 {
		t.Errorf("thresholds = %f/%f, want 0.8/0.6", cfg.Threshold, cfg.FallbackThresh)
	}
	if len(cfg.OCRLanguages) != 1 || cfg.OCRLanguages[0] != "eng" {
		t.Errorf("OCRLanguages = %v, want [eng]", cfg.OCRLanguages)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %v, want 250ms", cfg.PollInterval)
	}
	if cfg.OpenBrowser {
		t.Error("OpenBrowser should be false")
	}
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	clearEnv(t)
	t.Setenv("THRESHOLD", "0.6")
	t.Setenv("OCR_FALLBACK_THRESHOLD", "0.7")

	if _, err := Load(); err == nil {
		t.Error("expected error when fallback threshold exceeds primary threshold")
	}
}

func TestLoadRejectsUnparsableNumbers(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"THRESHOLD", "0,8"},
		{"OCR_FALLBACK_THRESHOLD", "abc"},
		{"MONITOR", "second"},
		{"POLL_INTERVAL", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			if err == nil {
				t.Fatalf("Load() with %s=%q = %+v, want error", tt.key, tt.value, cfg)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error = %q, want it to name %s", err, tt.key)
			}
		})
	}
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    image.Rectangle
		wantErr bool
	}{
		{"10,20,30,40", image.Rect(10, 20, 40, 60), false},
		{"-1920,0,1920,1080", image.Rect(-1920, 0, 0, 1080), false},
		{"1,2,3", image.Rectangle{}, true},
		{"a,b,c,d", image.Rectangle{}, true},
		{"0,0,0,10", image.Rectangle{}, true},
	}
	for _, tt := range tests {
		got, err := ParseRegion(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRegion(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRegion(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
