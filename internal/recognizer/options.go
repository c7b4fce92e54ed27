package recognizer

import (
	"fmt"
	"image"
)

// Options configures a Recognizer.
type Options struct {
	// Threshold accepts a template match outright.
	Threshold float64
	// FallbackThreshold makes a state an OCR candidate.
	FallbackThreshold float64

	ReferencesPath string
	ImagesDir      string
	RegionsPath    string

	// CaptureRegion overrides the monitor rectangle when set.
	CaptureRegion *image.Rectangle
}

// DefaultOptions returns the thresholds used by the labeling tools.
func DefaultOptions() Options {
	return Options{
		Threshold:         0.75,
		FallbackThreshold: 0.65,
		ReferencesPath:    "templates_mapping.json",
		ImagesDir:         "images",
		RegionsPath:       "ocr_regions.json",
	}
}

// Validate reports the first setting that would make recognition
// meaningless: a threshold outside (0,1], a fallback threshold not strictly
// below it, or an empty capture region.
func (o Options) Validate() error {
	if o.Threshold <= 0 || o.Threshold > 1 {
		return fmt.Errorf("threshold %.3f out of range (0,1]", o.Threshold)
	}
	if o.FallbackThreshold <= 0 || o.FallbackThreshold >= o.Threshold {
		return fmt.Errorf("fallback threshold %.3f must be in (0,%.3f)", o.FallbackThreshold, o.Threshold)
	}
	if o.CaptureRegion != nil && o.CaptureRegion.Empty() {
		return fmt.Errorf("capture region %v is empty", *o.CaptureRegion)
	}
	return nil
}
