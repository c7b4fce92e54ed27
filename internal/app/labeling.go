package app

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"screen-state-recognizer/internal/catalog"
)

// ReadRegions captures a frame and reads every OCR region of label.
func (a *App) ReadRegions(label string) ([]catalog.Reading, error) {
	entries := a.recognizer.Regions().For(label)
	if len(entries) == 0 {
		return nil, fmt.Errorf("state %q has no OCR regions", label)
	}
	if a.extractor == nil {
		return nil, errors.New("OCR engine not available")
	}

	frame, err := a.source.Capture(a.recognizer.Options().CaptureRegion)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	readings := make([]catalog.Reading, 0, len(entries))
	for _, e := range entries {
		readings = append(readings, catalog.Reading{Region: e.Region, Text: a.extractor.Extract(frame, e.Region)})
	}
	return readings, nil
}

// ConfirmText accepts readings as expected text for label. With no readings
// the current frame is read first. The region catalog is reloaded when the
// store changed.
func (a *App) ConfirmText(label string, readings []catalog.Reading) (bool, error) {
	if label == "" {
		return false, errors.New("state label is required")
	}
	if len(readings) == 0 {
		var err error
		if readings, err = a.ReadRegions(label); err != nil {
			return false, err
		}
	}

	changed, err := catalog.ConfirmText(a.recognizer.Options().RegionsPath, label, readings)
	if err != nil {
		return false, err
	}
	if changed {
		a.log.Info().Str("state", label).Int("readings", len(readings)).Msg("OCR text confirmed")
		a.recognizer.ReloadRegions()
	}
	return changed, nil
}

// SetExpectedText replaces the expected text of label's regions at rects.
func (a *App) SetExpectedText(label string, rects []catalog.Rect, texts []string) (bool, error) {
	changed, err := catalog.SetExpectedText(a.recognizer.Options().RegionsPath, label, rects, texts)
	if err != nil {
		return false, err
	}
	if changed {
		a.log.Info().Str("state", label).Strs("texts", texts).Msg("expected text updated")
		a.recognizer.ReloadRegions()
	}
	return changed, nil
}

// CaptureTemplate grabs a frame, crops it to rect when given, and stores the
// result as a new reference template for label. rect is relative to the
// captured frame. The reference library is reloaded afterwards.
func (a *App) CaptureTemplate(label string, rect *catalog.Rect) (string, error) {
	opts := a.recognizer.Options()
	frame, err := a.source.Capture(opts.CaptureRegion)
	if err != nil {
		return "", fmt.Errorf("capture: %w", err)
	}

	var img image.Image = frame
	if rect != nil {
		fb := frame.Bounds()
		abs := rect.Image().Add(fb.Min).Intersect(fb)
		if abs.Empty() {
			return "", fmt.Errorf("region %+v lies outside the %dx%d frame", *rect, fb.Dx(), fb.Dy())
		}
		img = imaging.Crop(frame, abs)
	}

	name, err := catalog.AddTemplate(opts.ReferencesPath, opts.ImagesDir, label, img)
	if err != nil {
		return "", err
	}
	a.log.Info().Str("state", label).Str("file", name).Msg("template captured")

	a.recognizer.ReloadReferences()
	a.mutex.Lock()
	a.lastHash = nil
	a.mutex.Unlock()

	a.wsManager.SendData("template", map[string]string{"state": label, "file": name})
	return name, nil
}
