package ocr

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"screen-state-recognizer/internal/catalog"
)

// Crops whose smaller side is below this are upscaled before recognition.
const minOCRSide = 64

// Extractor crops a region out of a frame, prepares it and returns the
// normalized text the engine reads there.
type Extractor struct {
	engine Engine
	log    zerolog.Logger
}

func NewExtractor(engine Engine, log zerolog.Logger) *Extractor {
	return &Extractor{engine: engine, log: log}
}

// Extract returns the normalized text inside r, which is relative to the
// frame's top-left corner. Any failure yields "" and a warning.
func (e *Extractor) Extract(frame image.Image, r catalog.Rect) string {
	if frame == nil || e.engine == nil {
		return ""
	}

	crop, ok := Prepare(frame, r)
	if !ok {
		e.log.Warn().Interface("region", r).Msg("OCR region outside frame")
		return ""
	}

	raw, err := e.engine.Text(crop)
	if err != nil {
		e.log.Warn().Err(err).Interface("region", r).Msg("OCR failed")
		return ""
	}

	text := Normalize(raw)
	e.log.Debug().Interface("region", r).Str("text", text).Msg("OCR read")
	return text
}

// Prepare crops r out of frame (clipped to the frame), upscales small crops
// 2x with Lanczos and converts to grayscale. ok is false when nothing of r
// lies inside the frame.
func Prepare(frame image.Image, r catalog.Rect) (image.Image, bool) {
	fb := frame.Bounds()
	abs := r.Image().Add(fb.Min).Intersect(fb)
	if abs.Empty() {
		return nil, false
	}

	img := imaging.Crop(frame, abs)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if min(w, h) < minOCRSide {
		img = imaging.Resize(img, w*2, h*2, imaging.Lanczos)
	}
	return imaging.Grayscale(img), true
}
