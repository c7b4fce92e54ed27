// Package detector scores captured frames against grayscale reference templates.
package detector

import (
	"errors"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// SkipReason tells why a template was not scored.
type SkipReason string

const (
	SkipEmpty     SkipReason = "empty_template"
	SkipOversized SkipReason = "larger_than_frame"
	SkipConvert   SkipReason = "conversion_failed"
)

// Match is the best alignment of one template inside a frame. OK is false when
// the template could not be scored and Skip then holds the reason.
type Match struct {
	Score    float64
	Location image.Point
	OK       bool
	Skip     SkipReason
}

// Matcher prepares frames for template scoring.
type Matcher interface {
	NewScene(frame image.Image) (Scene, error)
}

// Scene is one grayscale frame ready to be scored against many templates.
type Scene interface {
	Size() image.Point
	Match(templ *image.Gray) Match
	Close()
}

// CVMatcher scores with OpenCV normalized cross-correlation
// (TM_CCOEFF_NORMED). It is stateless and safe for concurrent use.
type CVMatcher struct{}

func NewCVMatcher() *CVMatcher {
	return &CVMatcher{}
}

func (m *CVMatcher) NewScene(frame image.Image) (Scene, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, errors.New("empty frame")
	}

	src, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	return &cvScene{gray: gray}, nil
}

type cvScene struct {
	gray gocv.Mat
}

func (s *cvScene) Size() image.Point {
	return image.Pt(s.gray.Cols(), s.gray.Rows())
}

// Match returns the maximum correlation and its top-left offset. A template
// larger than the frame in either dimension is not scored.
func (s *cvScene) Match(templ *image.Gray) Match {
	if templ == nil || templ.Bounds().Empty() {
		return Match{Skip: SkipEmpty}
	}
	tb := templ.Bounds()
	if tb.Dx() > s.gray.Cols() || tb.Dy() > s.gray.Rows() {
		return Match{Skip: SkipOversized}
	}

	t, err := gocv.ImageGrayToMatGray(compactGray(templ))
	if err != nil {
		return Match{Skip: SkipConvert}
	}
	defer t.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(s.gray, t, &result, gocv.TmCcoeffNormed, mask)
	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)

	return Match{Score: clampScore(float64(maxVal)), Location: maxLoc, OK: true}
}

func (s *cvScene) Close() {
	s.gray.Close()
}

// clampScore maps a correlation coefficient into [0,1]; anti-correlation and
// undefined values (flat templates) count as no similarity.
func clampScore(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// compactGray returns img with a zero origin and tight stride, copying only
// when needed.
func compactGray(img *image.Gray) *image.Gray {
	b := img.Bounds()
	if b.Min == (image.Point{}) && img.Stride == b.Dx() {
		return img
	}
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return out
}
