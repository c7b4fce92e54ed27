// Package capture grabs still frames from the desktop.
package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
	"github.com/rs/zerolog"
)

// ErrNoDisplay is returned when no active monitor could be resolved.
var ErrNoDisplay = errors.New("no active display")

// Source returns one still frame per call. A nil region captures the whole
// configured monitor.
type Source interface {
	Capture(region *image.Rectangle) (*image.RGBA, error)
}

// displays abstracts the screenshot package so monitor resolution can be tested.
type displays interface {
	NumActiveDisplays() int
	GetDisplayBounds(i int) image.Rectangle
	CaptureRect(r image.Rectangle) (*image.RGBA, error)
}

type screenDisplays struct{}

func (screenDisplays) NumActiveDisplays() int                 { return screenshot.NumActiveDisplays() }
func (screenDisplays) GetDisplayBounds(i int) image.Rectangle { return screenshot.GetDisplayBounds(i) }
func (screenDisplays) CaptureRect(r image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(r)
}

// ScreenSource captures from a physical monitor. Monitor geometry is resolved
// once at construction.
type ScreenSource struct {
	disp    displays
	monitor int
	bounds  image.Rectangle
	ok      bool
	log     zerolog.Logger
}

// NewScreenSource resolves the 1-based monitor index. Index 0 (all displays
// combined) and out-of-range indices fall back to the primary monitor.
func NewScreenSource(monitor int, log zerolog.Logger) *ScreenSource {
	return newScreenSource(screenDisplays{}, monitor, log)
}

func newScreenSource(disp displays, monitor int, log zerolog.Logger) *ScreenSource {
	s := &ScreenSource{disp: disp, monitor: monitor, log: log}

	n := disp.NumActiveDisplays()
	if n == 0 {
		log.Warn().Int("monitor", monitor).Msg("no active displays, captures will fail")
		return s
	}
	if monitor < 1 || monitor > n {
		log.Warn().Int("monitor", monitor).Int("available", n).Msg("monitor index out of range, using primary monitor")
		s.monitor = 1
	}
	s.bounds = disp.GetDisplayBounds(s.monitor - 1)
	s.ok = !s.bounds.Empty()
	if !s.ok {
		log.Warn().Int("monitor", s.monitor).Msg("monitor reports empty bounds")
	}
	return s
}

// Monitor returns the resolved 1-based monitor index.
func (s *ScreenSource) Monitor() int { return s.monitor }

// Bounds returns the cached monitor rectangle.
func (s *ScreenSource) Bounds() image.Rectangle { return s.bounds }

func (s *ScreenSource) Capture(region *image.Rectangle) (*image.RGBA, error) {
	rect := s.bounds
	if region != nil {
		if region.Empty() {
			return nil, fmt.Errorf("empty capture region %v", *region)
		}
		rect = *region
	} else if !s.ok {
		return nil, ErrNoDisplay
	}

	img, err := s.disp.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("capture %v: %w", rect, err)
	}
	return img, nil
}

// Monitors lists the bounds of every active display, primary first.
func Monitors() []image.Rectangle {
	n := screenshot.NumActiveDisplays()
	out := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, screenshot.GetDisplayBounds(i))
	}
	return out
}
