package app

import (
	"fmt"
	"time"

	"screen-state-recognizer/internal/recognizer"
	"screen-state-recognizer/internal/system"
)

type Diagnostics struct {
	Environment  system.Environment `json:"environment"`
	States       int                `json:"states"`
	Templates    int                `json:"templates"`
	RegionStates int                `json:"region_states"`
	OCREngine    bool               `json:"ocr_engine"`
	Report       recognizer.Report  `json:"report"`
	ElapsedMS    float64            `json:"elapsed_ms"`
}

// TestEnvironment probes the host, runs one timed recognition and reports
// both to the log and the connected clients.
func (a *App) TestEnvironment() Diagnostics {
	start := time.Now()

	env := a.systemCtrl.Probe()
	a.wsManager.SendLog(fmt.Sprintf("OS: %s/%s", env.OS, env.Arch))
	for i, d := range env.Displays {
		a.wsManager.SendLog(fmt.Sprintf("Display %d: %dx%d at %d,%d", i+1, d.Dx(), d.Dy(), d.Min.X, d.Min.Y))
	}
	if !a.systemCtrl.IsSystemSupported() {
		a.wsManager.SendLog("No active display, capture will fail")
	}
	if env.OCRAvailable {
		a.wsManager.SendLog("tesseract: " + env.OCRBinary)
	} else {
		a.wsManager.SendLog("tesseract not found on PATH")
	}

	refs := a.recognizer.References()
	d := Diagnostics{
		Environment:  env,
		States:       refs.Len(),
		Templates:    refs.TemplateCount(),
		RegionStates: a.recognizer.Regions().Len(),
		OCREngine:    a.extractor != nil,
	}
	a.wsManager.SendLog(fmt.Sprintf("Library: %d states, %d templates, %d states with OCR regions",
		d.States, d.Templates, d.RegionStates))

	d.Report = a.recognizer.Recognize()
	a.wsManager.SendLog(fmt.Sprintf("Recognition test: %s via %s in %v",
		d.Report.State(), d.Report.Result.Method(), d.Report.Elapsed.Round(time.Millisecond)))

	elapsed := time.Since(start)
	d.ElapsedMS = float64(elapsed.Microseconds()) / 1000
	a.wsManager.SendLog(fmt.Sprintf("Environment test finished: %v", elapsed.Round(time.Millisecond)))
	a.log.Info().
		Int("displays", len(env.Displays)).
		Bool("ocr", env.OCRAvailable).
		Str("state", d.Report.State()).
		Msg("environment test")
	return d
}
