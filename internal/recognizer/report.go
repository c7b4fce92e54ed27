package recognizer

import (
	"encoding/json"
	"image"
	"time"
)

// StateScore is the best template score of one state for one frame.
type StateScore struct {
	Label    string
	Score    float64
	Template string
	Location image.Point
	// Skipped counts templates that could not be scored, most often because
	// they are larger than the frame.
	Skipped int
}

// Report wraps a Result with the diagnostics of the call that produced it.
type Report struct {
	ID         string
	Result     Result
	Scores     []StateScore
	Candidates []string
	FrameSize  image.Point
	Elapsed    time.Duration
	CapturedAt time.Time
	// Error is set when the frame could not be captured or prepared.
	Error string
}

// State is shorthand for Result.State().
func (r Report) State() string {
	if r.Result == nil {
		return UnknownState
	}
	return r.Result.State()
}

// Score returns the recorded state-best for label.
func (r Report) Score(label string) (float64, bool) {
	for _, s := range r.Scores {
		if s.Label == label {
			return s.Score, true
		}
	}
	return 0, false
}

type scoreJSON struct {
	State    string  `json:"state"`
	Score    float64 `json:"score"`
	Template string  `json:"template,omitempty"`
	Skipped  int     `json:"skipped,omitempty"`
}

type reportJSON struct {
	ID         string      `json:"id"`
	Result     Result      `json:"result"`
	Scores     []scoreJSON `json:"scores"`
	Candidates []string    `json:"candidates"`
	FrameSize  [2]int      `json:"frame_size"`
	ElapsedMS  float64     `json:"elapsed_ms"`
	CapturedAt time.Time   `json:"captured_at"`
	Error      string      `json:"error,omitempty"`
}

func (r Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		ID:         r.ID,
		Result:     r.Result,
		Scores:     make([]scoreJSON, 0, len(r.Scores)),
		Candidates: r.Candidates,
		FrameSize:  [2]int{r.FrameSize.X, r.FrameSize.Y},
		ElapsedMS:  float64(r.Elapsed.Microseconds()) / 1000,
		CapturedAt: r.CapturedAt,
		Error:      r.Error,
	}
	if out.Result == nil {
		out.Result = Unknown{}
	}
	if out.Candidates == nil {
		out.Candidates = []string{}
	}
	for _, s := range r.Scores {
		out.Scores = append(out.Scores, scoreJSON{State: s.Label, Score: s.Score, Template: s.Template, Skipped: s.Skipped})
	}
	return json.Marshal(out)
}
