package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/rs/zerolog"

	"screen-state-recognizer/internal/capture"
	"screen-state-recognizer/internal/catalog"
	"screen-state-recognizer/internal/recognizer"
	"screen-state-recognizer/internal/system"
	"screen-state-recognizer/internal/websocket"
)

// ErrUnknownLabel is returned when waiting for a state the library does not
// contain.
var ErrUnknownLabel = errors.New("state not in reference library")

// forceEvery re-classifies an unchanged frame after this many skipped polls;
// a difference hash can miss small changes such as a button caption.
const forceEvery = 10

type Deps struct {
	Recognizer   *recognizer.Recognizer
	Source       capture.Source
	Extractor    recognizer.TextExtractor
	WSManager    *websocket.Manager
	System       *system.Controller
	Log          zerolog.Logger
	PollInterval time.Duration
}

type App struct {
	running bool
	mutex   sync.RWMutex
	stop    chan struct{}
	done    chan struct{}

	recognizer *recognizer.Recognizer
	source     capture.Source
	extractor  recognizer.TextExtractor
	wsManager  *websocket.Manager
	systemCtrl *system.Controller
	log        zerolog.Logger
	interval   time.Duration

	// watcher state, guarded by mutex
	lastHash  *goimagehash.ImageHash
	skipped   int
	lastState string
	last      *recognizer.Report
}

func NewApp(d Deps) *App {
	if d.WSManager == nil {
		d.WSManager = websocket.NewManager()
	}
	if d.System == nil {
		d.System = system.NewController()
	}
	if d.PollInterval <= 0 {
		d.PollInterval = time.Second
	}
	return &App{
		recognizer: d.Recognizer,
		source:     d.Source,
		extractor:  d.Extractor,
		wsManager:  d.WSManager,
		systemCtrl: d.System,
		log:        d.Log,
		interval:   d.PollInterval,
		lastState:  recognizer.UnknownState,
	}
}

func (a *App) GetWebSocketManager() *websocket.Manager {
	return a.wsManager
}

func (a *App) IsRunning() bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.running
}

// LastReport returns the most recent recognition, if any.
func (a *App) LastReport() (recognizer.Report, bool) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	if a.last == nil {
		return recognizer.Report{}, false
	}
	return *a.last, true
}

// CurrentState is the state the watcher last saw.
func (a *App) CurrentState() string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.lastState
}

func (a *App) StartMonitoring() {
	a.mutex.Lock()
	if a.running {
		a.mutex.Unlock()
		return
	}
	a.running = true
	a.stop = make(chan struct{})
	a.done = make(chan struct{})
	a.lastHash = nil
	a.skipped = 0
	stop, done := a.stop, a.done
	a.mutex.Unlock()

	a.wsManager.UpdateStatus("watching")
	a.log.Info().Dur("interval", a.interval).Msg("watcher started")

	go func() {
		defer close(done)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				a.tick()
			}
		}
	}()
}

// StopMonitoring stops the watcher and waits for its loop to exit.
func (a *App) StopMonitoring() {
	a.mutex.Lock()
	if !a.running {
		a.mutex.Unlock()
		return
	}
	a.running = false
	close(a.stop)
	done := a.done
	a.mutex.Unlock()

	<-done
	a.wsManager.UpdateStatus("stopped")
	a.log.Info().Msg("watcher stopped")
}

// tick runs one watcher poll. Frames whose difference hash equals the
// previous one are not classified again.
func (a *App) tick() {
	start := time.Now()
	frame, err := a.source.Capture(a.recognizer.Options().CaptureRegion)
	if err != nil {
		a.log.Warn().Err(err).Msg("capture failed")
		a.publish(recognizer.CaptureFailed(err, start))
		return
	}

	if a.unchanged(frame) {
		return
	}
	a.publish(a.recognizer.RecognizeFrame(frame))
}

func (a *App) unchanged(frame image.Image) bool {
	hash, err := goimagehash.DifferenceHash(frame)
	if err != nil {
		a.log.Debug().Err(err).Msg("frame hash failed")
		return false
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	prev := a.lastHash
	a.lastHash = hash
	if prev == nil {
		return false
	}
	dist, err := prev.Distance(hash)
	if err != nil || dist > 0 || a.skipped >= forceEvery {
		a.skipped = 0
		return false
	}
	a.skipped++
	return true
}

// publish records rep and broadcasts it when the state changed.
func (a *App) publish(rep recognizer.Report) {
	a.mutex.Lock()
	changed := rep.State() != a.lastState
	a.lastState = rep.State()
	a.last = &rep
	a.mutex.Unlock()

	if !changed {
		return
	}
	a.log.Info().Str("state", rep.State()).Str("method", string(rep.Result.Method())).Msg("state changed")
	a.wsManager.SendResult(rep)
	a.wsManager.UpdateStatus(rep.State())
}

// RecognizeOnce captures and classifies one frame outside the watcher loop.
func (a *App) RecognizeOnce() recognizer.Report {
	rep := a.recognizer.Recognize()
	a.mutex.Lock()
	a.last = &rep
	a.mutex.Unlock()
	a.wsManager.SendResult(rep)
	return rep
}

// WaitForState polls until label is recognized, ctx ends or timeout passes.
// The last report is returned in every case.
func (a *App) WaitForState(ctx context.Context, label string, timeout time.Duration) (recognizer.Report, error) {
	if label != recognizer.UnknownState {
		if _, ok := a.recognizer.References().Lookup(label); !ok {
			return recognizer.Report{}, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		rep := a.recognizer.Recognize()
		if rep.State() == label {
			return rep, nil
		}
		select {
		case <-ctx.Done():
			return rep, fmt.Errorf("state %q not reached within %v: %w", label, timeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

type IssueInfo struct {
	Code  string `json:"code"`
	State string `json:"state,omitempty"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

type ReloadSummary struct {
	States       int         `json:"states"`
	Templates    int         `json:"templates"`
	RegionStates int         `json:"region_states"`
	Issues       []IssueInfo `json:"issues"`
}

// Reload re-reads both catalogs and forces the watcher to classify the next
// frame.
func (a *App) Reload() ReloadSummary {
	issues := a.recognizer.Reload()

	a.mutex.Lock()
	a.lastHash = nil
	a.mutex.Unlock()

	refs := a.recognizer.References()
	sum := ReloadSummary{
		States:       refs.Len(),
		Templates:    refs.TemplateCount(),
		RegionStates: a.recognizer.Regions().Len(),
		Issues:       issueInfos(issues),
	}
	a.wsManager.SendData("reload", sum)
	return sum
}

func issueInfos(issues []catalog.Issue) []IssueInfo {
	out := make([]IssueInfo, 0, len(issues))
	for _, is := range issues {
		info := IssueInfo{Code: string(is.Code), State: is.Label, Path: is.Path}
		if is.Err != nil {
			info.Error = is.Err.Error()
		}
		out = append(out, info)
	}
	return out
}

type StateInfo struct {
	Label     string   `json:"state"`
	Templates []string `json:"templates"`
	Regions   int      `json:"regions"`
}

// States lists the library in recognition order.
func (a *App) States() []StateInfo {
	regions := a.recognizer.Regions()
	states := a.recognizer.References().States()
	out := make([]StateInfo, 0, len(states))
	for _, st := range states {
		names := make([]string, len(st.Templates))
		for i, t := range st.Templates {
			names[i] = t.Name
		}
		out = append(out, StateInfo{Label: st.Label, Templates: names, Regions: len(regions.For(st.Label))})
	}
	return out
}
