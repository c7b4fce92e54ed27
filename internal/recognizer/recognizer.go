// Package recognizer decides which screen state a frame shows, first by
// template similarity and then, for marginal scores, by reading text regions.
package recognizer

import (
	"errors"
	"image"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"screen-state-recognizer/internal/capture"
	"screen-state-recognizer/internal/catalog"
	"screen-state-recognizer/internal/detector"
	"screen-state-recognizer/internal/ocr"
)

// TextExtractor reads normalized text from a frame region. It returns "" on
// failure.
type TextExtractor interface {
	Extract(frame image.Image, r catalog.Rect) string
}

// Recognizer classifies frames against the current catalog snapshots.
// Reloads swap whole snapshots, so a recognition in flight keeps the
// catalogs it started with.
type Recognizer struct {
	opts      Options
	source    capture.Source
	matcher   detector.Matcher
	extractor TextExtractor
	log       zerolog.Logger

	refs    atomic.Pointer[catalog.References]
	regions atomic.Pointer[catalog.Regions]
}

// New validates opts and loads both catalogs. A nil extractor disables
// OCR confirmation; every region then reads as empty.
func New(opts Options, source capture.Source, matcher detector.Matcher, extractor TextExtractor, log zerolog.Logger) (*Recognizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if source == nil || matcher == nil {
		return nil, errors.New("recognizer needs a frame source and a matcher")
	}

	r := &Recognizer{
		opts:      opts,
		source:    source,
		matcher:   matcher,
		extractor: extractor,
		log:       log,
	}
	r.Reload()
	return r, nil
}

// Options returns the settings the recognizer was built with. They do not
// change after New.
func (r *Recognizer) Options() Options { return r.opts }

// References returns the current reference snapshot.
func (r *Recognizer) References() *catalog.References { return r.refs.Load() }

// Regions returns the current OCR region snapshot.
func (r *Recognizer) Regions() *catalog.Regions { return r.regions.Load() }

// Reload re-reads both catalogs.
func (r *Recognizer) Reload() []catalog.Issue {
	issues := r.ReloadReferences()
	return append(issues, r.ReloadRegions()...)
}

// ReloadReferences replaces the reference library with a fresh snapshot.
func (r *Recognizer) ReloadReferences() []catalog.Issue {
	refs, issues := catalog.LoadReferences(r.opts.ReferencesPath, r.opts.ImagesDir)
	r.refs.Store(refs)

	catalog.LogIssues(r.log, issues)
	r.log.Info().
		Int("states", refs.Len()).
		Int("templates", refs.TemplateCount()).
		Int("issues", len(issues)).
		Str("path", r.opts.ReferencesPath).
		Msg("reference library loaded")
	return issues
}

// ReloadRegions replaces the OCR region catalog with a fresh snapshot.
func (r *Recognizer) ReloadRegions() []catalog.Issue {
	regions, issues := catalog.LoadRegions(r.opts.RegionsPath)
	r.regions.Store(regions)

	catalog.LogIssues(r.log, issues)
	r.log.Info().
		Int("states", regions.Len()).
		Int("issues", len(issues)).
		Str("path", r.opts.RegionsPath).
		Msg("OCR regions loaded")
	return issues
}

// Recognize captures one frame and classifies it. A capture failure yields
// Unknown.
func (r *Recognizer) Recognize() Report {
	start := time.Now()
	frame, err := r.source.Capture(r.opts.CaptureRegion)
	if err != nil {
		r.log.Warn().Err(err).Msg("capture failed")
		return CaptureFailed(err, start)
	}
	return r.classify(frame, start)
}

// CaptureFailed is the Unknown report for a frame that could not be grabbed.
func CaptureFailed(err error, start time.Time) Report {
	return Report{
		ID:         uuid.NewString(),
		Result:     Unknown{},
		Elapsed:    time.Since(start),
		CapturedAt: start,
		Error:      err.Error(),
	}
}

// RecognizeFrame classifies an already captured frame.
func (r *Recognizer) RecognizeFrame(frame image.Image) Report {
	return r.classify(frame, time.Now())
}

func (r *Recognizer) classify(frame image.Image, start time.Time) Report {
	rep := Report{ID: uuid.NewString(), Result: Unknown{}, CapturedAt: start}

	if frame == nil || frame.Bounds().Empty() {
		rep.Error = "empty frame"
		r.log.Warn().Msg("empty frame, nothing to recognize")
		rep.Elapsed = time.Since(start)
		return rep
	}
	rep.FrameSize = frame.Bounds().Size()

	scene, err := r.matcher.NewScene(frame)
	if err != nil {
		rep.Error = err.Error()
		r.log.Warn().Err(err).Msg("failed to prepare frame")
		rep.Elapsed = time.Since(start)
		return rep
	}
	defer scene.Close()

	refs := r.refs.Load()
	regions := r.regions.Load()

	var best *StateScore
	var candidates []StateScore
	for _, st := range refs.States() {
		score := r.scoreState(scene, st)
		rep.Scores = append(rep.Scores, score)
		if score.Skipped == len(st.Templates) {
			continue
		}

		switch {
		case score.Score >= r.opts.Threshold:
			if best == nil || score.Score > best.Score {
				s := score
				best = &s
			}
		case score.Score >= r.opts.FallbackThreshold:
			candidates = append(candidates, score)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	for _, c := range candidates {
		rep.Candidates = append(rep.Candidates, c.Label)
	}

	if best != nil {
		rep.Result = TemplateMatch{
			Label:      best.Label,
			Confidence: best.Score,
			Location:   best.Location,
			Template:   best.Template,
		}
		r.log.Info().
			Str("state", best.Label).
			Float64("confidence", best.Score).
			Str("template", best.Template).
			Msg("state recognized by template")
		rep.Elapsed = time.Since(start)
		return rep
	}

	if len(candidates) == 0 {
		r.log.Info().Msg("no state above fallback threshold")
		rep.Elapsed = time.Since(start)
		return rep
	}

	for _, c := range candidates {
		entries := regions.For(c.Label)
		if len(entries) == 0 {
			r.log.Debug().Str("state", c.Label).Msg("candidate has no OCR regions")
			continue
		}

		checks, matched := r.checkRegions(frame, entries)
		if matched {
			rep.Result = OCRMatch{Label: c.Label, Regions: checks}
			r.log.Info().
				Str("state", c.Label).
				Float64("score", c.Score).
				Msg("state confirmed by OCR")
			rep.Elapsed = time.Since(start)
			return rep
		}
		r.log.Debug().Str("state", c.Label).Float64("score", c.Score).Msg("OCR did not confirm candidate")
	}

	r.log.Info().Strs("candidates", rep.Candidates).Msg("no candidate confirmed by OCR")
	rep.Elapsed = time.Since(start)
	return rep
}

// scoreState returns the maximum score over the templates of st.
func (r *Recognizer) scoreState(scene detector.Scene, st catalog.StateTemplates) StateScore {
	out := StateScore{Label: st.Label}
	for _, t := range st.Templates {
		m := scene.Match(t.Image)
		if !m.OK {
			out.Skipped++
			r.log.Debug().
				Str("state", st.Label).
				Str("template", t.Name).
				Str("reason", string(m.Skip)).
				Interface("frame", scene.Size()).
				Msg("template not scored")
			continue
		}
		r.log.Debug().
			Str("state", st.Label).
			Str("template", t.Name).
			Float64("score", m.Score).
			Msg("template scored")
		if out.Template == "" || m.Score > out.Score {
			out.Score = m.Score
			out.Template = t.Name
			out.Location = m.Location
		}
	}
	if out.Skipped > 0 {
		r.log.Warn().Str("state", st.Label).Int("skipped", out.Skipped).Msg("templates not scored")
	}
	return out
}

// checkRegions reads every region and reports whether at least one matched.
func (r *Recognizer) checkRegions(frame image.Image, entries []catalog.RegionEntry) ([]RegionCheck, bool) {
	checks := make([]RegionCheck, 0, len(entries))
	matched := false
	for i, e := range entries {
		text := ""
		if r.extractor != nil {
			text = r.extractor.Extract(frame, e.Region)
		}
		ok := ocr.Matches(text, e.ExpectedText)
		checks = append(checks, RegionCheck{
			Index:    i,
			Region:   e.Region,
			Text:     text,
			Expected: e.ExpectedText,
			Matched:  ok,
		})
		matched = matched || ok
	}
	return checks, matched
}
