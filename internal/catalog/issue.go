// Package catalog loads the labeled reference templates and OCR regions that
// the recognizer classifies frames against.
package catalog

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Code classifies a load issue.
type Code string

const (
	StoreMissing   Code = "store_missing"
	StoreMalformed Code = "store_malformed"
	EntryInvalid   Code = "entry_invalid"
	DuplicateLabel Code = "duplicate_label"
	ImageMissing   Code = "image_missing"
	ImageCorrupt   Code = "image_corrupt"
	StateEmpty     Code = "state_empty"
	RegionInvalid  Code = "region_invalid"
)

// Issue is a recoverable problem found while loading a store. Loaders report
// issues instead of failing.
type Issue struct {
	Code  Code
	Label string
	Path  string
	Err   error
}

func (i Issue) Error() string {
	s := string(i.Code)
	if i.Label != "" {
		s += fmt.Sprintf(" label=%q", i.Label)
	}
	if i.Path != "" {
		s += fmt.Sprintf(" path=%s", i.Path)
	}
	if i.Err != nil {
		s += fmt.Sprintf(": %v", i.Err)
	}
	return s
}

func (i Issue) Unwrap() error { return i.Err }

// LogIssues writes every issue as a warning.
func LogIssues(log zerolog.Logger, issues []Issue) {
	for _, is := range issues {
		ev := log.Warn().Str("code", string(is.Code))
		if is.Label != "" {
			ev = ev.Str("state", is.Label)
		}
		if is.Path != "" {
			ev = ev.Str("path", is.Path)
		}
		if is.Err != nil {
			ev = ev.Err(is.Err)
		}
		ev.Msg("catalog load issue")
	}
}

// Count returns how many issues carry the given code.
func Count(issues []Issue, code Code) int {
	n := 0
	for _, is := range issues {
		if is.Code == code {
			n++
		}
	}
	return n
}
