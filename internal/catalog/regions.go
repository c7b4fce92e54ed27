package catalog

import (
	"encoding/json"
	"fmt"
)

// RegionEntry is one OCR region of a state and the readings accepted for it.
// An empty ExpectedText means the region was captured but never validated.
type RegionEntry struct {
	Region       Rect     `json:"region"`
	ExpectedText []string `json:"expected_text"`
}

// Regions is an immutable snapshot of the OCR region catalog.
type Regions struct {
	labels  []string
	entries map[string][]RegionEntry
}

// For returns the region entries of a state in file order.
func (r *Regions) For(label string) []RegionEntry {
	if r == nil {
		return nil
	}
	return r.entries[label]
}

// Labels returns the labels that own at least one region.
func (r *Regions) Labels() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.labels...)
}

// Len returns the number of labels.
func (r *Regions) Len() int {
	if r == nil {
		return 0
	}
	return len(r.labels)
}

type rawRegion struct {
	Region       *Rect    `json:"region"`
	ExpectedText []string `json:"expected_text"`
}

// LoadRegions reads a "label -> [{region, expected_text}]" mapping. Like
// LoadReferences it never fails.
func LoadRegions(path string) (*Regions, []Issue) {
	regs := &Regions{entries: make(map[string][]RegionEntry)}

	entries, err := readOrdered(path)
	if err != nil {
		return regs, []Issue{loadIssue(path, err)}
	}

	var issues []Issue
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Key] {
			issues = append(issues, Issue{Code: DuplicateLabel, Label: e.Key, Path: path})
			continue
		}
		seen[e.Key] = true

		var raws []json.RawMessage
		if err := json.Unmarshal(e.Value, &raws); err != nil {
			issues = append(issues, Issue{Code: EntryInvalid, Label: e.Key, Path: path, Err: err})
			continue
		}

		var list []RegionEntry
		for i, raw := range raws {
			var rr rawRegion
			if err := json.Unmarshal(raw, &rr); err != nil {
				issues = append(issues, Issue{Code: RegionInvalid, Label: e.Key, Path: path,
					Err: fmt.Errorf("region %d: %w", i, err)})
				continue
			}
			if rr.Region == nil || !rr.Region.Valid() {
				issues = append(issues, Issue{Code: RegionInvalid, Label: e.Key, Path: path,
					Err: fmt.Errorf("region %d has no positive area", i)})
				continue
			}
			list = append(list, RegionEntry{Region: *rr.Region, ExpectedText: rr.ExpectedText})
		}

		if len(list) == 0 {
			issues = append(issues, Issue{Code: StateEmpty, Label: e.Key, Path: path})
			continue
		}
		regs.labels = append(regs.labels, e.Key)
		regs.entries[e.Key] = list
	}

	return regs, issues
}
