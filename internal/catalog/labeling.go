package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Reading is the text extracted from one region during a recognition.
type Reading struct {
	Region Rect   `json:"region"`
	Text   string `json:"text"`
}

type regionDoc struct {
	labels  []string
	entries map[string][]RegionEntry
}

// readRegionDoc loads the region store for editing. Unlike LoadRegions it is
// strict: a malformed store is an error so an edit never clobbers it.
func readRegionDoc(path string) (*regionDoc, error) {
	doc := &regionDoc{entries: make(map[string][]RegionEntry)}

	entries, err := readOrdered(path)
	if errors.Is(err, errStoreMissing) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	for _, e := range entries {
		var list []RegionEntry
		if err := json.Unmarshal(e.Value, &list); err != nil {
			return nil, fmt.Errorf("entry for %q is not a region list: %w", e.Key, err)
		}
		if _, ok := doc.entries[e.Key]; !ok {
			doc.labels = append(doc.labels, e.Key)
		}
		doc.entries[e.Key] = list
	}
	return doc, nil
}

func (d *regionDoc) write(path string) error {
	out := make([]entry, 0, len(d.labels))
	for _, label := range d.labels {
		list := d.entries[label]
		for i := range list {
			if list[i].ExpectedText == nil {
				list[i].ExpectedText = []string{}
			}
		}
		raw, err := json.Marshal(list)
		if err != nil {
			return err
		}
		out = append(out, entry{Key: label, Value: raw})
	}
	return writeOrdered(path, out)
}

// ConfirmText records extracted readings as accepted text for their regions.
// Each reading is matched to an entry of label by exact rectangle; a missing
// entry (or label) is created. Text already present is not duplicated. The
// store is rewritten only when something changed.
func ConfirmText(path, label string, readings []Reading) (bool, error) {
	doc, err := readRegionDoc(path)
	if err != nil {
		return false, err
	}
	if _, ok := doc.entries[label]; !ok {
		doc.labels = append(doc.labels, label)
		doc.entries[label] = []RegionEntry{}
	}

	list := doc.entries[label]
	updated := false
	for _, rd := range readings {
		text := strings.TrimSpace(rd.Text)
		if text == "" || !rd.Region.Valid() {
			continue
		}
		idx := indexOfRect(list, rd.Region)
		if idx < 0 {
			list = append(list, RegionEntry{Region: rd.Region, ExpectedText: []string{}})
			idx = len(list) - 1
		}
		if containsString(list[idx].ExpectedText, text) {
			continue
		}
		list[idx].ExpectedText = append(list[idx].ExpectedText, text)
		updated = true
	}
	doc.entries[label] = list

	if !updated {
		return false, nil
	}
	return true, doc.write(path)
}

// SetExpectedText replaces the accepted text of every entry of label whose
// rectangle is one of rects.
func SetExpectedText(path, label string, rects []Rect, texts []string) (bool, error) {
	var expected []string
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" && !containsString(expected, t) {
			expected = append(expected, t)
		}
	}
	if len(expected) == 0 {
		return false, errors.New("no expected text given")
	}

	doc, err := readRegionDoc(path)
	if err != nil {
		return false, err
	}

	list := doc.entries[label]
	updated := false
	for i := range list {
		for _, r := range rects {
			if list[i].Region == r {
				list[i].ExpectedText = append([]string(nil), expected...)
				updated = true
				break
			}
		}
	}

	if !updated {
		return false, nil
	}
	return true, doc.write(path)
}

func indexOfRect(list []RegionEntry, r Rect) int {
	for i, e := range list {
		if e.Region == r {
			return i
		}
	}
	return -1
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
