package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// AddTemplate saves img as <label>_<timestamp>.png under imagesDir and
// appends the file name to label in the mapping store. A missing label is
// added at the end; existing labels keep their order. It returns the file
// name.
func AddTemplate(mappingPath, imagesDir, label string, img image.Image) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", errors.New("state label is required")
	}
	if strings.ContainsAny(label, `/\`) || strings.Contains(label, "..") {
		return "", fmt.Errorf("invalid state label %q", label)
	}
	if img == nil || img.Bounds().Empty() {
		return "", errors.New("empty template image")
	}

	entries, err := readOrdered(mappingPath)
	if errors.Is(err, errStoreMissing) {
		entries, err = nil, nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", mappingPath, err)
	}

	idx := -1
	var files []string
	for i, e := range entries {
		if e.Key != label {
			continue
		}
		if err := json.Unmarshal(e.Value, &files); err != nil {
			return "", fmt.Errorf("state %q: %w", label, err)
		}
		idx = i
		break
	}

	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return "", err
	}
	name, err := uniqueTemplateName(imagesDir, label, time.Now())
	if err != nil {
		return "", err
	}
	path := filepath.Join(imagesDir, name)
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}

	raw, err := json.Marshal(append(files, name))
	if err != nil {
		os.Remove(path)
		return "", err
	}
	if idx < 0 {
		entries = append(entries, entry{Key: label, Value: raw})
	} else {
		entries[idx].Value = raw
	}
	if err := writeOrdered(mappingPath, entries); err != nil {
		os.Remove(path)
		return "", err
	}
	return name, nil
}

// uniqueTemplateName suffixes the timestamped name when several captures
// land in the same second.
func uniqueTemplateName(dir, label string, now time.Time) (string, error) {
	base := label + "_" + now.Format("20060102_150405")
	for i := 1; i < 1000; i++ {
		name := base + ".png"
		if i > 1 {
			name = fmt.Sprintf("%s_%d.png", base, i)
		}
		if _, err := os.Stat(filepath.Join(dir, name)); errors.Is(err, os.ErrNotExist) {
			return name, nil
		}
	}
	return "", fmt.Errorf("no free file name for %q", base)
}
