package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	errStoreMissing = errors.New("store file not found")
	errNotObject    = errors.New("top-level value is not an object")
)

// Rect is a sub-rectangle of a captured frame, relative to its top-left corner.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Image converts r to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

// Valid reports whether r has a positive area.
func (r Rect) Valid() bool { return r.Width > 0 && r.Height > 0 }

type entry struct {
	Key   string
	Value json.RawMessage
}

// readOrdered decodes a JSON object keeping its keys in file order.
func readOrdered(path string) ([]entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errStoreMissing
		}
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}

	var entries []entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("value for %q: %w", key, err)
		}
		entries = append(entries, entry{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}

// loadIssue maps a readOrdered error to the matching store-level issue.
func loadIssue(path string, err error) Issue {
	if errors.Is(err, errStoreMissing) {
		return Issue{Code: StoreMissing, Path: path}
	}
	return Issue{Code: StoreMalformed, Path: path, Err: err}
}

// writeOrdered serializes entries as an indented JSON object in the given order
// and replaces path atomically.
func writeOrdered(path string, entries []entry) error {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, e := range entries {
		key, err := json.Marshal(e.Key)
		if err != nil {
			return err
		}
		var val bytes.Buffer
		if err := json.Indent(&val, e.Value, "    ", "    "); err != nil {
			return fmt.Errorf("value for %q: %w", e.Key, err)
		}
		buf.WriteString("    ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val.Bytes())
		if i < len(entries)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
