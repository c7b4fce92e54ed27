package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

var errUndecodable = errors.New("image could not be decoded")

// Template is one grayscale reference snapshot. The image is never modified
// after load.
type Template struct {
	Name  string
	Image *image.Gray
}

// StateTemplates groups the templates of one state label.
type StateTemplates struct {
	Label     string
	Templates []Template
}

// References is an immutable, ordered snapshot of the reference library.
// Iteration order follows the mapping file and decides tie-breaks.
type References struct {
	states []StateTemplates
	index  map[string]int
}

// States returns the states in library order. Callers must not modify it.
func (r *References) States() []StateTemplates {
	if r == nil {
		return nil
	}
	return r.states
}

// Labels returns the state labels in library order.
func (r *References) Labels() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.states))
	for i, s := range r.states {
		out[i] = s.Label
	}
	return out
}

// Lookup returns the templates of one state.
func (r *References) Lookup(label string) ([]Template, bool) {
	if r == nil {
		return nil, false
	}
	i, ok := r.index[label]
	if !ok {
		return nil, false
	}
	return r.states[i].Templates, true
}

// Len returns the number of states.
func (r *References) Len() int {
	if r == nil {
		return 0
	}
	return len(r.states)
}

// TemplateCount returns the total number of loaded templates.
func (r *References) TemplateCount() int {
	n := 0
	for _, s := range r.States() {
		n += len(s.Templates)
	}
	return n
}

// LoadReferences reads a "label -> [file names]" mapping and decodes every
// file under imagesDir as 8-bit grayscale. It never fails: problems are
// returned as issues and the affected items are skipped. A state whose images
// all fail is left out of the library.
func LoadReferences(mappingPath, imagesDir string) (*References, []Issue) {
	refs := &References{index: make(map[string]int)}

	entries, err := readOrdered(mappingPath)
	if err != nil {
		return refs, []Issue{loadIssue(mappingPath, err)}
	}

	var issues []Issue
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Key] {
			issues = append(issues, Issue{Code: DuplicateLabel, Label: e.Key, Path: mappingPath})
			continue
		}
		seen[e.Key] = true

		var files []string
		if err := json.Unmarshal(e.Value, &files); err != nil {
			issues = append(issues, Issue{Code: EntryInvalid, Label: e.Key, Path: mappingPath, Err: err})
			continue
		}

		var templates []Template
		for _, name := range files {
			path := filepath.Join(imagesDir, name)
			img, err := readGray(path)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				issues = append(issues, Issue{Code: ImageMissing, Label: e.Key, Path: path})
				continue
			case err != nil:
				issues = append(issues, Issue{Code: ImageCorrupt, Label: e.Key, Path: path, Err: err})
				continue
			}
			templates = append(templates, Template{Name: name, Image: img})
		}

		if len(templates) == 0 {
			issues = append(issues, Issue{Code: StateEmpty, Label: e.Key, Path: mappingPath})
			continue
		}
		refs.index[e.Key] = len(refs.states)
		refs.states = append(refs.states, StateTemplates{Label: e.Key, Templates: templates})
	}

	return refs, issues
}

// readGray decodes an image file as single-channel 8-bit grayscale.
func readGray(path string) (*image.Gray, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	defer mat.Close()
	if mat.Empty() {
		return nil, errUndecodable
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, err
	}
	if g, ok := img.(*image.Gray); ok {
		return g, nil
	}
	g := image.NewGray(img.Bounds())
	draw.Draw(g, g.Bounds(), img, img.Bounds().Min, draw.Src)
	return g, nil
}
