package catalog

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeGrayPNG(t *testing.T, path string, w, h int, shade uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: shade + uint8((x*7+y*3)%40)})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestLoadReferencesKeepsFileOrder(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, filepath.Join(dir, "z1.png"), 12, 8, 10)
	writeGrayPNG(t, filepath.Join(dir, "a1.png"), 6, 6, 90)
	writeGrayPNG(t, filepath.Join(dir, "a2.png"), 7, 5, 150)
	mapping := filepath.Join(dir, "templates_mapping.json")
	writeFile(t, mapping, `{
    "zeta_screen": ["z1.png"],
    "alpha_screen": ["a1.png", "a2.png"]
}`)

	refs, issues := LoadReferences(mapping, dir)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if got, want := refs.Labels(), []string{"zeta_screen", "alpha_screen"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Labels() = %v, want %v", got, want)
	}
	if refs.TemplateCount() != 3 {
		t.Errorf("TemplateCount() = %d, want 3", refs.TemplateCount())
	}

	tmpls, ok := refs.Lookup("alpha_screen")
	if !ok || len(tmpls) != 2 {
		t.Fatalf("Lookup(alpha_screen) = %v, %v", tmpls, ok)
	}
	if tmpls[1].Name != "a2.png" {
		t.Errorf("second template = %q, want a2.png", tmpls[1].Name)
	}
	if b := tmpls[1].Image.Bounds(); b.Dx() != 7 || b.Dy() != 5 {
		t.Errorf("a2.png decoded as %v, want 7x5", b.Size())
	}
}

func TestLoadReferencesSkipsBadImages(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, filepath.Join(dir, "ok.png"), 8, 8, 40)
	writeFile(t, filepath.Join(dir, "broken.png"), "definitely not a png")
	mapping := filepath.Join(dir, "templates_mapping.json")
	writeFile(t, mapping, `{
    "lobby": ["missing.png", "ok.png", "broken.png"],
    "ghost": ["missing.png", "broken.png"],
    "bad_entry": "ok.png"
}`)

	refs, issues := LoadReferences(mapping, dir)

	if got, want := refs.Labels(), []string{"lobby"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Labels() = %v, want %v", got, want)
	}
	if tmpls, _ := refs.Lookup("lobby"); len(tmpls) != 1 || tmpls[0].Name != "ok.png" {
		t.Errorf("lobby templates = %v, want only ok.png", tmpls)
	}
	if _, ok := refs.Lookup("ghost"); ok {
		t.Error("state with no loadable image must be absent")
	}

	for code, want := range map[Code]int{
		ImageMissing: 2,
		ImageCorrupt: 2,
		StateEmpty:   1,
		EntryInvalid: 1,
	} {
		if got := Count(issues, code); got != want {
			t.Errorf("Count(%s) = %d, want %d (issues: %v)", code, got, want, issues)
		}
	}
}

func TestLoadReferencesMissingAndMalformedStore(t *testing.T) {
	dir := t.TempDir()

	refs, issues := LoadReferences(filepath.Join(dir, "nope.json"), dir)
	if refs.Len() != 0 || Count(issues, StoreMissing) != 1 {
		t.Errorf("missing store: len=%d issues=%v", refs.Len(), issues)
	}

	for name, content := range map[string]string{
		"syntax.json": `{"lobby": ["a.png"`,
		"array.json":  `["lobby"]`,
		"empty.json":  ``,
	} {
		path := filepath.Join(dir, name)
		writeFile(t, path, content)
		refs, issues := LoadReferences(path, dir)
		if refs.Len() != 0 || Count(issues, StoreMalformed) != 1 {
			t.Errorf("%s: len=%d issues=%v", name, refs.Len(), issues)
		}
	}
}

func TestLoadReferencesDuplicateLabel(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, filepath.Join(dir, "a.png"), 4, 4, 0)
	writeGrayPNG(t, filepath.Join(dir, "b.png"), 4, 4, 100)
	mapping := filepath.Join(dir, "m.json")
	writeFile(t, mapping, `{"menu": ["a.png"], "menu": ["b.png"]}`)

	refs, issues := LoadReferences(mapping, dir)
	tmpls, _ := refs.Lookup("menu")
	if len(tmpls) != 1 || tmpls[0].Name != "a.png" {
		t.Errorf("menu templates = %v, want first declaration", tmpls)
	}
	if Count(issues, DuplicateLabel) != 1 {
		t.Errorf("issues = %v, want one duplicate_label", issues)
	}
}

func TestLoadReferencesReloadIsStable(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, filepath.Join(dir, "a.png"), 9, 9, 20)
	writeGrayPNG(t, filepath.Join(dir, "b.png"), 5, 9, 60)
	mapping := filepath.Join(dir, "m.json")
	writeFile(t, mapping, `{"b": ["b.png", "a.png"], "a": ["a.png"]}`)

	first, _ := LoadReferences(mapping, dir)
	second, _ := LoadReferences(mapping, dir)

	if !reflect.DeepEqual(first.Labels(), second.Labels()) {
		t.Errorf("labels changed across reload: %v vs %v", first.Labels(), second.Labels())
	}
	for _, label := range first.Labels() {
		a, _ := first.Lookup(label)
		b, _ := second.Lookup(label)
		if len(a) != len(b) {
			t.Errorf("%s: %d templates vs %d after reload", label, len(a), len(b))
		}
	}
}

func TestLoadRegions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ocr_regions.json")
	writeFile(t, path, `{
    "confirm_dialog": [
        {"region": {"left": 10, "top": 20, "width": 100, "height": 30}, "expected_text": ["Aceptar", "Accept"]},
        {"region": {"left": 0, "top": 0, "width": 0, "height": 30}, "expected_text": ["never"]},
        {"expected_text": ["no region"]},
        {"region": {"left": 5, "top": 5, "width": 50, "height": 10}}
    ],
    "loading": [],
    "broken": {"region": {}}
}`)

	regs, issues := LoadRegions(path)

	if got, want := regs.Labels(), []string{"confirm_dialog"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Labels() = %v, want %v", got, want)
	}
	entries := regs.For("confirm_dialog")
	if len(entries) != 2 {
		t.Fatalf("For(confirm_dialog) has %d entries, want 2", len(entries))
	}
	if want := (Rect{Left: 10, Top: 20, Width: 100, Height: 30}); entries[0].Region != want {
		t.Errorf("entries[0].Region = %+v, want %+v", entries[0].Region, want)
	}
	if !reflect.DeepEqual(entries[0].ExpectedText, []string{"Aceptar", "Accept"}) {
		t.Errorf("entries[0].ExpectedText = %v", entries[0].ExpectedText)
	}
	if len(entries[1].ExpectedText) != 0 {
		t.Errorf("entries[1].ExpectedText = %v, want empty", entries[1].ExpectedText)
	}
	if Count(issues, RegionInvalid) != 2 || Count(issues, StateEmpty) != 1 || Count(issues, EntryInvalid) != 1 {
		t.Errorf("unexpected issues: %v", issues)
	}

	missing, issues := LoadRegions(filepath.Join(dir, "absent.json"))
	if missing.Len() != 0 || Count(issues, StoreMissing) != 1 {
		t.Errorf("missing store: len=%d issues=%v", missing.Len(), issues)
	}
}

func TestRectImage(t *testing.T) {
	r := Rect{Left: 3, Top: 4, Width: 10, Height: 20}
	if got, want := r.Image(), image.Rect(3, 4, 13, 24); got != want {
		t.Errorf("Image() = %v, want %v", got, want)
	}
}
