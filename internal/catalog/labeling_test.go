package catalog

import (
	"image"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestConfirmTextAppendsAndCreates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ocr_regions.json")
	writeFile(t, path, `{
    "main_menu": [{"region": {"left": 1, "top": 2, "width": 3, "height": 4}, "expected_text": ["Jugar"]}],
    "confirm_dialog": [{"region": {"left": 10, "top": 20, "width": 100, "height": 30}, "expected_text": []}]
}`)

	dialog := Rect{Left: 10, Top: 20, Width: 100, Height: 30}
	fresh := Rect{Left: 50, Top: 60, Width: 70, Height: 80}
	changed, err := ConfirmText(path, "confirm_dialog", []Reading{
		{Region: dialog, Text: "Aceptar"},
		{Region: fresh, Text: "Cancelar"},
		{Region: dialog, Text: "   "},
	})
	if err != nil {
		t.Fatalf("ConfirmText() error = %v", err)
	}
	if !changed {
		t.Fatal("ConfirmText() reported no change")
	}

	regs, issues := LoadRegions(path)
	if len(issues) != 0 {
		t.Fatalf("reload issues: %v", issues)
	}
	if got, want := regs.Labels(), []string{"main_menu", "confirm_dialog"}; !reflect.DeepEqual(got, want) {
		t.Errorf("label order = %v, want %v", got, want)
	}
	entries := regs.For("confirm_dialog")
	if len(entries) != 2 {
		t.Fatalf("confirm_dialog has %d entries, want 2", len(entries))
	}
	if !reflect.DeepEqual(entries[0].ExpectedText, []string{"Aceptar"}) {
		t.Errorf("dialog expected = %v", entries[0].ExpectedText)
	}
	if entries[1].Region != fresh || !reflect.DeepEqual(entries[1].ExpectedText, []string{"Cancelar"}) {
		t.Errorf("new entry = %+v", entries[1])
	}

	changed, err = ConfirmText(path, "confirm_dialog", []Reading{{Region: dialog, Text: "Aceptar"}})
	if err != nil || changed {
		t.Errorf("confirming known text: changed=%v err=%v, want no change", changed, err)
	}
}

func TestConfirmTextMissingStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocr_regions.json")
	r := Rect{Left: 0, Top: 0, Width: 20, Height: 10}

	changed, err := ConfirmText(path, "loading", []Reading{{Region: r, Text: "Cargando"}})
	if err != nil || !changed {
		t.Fatalf("ConfirmText() = %v, %v", changed, err)
	}
	regs, _ := LoadRegions(path)
	if e := regs.For("loading"); len(e) != 1 || e[0].ExpectedText[0] != "Cargando" {
		t.Errorf("loading entries = %+v", e)
	}
}

func TestConfirmTextRefusesMalformedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocr_regions.json")
	writeFile(t, path, `{"a": "not a list"}`)

	if _, err := ConfirmText(path, "a", []Reading{{Region: Rect{Width: 1, Height: 1}, Text: "x"}}); err == nil {
		t.Fatal("expected error for malformed store")
	}
	data, _ := os.ReadFile(path)
	if string(data) != `{"a": "not a list"}` {
		t.Errorf("malformed store was rewritten: %s", data)
	}
}

func TestSetExpectedText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ocr_regions.json")
	a := Rect{Left: 1, Top: 1, Width: 10, Height: 10}
	b := Rect{Left: 20, Top: 1, Width: 10, Height: 10}
	writeFile(t, path, `{"shop": [
        {"region": {"left": 1, "top": 1, "width": 10, "height": 10}, "expected_text": ["Tienda"]},
        {"region": {"left": 20, "top": 1, "width": 10, "height": 10}, "expected_text": ["Comprar"]}
    ]}`)

	changed, err := SetExpectedText(path, "shop", []Rect{a}, []string{" Tienda ", "Shop", "", "Shop"})
	if err != nil || !changed {
		t.Fatalf("SetExpectedText() = %v, %v", changed, err)
	}

	regs, _ := LoadRegions(path)
	entries := regs.For("shop")
	if !reflect.DeepEqual(entries[0].ExpectedText, []string{"Tienda", "Shop"}) {
		t.Errorf("entry a expected = %v", entries[0].ExpectedText)
	}
	if entries[1].Region != b || !reflect.DeepEqual(entries[1].ExpectedText, []string{"Comprar"}) {
		t.Errorf("entry b changed: %+v", entries[1])
	}

	if _, err := SetExpectedText(path, "shop", []Rect{a}, []string{" "}); err == nil {
		t.Error("expected error for blank text list")
	}
	if changed, err := SetExpectedText(path, "shop", []Rect{{Width: 5, Height: 5}}, []string{"x"}); err != nil || changed {
		t.Errorf("unknown rect: changed=%v err=%v", changed, err)
	}
}

func grayTemplate(w, h int, shade uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = shade + uint8(i%17)
	}
	return img
}

func TestAddTemplateAppendsAndCreates(t *testing.T) {
	dir := t.TempDir()
	mapping := filepath.Join(dir, "templates_mapping.json")
	writeGrayPNG(t, filepath.Join(dir, "menu1.png"), 10, 10, 30)
	writeGrayPNG(t, filepath.Join(dir, "lobby1.png"), 10, 10, 60)
	writeFile(t, mapping, `{
    "menu": ["menu1.png"],
    "lobby": ["lobby1.png"]
}`)

	first, err := AddTemplate(mapping, dir, "menu", grayTemplate(12, 8, 100))
	if err != nil {
		t.Fatalf("AddTemplate() error = %v", err)
	}
	if !strings.HasPrefix(first, "menu_") || !strings.HasSuffix(first, ".png") {
		t.Errorf("file name = %q, want menu_<timestamp>.png", first)
	}
	second, err := AddTemplate(mapping, dir, "menu", grayTemplate(12, 8, 110))
	if err != nil {
		t.Fatalf("second AddTemplate() error = %v", err)
	}
	if second == first {
		t.Errorf("second capture reused %q", first)
	}
	if _, err := AddTemplate(mapping, dir, "results", grayTemplate(6, 6, 20)); err != nil {
		t.Fatalf("AddTemplate(new label) error = %v", err)
	}

	refs, issues := LoadReferences(mapping, dir)
	if len(issues) != 0 {
		t.Fatalf("reload issues: %v", issues)
	}
	if got, want := refs.Labels(), []string{"menu", "lobby", "results"}; !reflect.DeepEqual(got, want) {
		t.Errorf("label order = %v, want %v", got, want)
	}
	tmpls, _ := refs.Lookup("menu")
	if len(tmpls) != 3 || tmpls[0].Name != "menu1.png" || tmpls[1].Name != first || tmpls[2].Name != second {
		t.Errorf("menu templates = %v", tmpls)
	}
	if b := tmpls[1].Image.Bounds(); b.Dx() != 12 || b.Dy() != 8 {
		t.Errorf("saved template size = %v, want 12x8", b)
	}
}

func TestAddTemplateMissingStore(t *testing.T) {
	dir := t.TempDir()
	mapping := filepath.Join(dir, "templates_mapping.json")
	images := filepath.Join(dir, "images")

	name, err := AddTemplate(mapping, images, "lobby", grayTemplate(5, 5, 0))
	if err != nil {
		t.Fatalf("AddTemplate() error = %v", err)
	}
	refs, issues := LoadReferences(mapping, images)
	if len(issues) != 0 || refs.TemplateCount() != 1 {
		t.Fatalf("refs = %v, issues = %v", refs.Labels(), issues)
	}
	if tmpls, _ := refs.Lookup("lobby"); tmpls[0].Name != name {
		t.Errorf("template = %q, want %q", tmpls[0].Name, name)
	}
}

func TestAddTemplateRejects(t *testing.T) {
	dir := t.TempDir()
	mapping := filepath.Join(dir, "templates_mapping.json")
	img := grayTemplate(4, 4, 0)

	for _, label := range []string{"", "  ", "../up", `a\b`} {
		if _, err := AddTemplate(mapping, dir, label, img); err == nil {
			t.Errorf("AddTemplate(%q) error = nil", label)
		}
	}
	if _, err := AddTemplate(mapping, dir, "lobby", image.NewGray(image.Rect(0, 0, 0, 0))); err == nil {
		t.Error("empty image accepted")
	}

	writeFile(t, mapping, `{"lobby": "not a list"}`)
	if _, err := AddTemplate(mapping, dir, "lobby", img); err == nil {
		t.Error("malformed entry overwritten")
	}
	data, _ := os.ReadFile(mapping)
	if string(data) != `{"lobby": "not a list"}` {
		t.Errorf("store modified: %s", data)
	}
	pngs, _ := filepath.Glob(filepath.Join(dir, "lobby_*.png"))
	if len(pngs) != 0 {
		t.Errorf("images left behind: %v", pngs)
	}
}
