// Package ocr reads short UI strings out of screen regions.
package ocr

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// Engine turns a prepared image into raw text.
type Engine interface {
	Text(img image.Image) (string, error)
}

// Tesseract is an Engine backed by a single gosseract client. The client is
// not safe for concurrent use, so calls are serialized.
type Tesseract struct {
	mu        sync.Mutex
	client    *gosseract.Client
	languages []string
}

// NewTesseract creates a client for the given language set, e.g. spa+eng.
func NewTesseract(languages []string) (*Tesseract, error) {
	if len(languages) == 0 {
		languages = []string{"spa", "eng"}
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR languages %s: %w", strings.Join(languages, "+"), err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}

	return &Tesseract{client: client, languages: languages}, nil
}

// Languages returns the configured language codes.
func (t *Tesseract) Languages() []string {
	return append([]string(nil), t.languages...)
}

func (t *Tesseract) Text(img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", fmt.Errorf("empty image")
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return "", fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// Close releases the Tesseract client.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
