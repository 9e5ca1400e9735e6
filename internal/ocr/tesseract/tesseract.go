// Package tesseract wraps the local Tesseract engine via gosseract. It costs
// nothing and needs no network, which makes it the offline fallback of the
// chain, at the price of poor handwriting accuracy.
package tesseract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/starford/dagaz/internal/ocr"
)

// Engine implements the provider contract over a per-call gosseract client.
// Clients are not reused: libtesseract handles are cheap and keeping one
// per call avoids sharing cgo state between recognitions.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

var _ ocr.Provider = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages sets the trained-data languages (default "eng").
func WithLanguages(langs ...string) Option {
	return func(e *Engine) { e.languages = append([]string(nil), langs...) }
}

// WithClientFactory substitutes client construction (tests use this).
func WithClientFactory(f func() *gosseract.Client) Option {
	return func(e *Engine) { e.clientFactory = f }
}

// New creates a Tesseract engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		languages:     []string{"eng"},
		clientFactory: gosseract.NewClient,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ocr.Provider.
func (e *Engine) Name() string { return "Tesseract" }

// Available is always true: the engine is linked in, and a missing trained
// data file surfaces from Init instead.
func (e *Engine) Available() bool { return true }

// Init smoke-tests the native library by opening and closing a client.
func (e *Engine) Init(_ context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tesseract: init: %v", r)
		}
	}()
	client := e.clientFactory()
	defer client.Close()
	if len(e.languages) > 0 {
		if err := client.SetLanguage(e.languages...); err != nil {
			return fmt.Errorf("tesseract: set language: %w", err)
		}
	}
	return nil
}

// Close implements ocr.Provider. Clients are per call, nothing is retained.
func (e *Engine) Close() error { return nil }

// Recognize runs local OCR over the image file. Blank pages come back as a
// low-confidence result rather than an error.
func (e *Engine) Recognize(_ context.Context, imageRef string) (ocr.Result, error) {
	if _, err := os.Stat(imageRef); err != nil {
		return ocr.Result{}, fmt.Errorf("tesseract: image not found: %w", err)
	}

	client := e.clientFactory()
	defer client.Close()

	if len(e.languages) > 0 {
		if err := client.SetLanguage(e.languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("tesseract: set language: %w", err)
		}
	}
	if err := client.SetImage(imageRef); err != nil {
		return ocr.Result{}, fmt.Errorf("tesseract: set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("tesseract: recognize: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return ocr.Result{Text: "No text detected in image", Confidence: 0.1}, nil
	}

	result := ocr.Result{Text: text}

	// Line boxes give per-line confidence; failures here degrade to a flat
	// estimate rather than failing the recognition.
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err == nil && len(boxes) > 0 {
		var confSum float64
		for _, b := range boxes {
			result.Blocks = append(result.Blocks, ocr.Block{
				Text: b.Word,
				Bounds: ocr.Rect{
					X: float64(b.Box.Min.X),
					Y: float64(b.Box.Min.Y),
					W: float64(b.Box.Dx()),
					H: float64(b.Box.Dy()),
				},
				Confidence: b.Confidence / 100,
			})
			confSum += b.Confidence / 100
		}
		result.Confidence = confSum / float64(len(boxes))
	} else {
		result.Confidence = 0.6
	}
	return result, nil
}
