// Package ocrspace adapts the OCR.space parse/image REST API to the OCR
// provider contract. The free tier makes it the default fallback for
// printed text.
package ocrspace

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/ocr"
)

const defaultEndpoint = "https://api.ocr.space/parse/image"

// Client posts base64-encoded images to OCR.space with the overlay enabled
// so line positions come back alongside the text.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

var _ ocr.Provider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API endpoint.
func WithEndpoint(u string) Option {
	return func(c *Client) { c.endpoint = u }
}

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates an OCR.space client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements ocr.Provider.
func (c *Client) Name() string { return "OCR.space" }

// Available reports whether an API key is configured.
func (c *Client) Available() bool { return c.apiKey != "" }

// Init verifies configuration.
func (c *Client) Init(_ context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("ocrspace: api key not configured")
	}
	return nil
}

// Close implements ocr.Provider.
func (c *Client) Close() error { return nil }

type parseResponse struct {
	ParsedResults []struct {
		ParsedText  string `json:"ParsedText"`
		TextOverlay struct {
			Lines []overlayLine `json:"Lines"`
		} `json:"TextOverlay"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

type overlayLine struct {
	LineText string `json:"LineText"`
	Words    []struct {
		Left   float64 `json:"Left"`
		Top    float64 `json:"Top"`
		Width  float64 `json:"Width"`
		Height float64 `json:"Height"`
	} `json:"Words"`
}

// Recognize uploads the image as a base64 data URI and converts the overlay
// lines into positional blocks.
func (c *Client) Recognize(ctx context.Context, imageRef string) (ocr.Result, error) {
	data, err := os.ReadFile(imageRef)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("ocrspace: read image: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(imageRef)))
	if mimeType == "" {
		return ocr.Result{}, fmt.Errorf("%w: %s", apperr.ErrUnsupportedImage, imageRef)
	}

	form := url.Values{}
	form.Set("apikey", c.apiKey)
	form.Set("base64Image", "data:"+mimeType+";base64,"+base64.StdEncoding.EncodeToString(data))
	form.Set("OCREngine", "2")
	form.Set("isOverlayRequired", "true")
	form.Set("scale", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return ocr.Result{}, fmt.Errorf("ocrspace: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("ocrspace: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return ocr.Result{}, fmt.Errorf("ocrspace: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ocr.Result{}, fmt.Errorf("ocrspace: HTTP %d", resp.StatusCode)
	}

	var parsed parseResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ocr.Result{}, fmt.Errorf("ocrspace: decode response: %w", err)
	}
	if parsed.IsErroredOnProcessing {
		return ocr.Result{}, fmt.Errorf("ocrspace: processing error: %s", flattenError(parsed.ErrorMessage))
	}
	if len(parsed.ParsedResults) == 0 || strings.TrimSpace(parsed.ParsedResults[0].ParsedText) == "" {
		return ocr.Result{Text: "No text detected in image", Confidence: 0.1}, nil
	}

	pr := parsed.ParsedResults[0]
	result := ocr.Result{
		Text: pr.ParsedText,
		// OCR.space reports no useful confidence; use a fixed estimate
		// for printed-text engine 2.
		Confidence: 0.85,
	}
	for _, line := range pr.TextOverlay.Lines {
		result.Blocks = append(result.Blocks, ocr.Block{
			Text:       line.LineText,
			Bounds:     lineBounds(line),
			Confidence: result.Confidence,
		})
	}
	return result, nil
}

// flattenError copes with ErrorMessage arriving as either a string or a
// list of strings.
func flattenError(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "unknown error"
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	return string(raw)
}

func lineBounds(line overlayLine) ocr.Rect {
	if len(line.Words) == 0 {
		return ocr.Rect{}
	}
	first := line.Words[0]
	minX, minY := first.Left, first.Top
	maxX, maxY := first.Left+first.Width, first.Top+first.Height
	for _, w := range line.Words[1:] {
		if w.Left < minX {
			minX = w.Left
		}
		if w.Top < minY {
			minY = w.Top
		}
		if w.Left+w.Width > maxX {
			maxX = w.Left + w.Width
		}
		if w.Top+w.Height > maxY {
			maxY = w.Top + w.Height
		}
	}
	return ocr.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
