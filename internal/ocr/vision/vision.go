// Package vision adapts the Google Cloud Vision images:annotate REST API
// to the OCR provider contract.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/starford/dagaz/internal/ocr"
)

const defaultEndpoint = "https://vision.googleapis.com/v1/images:annotate"

// Client calls Cloud Vision with DOCUMENT_TEXT_DETECTION, which handles
// handwriting better than plain TEXT_DETECTION.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

var _ ocr.Provider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API endpoint (tests point this at a local server).
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Cloud Vision client. An empty key leaves the provider
// unavailable rather than failing.
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
func (c *Client) Name() string { return "Google Cloud Vision" }

// Available reports whether an API key is configured.
func (c *Client) Available() bool { return c.apiKey != "" }

// Init verifies configuration. The connectivity check is deferred to the
// first Recognize call to avoid burning quota on startup.
func (c *Client) Init(_ context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("vision: api key not configured")
	}
	return nil
}

// Close implements ocr.Provider. Nothing to release.
func (c *Client) Close() error { return nil }

// Wire types for the annotate request/response, trimmed to the fields used.

type annotateRequest struct {
	Requests []annotateItem `json:"requests"`
}

type annotateItem struct {
	Image    annotateImage     `json:"image"`
	Features []annotateFeature `json:"features"`
}

type annotateImage struct {
	Content string `json:"content"`
}

type annotateFeature struct {
	Type string `json:"type"`
}

type annotateResponse struct {
	Responses []annotation `json:"responses"`
}

type annotation struct {
	FullTextAnnotation *fullText `json:"fullTextAnnotation"`
	Error              *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
}

type fullText struct {
	Text  string `json:"text"`
	Pages []page `json:"pages"`
}

type page struct {
	Blocks []textBlock `json:"blocks"`
}

type textBlock struct {
	Confidence  float64     `json:"confidence"`
	BoundingBox boundingBox `json:"boundingBox"`
	Paragraphs  []paragraph `json:"paragraphs"`
}

type boundingBox struct {
	Vertices []vertex `json:"vertices"`
}

type vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type paragraph struct {
	Words []word `json:"words"`
}

type word struct {
	Symbols []symbol `json:"symbols"`
}

type symbol struct {
	Text string `json:"text"`
}

// Recognize reads the image file, submits it for document text detection,
// and flattens the annotation into an ocr.Result. An image with no
// detectable text yields a low-confidence result, not an error.
func (c *Client) Recognize(ctx context.Context, imageRef string) (ocr.Result, error) {
	data, err := os.ReadFile(imageRef)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("vision: read image: %w", err)
	}

	req := annotateRequest{Requests: []annotateItem{{
		Image:    annotateImage{Content: base64.StdEncoding.EncodeToString(data)},
		Features: []annotateFeature{{Type: "DOCUMENT_TEXT_DETECTION"}},
	}}}
	body, err := json.Marshal(req)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("vision: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"?key="+c.apiKey, bytes.NewReader(body))
	if err != nil {
		return ocr.Result{}, fmt.Errorf("vision: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("vision: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return ocr.Result{}, fmt.Errorf("vision: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ocr.Result{}, fmt.Errorf("vision: HTTP %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var parsed annotateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ocr.Result{}, fmt.Errorf("vision: decode response: %w", err)
	}
	if len(parsed.Responses) == 0 {
		return lowConfidence("No annotation returned for image"), nil
	}
	ann := parsed.Responses[0]
	if ann.Error != nil {
		return ocr.Result{}, fmt.Errorf("vision: api error: %s", ann.Error.Message)
	}
	if ann.FullTextAnnotation == nil || ann.FullTextAnnotation.Text == "" {
		return lowConfidence("No text detected in image"), nil
	}

	result := ocr.Result{Text: ann.FullTextAnnotation.Text}
	var confSum float64
	var confN int
	for _, pg := range ann.FullTextAnnotation.Pages {
		for _, b := range pg.Blocks {
			result.Blocks = append(result.Blocks, ocr.Block{
				Text:       blockText(b.Paragraphs),
				Bounds:     boundsFromVertices(b.BoundingBox.Vertices),
				Confidence: b.Confidence,
			})
			if b.Confidence > 0 {
				confSum += b.Confidence
				confN++
			}
		}
	}
	if confN > 0 {
		result.Confidence = confSum / float64(confN)
	} else {
		result.Confidence = 0.9
	}
	return result, nil
}

func blockText(paragraphs []paragraph) string {
	var sb strings.Builder
	for _, p := range paragraphs {
		for wi, w := range p.Words {
			if wi > 0 {
				sb.WriteByte(' ')
			}
			for _, s := range w.Symbols {
				sb.WriteString(s.Text)
			}
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

func boundsFromVertices(vs []vertex) ocr.Rect {
	if len(vs) == 0 {
		return ocr.Rect{}
	}
	minX, minY := vs[0].X, vs[0].Y
	maxX, maxY := minX, minY
	for _, v := range vs[1:] {
		if v.X < minX {
			minX = v.X
		}
		if v.Y < minY {
			minY = v.Y
		}
		if v.X > maxX {
			maxX = v.X
		}
		if v.Y > maxY {
			maxY = v.Y
		}
	}
	return ocr.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

func lowConfidence(msg string) ocr.Result {
	return ocr.Result{Text: msg, Confidence: 0.1}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
