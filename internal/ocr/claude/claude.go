// Package claude adapts the Anthropic messages API to the OCR provider
// contract. Unlike the plain-text providers it understands the bullet-journal
// notation itself and returns structured entries directly, so the downstream
// text parser can be skipped when this provider wins.
package claude

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/ocr"
)

const (
	defaultEndpoint = "https://api.anthropic.com/v1/messages"
	defaultModel    = "claude-sonnet-4-20250514"

	// fallbackConfidence is used when the model answers with prose instead
	// of the requested JSON; the raw text is still usable downstream.
	fallbackConfidence = 0.7
)

const prompt = `Transcribe this bullet journal page and return JSON only.

Return a JSON object with this structure:
{
  "text": "full transcription, one line per journal line",
  "entries": [
    {
      "type": "task|event|note|inspiration|research|memory",
      "status": "incomplete|complete|migrated|scheduled|cancelled",
      "content": "cleaned entry text without bullet symbols",
      "priority": "none|medium|high",
      "contexts": ["lowercase @context tokens"],
      "tags": ["lowercase #tag tokens"],
      "date": "YYYY-MM-DD if a date header applies, else empty",
      "time": "HH:MM 24h if the entry has a time, else empty",
      "mood": "only for memory entries, else empty",
      "confidence": 0.0
    }
  ]
}

Rules:
- Bullet symbols: • task, x/✓ completed task, > migrated, < scheduled, ~ cancelled, ○/o event, - note, ! idea.
- A leading * before a bullet marks high priority.
- Standalone date lines ("March 15th", "3/15/25") set the date for entries below them and are not entries themselves.
- Strip #tags and @contexts into their arrays; do not leave them in content.
- Confidence is 0.0-1.0 per entry based on handwriting legibility.

Return ONLY the JSON, no other text.`

var mediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Client drives the Anthropic vision call.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	now        func() time.Time
}

var _ ocr.Provider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API endpoint.
func WithEndpoint(u string) Option {
	return func(c *Client) { c.endpoint = u }
}

// WithModel overrides the model id.
func WithModel(m string) Option {
	return func(c *Client) { c.model = m }
}

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithNow overrides the clock used for entry timestamps.
func WithNow(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates an Anthropic-backed provider.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements ocr.Provider.
func (c *Client) Name() string { return "Claude Vision" }

// Available reports whether an API key is configured.
func (c *Client) Available() bool { return c.apiKey != "" }

// Init verifies configuration.
func (c *Client) Init(_ context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("claude: api key not configured")
	}
	return nil
}

// Close implements ocr.Provider.
func (c *Client) Close() error { return nil }

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// wireEntry is the model's per-entry JSON shape.
type wireEntry struct {
	Type       string   `json:"type"`
	Status     string   `json:"status"`
	Content    string   `json:"content"`
	Priority   string   `json:"priority"`
	Contexts   []string `json:"contexts"`
	Tags       []string `json:"tags"`
	Date       string   `json:"date"`
	Time       string   `json:"time"`
	Mood       string   `json:"mood"`
	Confidence float64  `json:"confidence"`
}

type transcription struct {
	Text    string      `json:"text"`
	Entries []wireEntry `json:"entries"`
}

// Recognize sends the image with the transcription prompt and converts the
// structured answer into entries. A model reply that is not valid JSON falls
// back to the raw text at reduced confidence instead of failing the call.
func (c *Client) Recognize(ctx context.Context, imageRef string) (ocr.Result, error) {
	data, err := os.ReadFile(imageRef)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("claude: read image: %w", err)
	}
	mediaType, ok := mediaTypes[strings.ToLower(filepath.Ext(imageRef))]
	if !ok {
		return ocr.Result{}, fmt.Errorf("claude: unsupported image type %q", filepath.Ext(imageRef))
	}

	answer, err := c.callAPI(ctx, data, mediaType)
	if err != nil {
		return ocr.Result{}, err
	}

	var tr transcription
	if err := json.Unmarshal([]byte(stripFences(answer)), &tr); err != nil || tr.Text == "" && len(tr.Entries) == 0 {
		// Model ignored the JSON instruction; keep what it said as text.
		return ocr.Result{Text: answer, Confidence: fallbackConfidence}, nil
	}

	result := ocr.Result{Text: tr.Text}
	var confSum float64
	for _, we := range tr.Entries {
		e := c.toEntry(we)
		result.Entries = append(result.Entries, e)
		confSum += we.Confidence
	}
	if n := len(tr.Entries); n > 0 {
		result.Confidence = confSum / float64(n)
	} else {
		result.Confidence = fallbackConfidence
	}
	if result.Text == "" {
		result.Text = joinContents(result.Entries)
	}
	return result, nil
}

func (c *Client) callAPI(ctx context.Context, image []byte, mediaType string) (string, error) {
	reqBody := apiRequest{
		Model:     c.model,
		MaxTokens: 4096,
		Messages: []apiMessage{{
			Role: "user",
			Content: []contentBlock{
				{Type: "image", Source: &imageSource{
					Type:      "base64",
					MediaType: mediaType,
					Data:      base64.StdEncoding.EncodeToString(image),
				}},
				{Type: "text", Text: prompt},
			},
		}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("claude: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("claude: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("claude: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("claude: read response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("claude: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("claude: api error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("claude: HTTP %d", resp.StatusCode)
	}
	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("claude: empty response")
}

// toEntry converts a wire entry, filling defaults for anything the model
// left out or got wrong.
func (c *Client) toEntry(we wireEntry) models.Entry {
	now := c.now()

	typ := models.EntryType(we.Type)
	if !models.ValidType(typ) {
		typ = models.TypeTask
	}
	status := models.EntryStatus(we.Status)
	if !models.ValidStatus(status) {
		status = models.StatusIncomplete
	}
	priority := models.Priority(we.Priority)
	switch priority {
	case models.PriorityNone, models.PriorityMedium, models.PriorityHigh:
	default:
		priority = models.PriorityNone
	}

	collectionDate := we.Date
	if _, err := time.Parse("2006-01-02", collectionDate); err != nil {
		collectionDate = now.Format("2006-01-02")
	}

	e := models.Entry{
		ID:             uuid.NewString(),
		Type:           typ,
		Status:         status,
		Content:        strings.TrimSpace(we.Content),
		Priority:       priority,
		Contexts:       lowerAll(we.Contexts),
		Tags:           lowerAll(we.Tags),
		Collection:     models.CollectionDaily,
		CollectionDate: collectionDate,
		CreatedAt:      now,
		OCRConfidence:  we.Confidence,
	}
	if typ == models.TypeMemory {
		e.Mood = we.Mood
	}
	if t, err := time.Parse("15:04", we.Time); err == nil {
		day, _ := time.ParseInLocation("2006-01-02", collectionDate, time.Local)
		due := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.Local)
		e.DueDate = &due
	}
	return e
}

func lowerAll(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(strings.TrimLeft(s, "#@")))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// stripFences removes a markdown code fence if the model wrapped its JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func joinContents(entries []models.Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Content
	}
	return strings.Join(lines, "\n")
}
