package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.png")
	if err := os.WriteFile(path, []byte("not-a-real-png"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func answerServer(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") == "" {
			t.Error("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}
		var req apiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := apiResponse{}
		resp.Content = append(resp.Content, struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{Type: "text", Text: answer})
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestRecognize_StructuredEntries(t *testing.T) {
	answer := `{
		"text": "March 15th\n• Buy milk #errands",
		"entries": [{
			"type": "task",
			"status": "incomplete",
			"content": "Buy milk",
			"priority": "none",
			"tags": ["errands"],
			"date": "2025-03-15",
			"confidence": 0.95
		}]
	}`
	srv := answerServer(t, answer)
	defer srv.Close()

	fixed := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	c := New("key", WithEndpoint(srv.URL), WithNow(func() time.Time { return fixed }))

	res, err := c.Recognize(context.Background(), writeTestImage(t))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(res.Entries))
	}
	e := res.Entries[0]
	if e.Content != "Buy milk" || string(e.Type) != "task" {
		t.Errorf("entry = %+v", e)
	}
	if e.CollectionDate != "2025-03-15" {
		t.Errorf("collection date = %q", e.CollectionDate)
	}
	if len(e.Tags) != 1 || e.Tags[0] != "errands" {
		t.Errorf("tags = %v", e.Tags)
	}
	if e.ID == "" {
		t.Error("entry should get an id")
	}
	if res.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", res.Confidence)
	}
}

func TestRecognize_FencedJSONAccepted(t *testing.T) {
	answer := "```json\n{\"text\": \"- a plain note\", \"entries\": [{\"type\": \"note\", \"content\": \"a plain note\", \"confidence\": 0.8}]}\n```"
	srv := answerServer(t, answer)
	defer srv.Close()

	c := New("key", WithEndpoint(srv.URL))
	res, err := c.Recognize(context.Background(), writeTestImage(t))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(res.Entries) != 1 || string(res.Entries[0].Type) != "note" {
		t.Errorf("entries = %+v", res.Entries)
	}
}

func TestRecognize_MalformedJSONFallsBackToText(t *testing.T) {
	srv := answerServer(t, "Here is the transcription:\n• Buy milk")
	defer srv.Close()

	c := New("key", WithEndpoint(srv.URL))
	res, err := c.Recognize(context.Background(), writeTestImage(t))
	if err != nil {
		t.Fatalf("malformed answer should not error: %v", err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("entries = %d, want 0", len(res.Entries))
	}
	if res.Text == "" {
		t.Error("raw answer text should be preserved")
	}
	if res.Confidence != fallbackConfidence {
		t.Errorf("confidence = %v, want %v", res.Confidence, fallbackConfidence)
	}
}

func TestRecognize_InvalidFieldsGetDefaults(t *testing.T) {
	answer := `{"entries": [{"type": "chore", "status": "pending", "priority": "urgent", "content": "mop floor", "date": "soonish", "confidence": 0.5}]}`
	srv := answerServer(t, answer)
	defer srv.Close()

	fixed := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	c := New("key", WithEndpoint(srv.URL), WithNow(func() time.Time { return fixed }))
	res, err := c.Recognize(context.Background(), writeTestImage(t))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	e := res.Entries[0]
	if string(e.Type) != "task" || string(e.Status) != "incomplete" || string(e.Priority) != "none" {
		t.Errorf("defaults not applied: %+v", e)
	}
	if e.CollectionDate != "2025-06-10" {
		t.Errorf("bad date should fall back to today, got %q", e.CollectionDate)
	}
}

func TestRecognize_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	}))
	defer srv.Close()

	c := New("bad", WithEndpoint(srv.URL))
	if _, err := c.Recognize(context.Background(), writeTestImage(t)); err == nil {
		t.Fatal("expected error from api error response")
	}
}

func TestRecognize_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := New("key")
	if _, err := c.Recognize(context.Background(), path); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestAvailability(t *testing.T) {
	if New("").Available() {
		t.Error("no key should be unavailable")
	}
	if err := New("").Init(context.Background()); err == nil {
		t.Error("Init without key should fail")
	}
	c := New("key")
	if !c.Available() {
		t.Error("keyed client should be available")
	}
	if err := c.Init(context.Background()); err != nil {
		t.Errorf("Init: %v", err)
	}
}
