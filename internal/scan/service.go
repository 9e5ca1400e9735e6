// Package scan coordinates the pipeline from a page image to persisted
// journal entries: OCR via the provider chain, bullet parsing when the
// provider returned plain text, then storage.
package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/dagaz/internal/bujo"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/ocr"
	"github.com/starford/dagaz/internal/store"
)

// Recognizer abstracts the OCR orchestrator for testing.
type Recognizer interface {
	Process(ctx context.Context, imageRef string, opts ocr.Options) (ocr.Result, error)
}

// Events receives scan lifecycle notifications. The SSE broker implements
// this; a nil Events on the service disables publishing.
type Events interface {
	PublishScanEvent(kind, ref string)
	PublishEntriesCreated(n int)
}

// ScanResult is the outcome of one processed image.
type ScanResult struct {
	Text       string         `json:"text"`
	Entries    []models.Entry `json:"entries"`
	Provider   string         `json:"provider"`
	Confidence float64        `json:"confidence"`
	Elapsed    time.Duration  `json:"elapsed_ms"`
}

// Service runs the scan pipeline.
type Service struct {
	recognizer Recognizer
	parser     *bujo.Parser
	db         store.EntryStore
	events     Events
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithEvents attaches a scan event sink.
func WithEvents(ev Events) Option {
	return func(s *Service) { s.events = ev }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a scan service.
func NewService(r Recognizer, p *bujo.Parser, db store.EntryStore, opts ...Option) *Service {
	s := &Service{
		recognizer: r,
		parser:     p,
		db:         db,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanImage runs OCR over the image, parses the text into entries unless the
// winning provider already produced structured ones, and persists the result.
func (s *Service) ScanImage(ctx context.Context, imageRef string, opts ocr.Options) (*ScanResult, error) {
	s.publish("scan.started", imageRef)
	start := time.Now()

	res, err := s.recognizer.Process(ctx, imageRef, opts)
	if err != nil {
		s.publish("scan.failed", imageRef)
		return nil, err
	}

	entries := res.Entries
	if len(entries) == 0 {
		entries = s.parser.Parse(res.Text)
		for i := range entries {
			entries[i].OCRConfidence = res.Confidence
		}
	}

	if err := s.db.SaveEntries(entries); err != nil {
		s.publish("scan.failed", imageRef)
		return nil, err
	}

	elapsed := time.Since(start)
	s.logger.Info("scan complete",
		"image", imageRef,
		"provider", res.Provider,
		"entries", len(entries),
		"elapsed", elapsed)

	s.publish("scan.completed", imageRef)
	if s.events != nil && len(entries) > 0 {
		s.events.PublishEntriesCreated(len(entries))
	}

	return &ScanResult{
		Text:       res.Text,
		Entries:    entries,
		Provider:   res.Provider,
		Confidence: res.Confidence,
		Elapsed:    elapsed,
	}, nil
}

// ParseText runs the bullet parser over already-transcribed text and
// persists the entries.
func (s *Service) ParseText(_ context.Context, text string) ([]models.Entry, error) {
	entries := s.parser.Parse(text)
	if err := s.db.SaveEntries(entries); err != nil {
		return nil, err
	}
	if s.events != nil && len(entries) > 0 {
		s.events.PublishEntriesCreated(len(entries))
	}
	return entries, nil
}

// ListEntries returns a filtered page of stored entries.
func (s *Service) ListEntries(_ context.Context, f store.Filter) ([]models.Entry, int, error) {
	return s.db.ListEntries(f)
}

// GetEntry returns one stored entry.
func (s *Service) GetEntry(_ context.Context, id string) (*models.Entry, error) {
	return s.db.GetEntry(id)
}

// DeleteEntry removes a stored entry.
func (s *Service) DeleteEntry(_ context.Context, id string) error {
	return s.db.DeleteEntry(id)
}

// CountByType aggregates stored entries per type.
func (s *Service) CountByType(_ context.Context) (map[models.EntryType]int, error) {
	return s.db.CountByType()
}

func (s *Service) publish(kind, ref string) {
	if s.events != nil {
		s.events.PublishScanEvent(kind, ref)
	}
}
