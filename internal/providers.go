package internal

import (
	"time"

	"github.com/starford/dagaz/internal/ocr"
	"github.com/starford/dagaz/internal/ocr/claude"
	"github.com/starford/dagaz/internal/ocr/ocrspace"
	"github.com/starford/dagaz/internal/ocr/tesseract"
	"github.com/starford/dagaz/internal/ocr/vision"
)

// BuildProviders assembles the OCR provider registry from config. Every
// configured adapter is registered; ones without credentials stay registered
// but unavailable, so they are skipped rather than failed at runtime.
//
// Baselines are rough per-provider estimates used only until runtime metrics
// accumulate. Priority breaks success-rate ties: cloud handwriting engines
// first, the local fallback last.
func BuildProviders(cfg ProvidersConfig) []ocr.Descriptor {
	providers := []ocr.Descriptor{
		{
			Provider:         vision.New(cfg.Vision.APIKey),
			ID:               "vision",
			Priority:         1,
			Tier:             ocr.TierStandard,
			BaselineAccuracy: 0.90,
			BaselineLatency:  2 * time.Second,
		},
		{
			Provider:         newClaude(cfg.Claude),
			ID:               "claude",
			Priority:         2,
			Tier:             ocr.TierPremium,
			BaselineAccuracy: 0.95,
			BaselineLatency:  8 * time.Second,
		},
		{
			Provider:         ocrspace.New(cfg.OCRSpace.APIKey),
			ID:               "ocrspace",
			Priority:         3,
			Tier:             ocr.TierFree,
			BaselineAccuracy: 0.75,
			BaselineLatency:  3 * time.Second,
		},
	}

	if cfg.Tesseract.Enabled {
		providers = append(providers, ocr.Descriptor{
			Provider:         tesseract.New(tesseract.WithLanguages(cfg.Tesseract.Languages...)),
			ID:               "tesseract",
			Priority:         4,
			Tier:             ocr.TierFree,
			BaselineAccuracy: 0.55,
			BaselineLatency:  time.Second,
		})
	}
	return providers
}

// DefaultOCROptions converts the configured orchestration defaults. Config
// validation guarantees the strings parse.
func DefaultOCROptions(cfg OCRConfig) ocr.Options {
	tier, _ := ocr.ParseTier(cfg.DefaultMaxTier)
	return ocr.Options{MaxTier: tier, Prefer: ocr.Preference(cfg.Prefer)}
}

func newClaude(cfg ClaudeConfig) *claude.Client {
	var opts []claude.Option
	if cfg.Model != "" {
		opts = append(opts, claude.WithModel(cfg.Model))
	}
	return claude.New(cfg.APIKey, opts...)
}
