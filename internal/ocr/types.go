// Package ocr implements the recognition layer: a uniform provider contract,
// a bounded in-memory metrics log, and the orchestrator that ranks providers
// and falls back along the chain until one succeeds.
package ocr

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/dagaz/internal/models"
)

// CostTier classifies a provider's pricing. The zero value means "no cap"
// in Options and is never assigned to a provider.
type CostTier int

const (
	TierFree CostTier = iota + 1
	TierStandard
	TierPremium
)

// String returns the tier's config spelling.
func (t CostTier) String() string {
	switch t {
	case TierFree:
		return "free"
	case TierStandard:
		return "standard"
	case TierPremium:
		return "premium"
	}
	return "unknown"
}

// ParseTier converts a config string to a CostTier. Empty input yields the
// zero value (no cap).
func ParseTier(s string) (CostTier, error) {
	switch s {
	case "":
		return 0, nil
	case "free":
		return TierFree, nil
	case "standard":
		return TierStandard, nil
	case "premium":
		return TierPremium, nil
	}
	return 0, fmt.Errorf("unknown cost tier %q", s)
}

// Rect is a pixel-space bounding box, origin at the image's upper left.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Block is a positional text fragment. Bounds are best effort; providers
// without layout information leave them zero.
type Block struct {
	Text       string  `json:"text"`
	Bounds     Rect    `json:"bounds"`
	Confidence float64 `json:"confidence"`
}

// Result is what a provider returns for one image. Text is always populated,
// even if only with an explanatory fallback message. Entries is present only
// when the provider can emit structured journal entries directly, skipping
// the text parser downstream.
type Result struct {
	Text       string         `json:"text"`
	Confidence float64        `json:"confidence"`
	Blocks     []Block        `json:"blocks,omitempty"`
	Entries    []models.Entry `json:"entries,omitempty"`
	// Provider is the id of the adapter that produced this result,
	// filled in by the orchestrator.
	Provider string `json:"provider,omitempty"`
}

// Provider is the uniform adapter contract every OCR backend implements in
// full, no-ops included.
type Provider interface {
	// Name returns the provider's display name.
	Name() string
	// Available is a synchronous, side-effect-free capability check
	// (credentials present, binary installed).
	Available() bool
	// Init performs idempotent setup and must fail when required
	// configuration is missing.
	Init(ctx context.Context) error
	// Recognize runs OCR on the referenced image. Empty or unrecognizable
	// images yield a low-confidence Result, not an error; errors are
	// reserved for transport and configuration failures.
	Recognize(ctx context.Context, imageRef string) (Result, error)
	// Close releases resources and is safe to call without Init.
	Close() error
}

// Preference expresses the caller's speed-versus-accuracy trade-off.
type Preference string

const (
	PreferNone     Preference = ""
	PreferSpeed    Preference = "speed"
	PreferAccuracy Preference = "accuracy"
)

// Options tunes a single Process call. The zero value means: any tier, no
// preference, default ranking.
type Options struct {
	// Preferred names a provider id to try first.
	Preferred string
	// MaxTier caps which providers may be attempted; zero means no cap.
	MaxTier CostTier
	// Prefer selects the speed or accuracy ranking policy.
	Prefer Preference
}

// Descriptor registers a provider with its static ranking inputs. Baselines
// are used only until runtime metrics accumulate.
type Descriptor struct {
	Provider         Provider
	ID               string
	Priority         int // lower ranks earlier on ties
	Tier             CostTier
	BaselineAccuracy float64
	BaselineLatency  time.Duration
}
