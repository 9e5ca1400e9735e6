package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/errreport"
)

// tieThreshold is the success-rate gap (in fraction points) under which two
// providers are considered tied and static priority decides.
const tieThreshold = 0.10

// Orchestrator ranks registered providers per call and walks the fallback
// chain: first success wins, failures are recorded and skipped past, and only
// exhausting the whole chain is fatal. It owns its metrics log; construct one
// orchestrator per registry, there are no package-level singletons.
type Orchestrator struct {
	providers []Descriptor
	metrics   *Metrics
	logger    *slog.Logger
	reporter  errreport.Reporter
	defaults  Options
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

// WithReporter attaches a diagnostics reporter for provider failures.
func WithReporter(r errreport.Reporter) OrchestratorOption {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithDefaultOptions sets configured fallbacks applied to each Process call
// for the fields the caller leaves zero.
func WithDefaultOptions(defaults Options) OrchestratorOption {
	return func(o *Orchestrator) { o.defaults = defaults }
}

// WithMetrics substitutes the metrics log (tests use this to pre-seed
// attempt history).
func WithMetrics(m *Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator creates an orchestrator over the given provider registry.
func NewOrchestrator(providers []Descriptor, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		providers: append([]Descriptor(nil), providers...),
		metrics:   NewMetrics(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Metrics exposes the orchestrator's attempt log.
func (o *Orchestrator) Metrics() *Metrics { return o.metrics }

// ProviderIDs returns the registered provider ids in registry order.
func (o *Orchestrator) ProviderIDs() []string {
	ids := make([]string, len(o.providers))
	for i, d := range o.providers {
		ids[i] = d.ID
	}
	return ids
}

// Stats returns per-provider aggregates over the performance window.
func (o *Orchestrator) Stats() []ProviderStats {
	return o.metrics.Stats(o.ProviderIDs(), PerformanceWindow)
}

// Process runs the ranked fallback chain for one image. Unavailable providers
// are skipped without a metric; a failing provider is recorded and the next
// one is tried. The orchestrator never retries a provider within one call.
func (o *Orchestrator) Process(ctx context.Context, imageRef string, opts Options) (Result, error) {
	opts = o.applyDefaults(opts)
	ranked := o.rank(opts)
	if len(ranked) == 0 {
		return Result{}, fmt.Errorf("%w: none registered within tier %s",
			apperr.ErrNoProviders, capTier(opts).String())
	}

	var lastErr error
	attempted := 0
	for _, d := range ranked {
		if !o.available(ctx, d) {
			o.logger.Debug("ocr: provider unavailable, skipping", slog.String("provider", d.ID))
			continue
		}

		start := time.Now()
		res, err := d.Provider.Recognize(ctx, imageRef)
		elapsed := time.Since(start)

		if err != nil {
			attempted++
			lastErr = err
			o.metrics.Record(Attempt{
				Provider: d.ID,
				Success:  false,
				Err:      err.Error(),
				Elapsed:  elapsed,
			})
			o.report("ocr_provider_failure", err.Error(), map[string]string{
				"provider": d.ID,
				"image":    imageRef,
			})
			o.logger.Warn("ocr: provider failed, falling back",
				slog.String("provider", d.ID),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()))
			continue
		}

		o.metrics.Record(Attempt{
			Provider:   d.ID,
			Success:    true,
			Elapsed:    elapsed,
			Confidence: res.Confidence,
			Entries:    len(res.Entries),
		})
		o.logger.Info("ocr: recognition succeeded",
			slog.String("provider", d.ID),
			slog.Duration("elapsed", elapsed),
			slog.Float64("confidence", res.Confidence))
		res.Provider = d.ID
		return res, nil
	}

	if attempted == 0 {
		return Result{}, apperr.ErrNoProviders
	}
	o.report("ocr_exhausted", lastErr.Error(), map[string]string{"image": imageRef})
	return Result{}, fmt.Errorf("%w: %d provider(s) attempted, last error: %v",
		apperr.ErrAllProvidersFailed, attempted, lastErr)
}

// applyDefaults fills zero Options fields from the configured defaults. A
// per-call preferred provider suppresses the default ranking preference.
func (o *Orchestrator) applyDefaults(opts Options) Options {
	if opts.MaxTier == 0 {
		opts.MaxTier = o.defaults.MaxTier
	}
	if opts.Prefer == PreferNone && opts.Preferred == "" {
		opts.Prefer = o.defaults.Prefer
	}
	return opts
}

// available checks credentials and completes the provider's own init step.
// Init failures make the provider unavailable for this call, not failed.
func (o *Orchestrator) available(ctx context.Context, d Descriptor) bool {
	if !d.Provider.Available() {
		return false
	}
	if err := d.Provider.Init(ctx); err != nil {
		o.logger.Debug("ocr: provider init failed",
			slog.String("provider", d.ID), slog.String("error", err.Error()))
		return false
	}
	return true
}

// rank orders the registry for one call.
func (o *Orchestrator) rank(opts Options) []Descriptor {
	tierCap := capTier(opts)

	pool := make([]Descriptor, 0, len(o.providers))
	for _, d := range o.providers {
		if d.Tier <= tierCap {
			pool = append(pool, d)
		}
	}
	if len(pool) == 0 {
		return pool
	}

	switch {
	case opts.Prefer == PreferSpeed:
		pool = dropSlowest(pool)
		sort.SliceStable(pool, func(i, j int) bool {
			return pool[i].BaselineLatency < pool[j].BaselineLatency
		})

	case opts.Prefer == PreferAccuracy:
		sort.SliceStable(pool, func(i, j int) bool {
			return pool[i].BaselineAccuracy > pool[j].BaselineAccuracy
		})

	case opts.Preferred != "":
		sort.SliceStable(pool, func(i, j int) bool {
			if (pool[i].ID == opts.Preferred) != (pool[j].ID == opts.Preferred) {
				return pool[i].ID == opts.Preferred
			}
			return pool[i].Priority < pool[j].Priority
		})

	default:
		rates := make(map[string]float64, len(pool))
		for _, d := range pool {
			rate, samples := o.metrics.SuccessRate(d.ID, PerformanceWindow)
			if samples == 0 {
				rate = d.BaselineAccuracy
			}
			rates[d.ID] = rate
		}
		sort.SliceStable(pool, func(i, j int) bool {
			ri, rj := rates[pool[i].ID], rates[pool[j].ID]
			if math.Abs(ri-rj) < tieThreshold {
				return pool[i].Priority < pool[j].Priority
			}
			return ri > rj
		})
	}
	return pool
}

// dropSlowest removes the single highest-latency provider (ties broken by
// higher cost tier) so a speed-focused call never waits on it.
func dropSlowest(pool []Descriptor) []Descriptor {
	if len(pool) <= 1 {
		return pool
	}
	worst := 0
	for i := 1; i < len(pool); i++ {
		if pool[i].BaselineLatency > pool[worst].BaselineLatency ||
			(pool[i].BaselineLatency == pool[worst].BaselineLatency && pool[i].Tier > pool[worst].Tier) {
			worst = i
		}
	}
	out := make([]Descriptor, 0, len(pool)-1)
	out = append(out, pool[:worst]...)
	return append(out, pool[worst+1:]...)
}

func capTier(opts Options) CostTier {
	if opts.MaxTier == 0 {
		return TierPremium
	}
	return opts.MaxTier
}

func (o *Orchestrator) report(errType, message string, context map[string]string) {
	if o.reporter == nil {
		return
	}
	o.reporter.Report(errType, message, context)
}
