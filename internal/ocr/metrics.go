package ocr

import (
	"sync"
	"time"
)

// Rolling windows used for ranking and health checks.
const (
	HealthWindow      = time.Hour
	PerformanceWindow = 24 * time.Hour
)

// maxAttempts bounds the in-memory log; older attempts are dropped.
const maxAttempts = 100

// Attempt records one provider invocation.
type Attempt struct {
	Provider   string        `json:"provider"`
	Success    bool          `json:"success"`
	Err        string        `json:"error,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	Confidence float64       `json:"confidence,omitempty"`
	Entries    int           `json:"entries,omitempty"`
	At         time.Time     `json:"at"`
}

// ProviderStats is an aggregated snapshot for one provider over a window.
type ProviderStats struct {
	ID            string        `json:"id"`
	Attempts      int           `json:"attempts"`
	SuccessRate   float64       `json:"success_rate"`
	AvgLatency    time.Duration `json:"avg_latency"`
	AvgConfidence float64       `json:"avg_confidence"`
	Healthy       bool          `json:"healthy"`
}

// Metrics is a bounded, append-only log of recognition attempts. The
// orchestrator is the only writer; a mutex keeps reads consistent for the
// stats endpoints.
type Metrics struct {
	mu       sync.Mutex
	attempts []Attempt
	now      func() time.Time
}

// NewMetrics creates an empty metrics log.
func NewMetrics() *Metrics {
	return &Metrics{now: time.Now}
}

// Record appends an attempt, trimming the log to its capacity.
func (m *Metrics) Record(a Attempt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.At.IsZero() {
		a.At = m.now()
	}
	m.attempts = append(m.attempts, a)
	if len(m.attempts) > maxAttempts {
		m.attempts = m.attempts[len(m.attempts)-maxAttempts:]
	}
}

// Len returns the number of retained attempts.
func (m *Metrics) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts)
}

// recentLocked returns attempts for provider id within the window.
func (m *Metrics) recentLocked(id string, window time.Duration) []Attempt {
	cutoff := m.now().Add(-window)
	var out []Attempt
	for _, a := range m.attempts {
		if a.Provider == id && a.At.After(cutoff) {
			out = append(out, a)
		}
	}
	return out
}

// SuccessRate returns the provider's success fraction over the window and
// the number of samples it is based on. Zero samples means "no data", and
// callers should fall back to the provider's static baseline.
func (m *Metrics) SuccessRate(id string, window time.Duration) (rate float64, samples int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recent := m.recentLocked(id, window)
	if len(recent) == 0 {
		return 0, 0
	}
	ok := 0
	for _, a := range recent {
		if a.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(recent)), len(recent)
}

// Healthy reports provider health over the health window: no recent attempts
// counts as healthy, otherwise the success rate must exceed 50%.
func (m *Metrics) Healthy(id string) bool {
	rate, samples := m.SuccessRate(id, HealthWindow)
	return samples == 0 || rate > 0.5
}

// Stats aggregates per-provider numbers over the window for the given ids.
func (m *Metrics) Stats(ids []string, window time.Duration) []ProviderStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ProviderStats, 0, len(ids))
	for _, id := range ids {
		recent := m.recentLocked(id, window)
		st := ProviderStats{ID: id, Attempts: len(recent), Healthy: true}
		if len(recent) > 0 {
			var ok int
			var latency time.Duration
			var conf float64
			var confSamples int
			for _, a := range recent {
				if a.Success {
					ok++
					conf += a.Confidence
					confSamples++
				}
				latency += a.Elapsed
			}
			st.SuccessRate = float64(ok) / float64(len(recent))
			st.AvgLatency = latency / time.Duration(len(recent))
			if confSamples > 0 {
				st.AvgConfidence = conf / float64(confSamples)
			}
		}
		// Health uses its own shorter window.
		healthRecent := m.recentLocked(id, HealthWindow)
		if len(healthRecent) > 0 {
			ok := 0
			for _, a := range healthRecent {
				if a.Success {
					ok++
				}
			}
			st.Healthy = float64(ok)/float64(len(healthRecent)) > 0.5
		}
		out = append(out, st)
	}
	return out
}

// Snapshot returns a copy of the retained attempts, oldest first.
func (m *Metrics) Snapshot() []Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Attempt(nil), m.attempts...)
}
