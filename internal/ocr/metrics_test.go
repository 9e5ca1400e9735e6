package ocr

import (
	"fmt"
	"testing"
	"time"
)

func TestMetrics_CapacityBounded(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 250; i++ {
		m.Record(Attempt{Provider: "p", Success: true})
	}
	if got := m.Len(); got != maxAttempts {
		t.Errorf("len = %d, want %d", got, maxAttempts)
	}
}

func TestMetrics_KeepsMostRecent(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < maxAttempts+10; i++ {
		m.Record(Attempt{Provider: fmt.Sprintf("p%d", i), Success: true})
	}
	snap := m.Snapshot()
	if snap[0].Provider != "p10" {
		t.Errorf("oldest retained = %s, want p10", snap[0].Provider)
	}
	if snap[len(snap)-1].Provider != fmt.Sprintf("p%d", maxAttempts+9) {
		t.Errorf("newest retained = %s", snap[len(snap)-1].Provider)
	}
}

func TestMetrics_SuccessRateWindowed(t *testing.T) {
	m := NewMetrics()
	now := time.Now()

	// Two old failures outside the 1h window, three recent successes inside.
	m.Record(Attempt{Provider: "p", Success: false, At: now.Add(-2 * time.Hour)})
	m.Record(Attempt{Provider: "p", Success: false, At: now.Add(-90 * time.Minute)})
	for i := 0; i < 3; i++ {
		m.Record(Attempt{Provider: "p", Success: true, At: now.Add(-time.Minute)})
	}

	rate, samples := m.SuccessRate("p", HealthWindow)
	if samples != 3 {
		t.Fatalf("samples = %d, want 3", samples)
	}
	if rate != 1.0 {
		t.Errorf("1h rate = %v, want 1.0", rate)
	}

	rate, samples = m.SuccessRate("p", PerformanceWindow)
	if samples != 5 {
		t.Fatalf("24h samples = %d, want 5", samples)
	}
	if rate != 0.6 {
		t.Errorf("24h rate = %v, want 0.6", rate)
	}
}

func TestMetrics_NoSamplesMeansNoData(t *testing.T) {
	m := NewMetrics()
	if _, samples := m.SuccessRate("ghost", PerformanceWindow); samples != 0 {
		t.Errorf("samples = %d, want 0", samples)
	}
}

func TestMetrics_Healthy(t *testing.T) {
	m := NewMetrics()
	// No attempts at all: healthy.
	if !m.Healthy("p") {
		t.Error("provider with no history should be healthy")
	}

	now := time.Now()
	m.Record(Attempt{Provider: "p", Success: true, At: now})
	m.Record(Attempt{Provider: "p", Success: true, At: now})
	m.Record(Attempt{Provider: "p", Success: false, At: now})
	if !m.Healthy("p") { // 2/3 > 50%
		t.Error("2/3 success should be healthy")
	}

	m.Record(Attempt{Provider: "q", Success: false, At: now})
	m.Record(Attempt{Provider: "q", Success: true, At: now})
	if m.Healthy("q") { // exactly 50% is not healthy
		t.Error("50% success should not be healthy")
	}
}

func TestMetrics_Stats(t *testing.T) {
	m := NewMetrics()
	now := time.Now()
	m.Record(Attempt{Provider: "p", Success: true, Elapsed: 2 * time.Second, Confidence: 0.9, At: now})
	m.Record(Attempt{Provider: "p", Success: false, Elapsed: 4 * time.Second, At: now})

	stats := m.Stats([]string{"p", "idle"}, PerformanceWindow)
	if len(stats) != 2 {
		t.Fatalf("got %d stats", len(stats))
	}
	p := stats[0]
	if p.Attempts != 2 || p.SuccessRate != 0.5 {
		t.Errorf("p stats = %+v", p)
	}
	if p.AvgLatency != 3*time.Second {
		t.Errorf("avg latency = %v, want 3s", p.AvgLatency)
	}
	if p.AvgConfidence != 0.9 {
		t.Errorf("avg confidence = %v, want 0.9 (successes only)", p.AvgConfidence)
	}
	idle := stats[1]
	if idle.Attempts != 0 || !idle.Healthy {
		t.Errorf("idle stats = %+v", idle)
	}
}
