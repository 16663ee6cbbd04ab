package domain

import (
	"testing"
	"time"
)

func fpAt(path string, ts time.Time) Fingerprint {
	return Fingerprint{IP: "10.0.0.1", Path: path, Method: "GET", Timestamp: ts}
}

func TestComputeStatsAt_SplitsWindows(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	events := []Fingerprint{
		fpAt("/a", now.Add(-2*time.Second)),  // dentro de 10s e 60s
		fpAt("/b", now.Add(-9*time.Second)),  // dentro de 10s e 60s
		fpAt("/c", now.Add(-30*time.Second)), // só 60s
		fpAt("/a", now.Add(-59*time.Second)), // só 60s, path repetido
		fpAt("/d", now.Add(-61*time.Second)), // fora de tudo
	}

	stats := ComputeStatsAt(events, now)
	if stats.Count10s != 2 {
		t.Fatalf("expected count10s=2, got %d", stats.Count10s)
	}
	if stats.Count60s != 4 {
		t.Fatalf("expected count60s=4, got %d", stats.Count60s)
	}
	if stats.RPM != 4 {
		t.Fatalf("expected rpm=count60s=4, got %d", stats.RPM)
	}
	if stats.UniquePaths60s != 3 {
		t.Fatalf("expected 3 unique paths, got %d", stats.UniquePaths60s)
	}
}

func TestComputeStatsAt_WindowBoundaryIsInclusive(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	// exatamente em now-10s e now-60s: timestamp >= cutoff conta
	events := []Fingerprint{
		fpAt("/a", now.Add(-10*time.Second)),
		fpAt("/b", now.Add(-60*time.Second)),
	}

	stats := ComputeStatsAt(events, now)
	if stats.Count10s != 1 {
		t.Fatalf("expected count10s=1, got %d", stats.Count10s)
	}
	if stats.Count60s != 2 {
		t.Fatalf("expected count60s=2, got %d", stats.Count60s)
	}
}

func TestComputeStatsAt_IgnoresZeroTimestamps(t *testing.T) {
	now := time.Now()

	events := []Fingerprint{
		{IP: "10.0.0.1", Path: "/a"}, // sem timestamp
		fpAt("/b", now),
	}

	stats := ComputeStatsAt(events, now)
	if stats.Count60s != 1 {
		t.Fatalf("expected zero-timestamp event excluded, got count60s=%d", stats.Count60s)
	}
}

func TestComputeStatsAt_IsPure(t *testing.T) {
	now := time.Now()
	events := []Fingerprint{
		fpAt("/a", now.Add(-1*time.Second)),
		fpAt("/b", now.Add(-20*time.Second)),
	}

	first := ComputeStatsAt(events, now)
	second := ComputeStatsAt(events, now)
	if first != second {
		t.Fatalf("expected identical stats, got %+v and %+v", first, second)
	}
}

func TestComputeStatsAt_EmptyEvents(t *testing.T) {
	stats := ComputeStatsAt(nil, time.Now())
	if stats != (Stats{}) {
		t.Fatalf("expected zero stats for empty history, got %+v", stats)
	}
}
