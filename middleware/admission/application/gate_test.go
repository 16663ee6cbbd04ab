package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"
)

func testFP(ip string) domain.Fingerprint {
	return domain.Fingerprint{IP: ip, Path: "/x", Method: "GET", Timestamp: time.Now()}
}

// fakes

type failingLedger struct {
	recordErr error
	readErr   error
	inner     *infra.MemoryLedger
}

func (l *failingLedger) Record(ctx context.Context, tenantID, ip string, fp domain.Fingerprint) error {
	if l.recordErr != nil {
		return l.recordErr
	}
	return l.inner.Record(ctx, tenantID, ip, fp)
}

func (l *failingLedger) Read(ctx context.Context, tenantID, ip string) ([]domain.Fingerprint, error) {
	if l.readErr != nil {
		return nil, l.readErr
	}
	return l.inner.Read(ctx, tenantID, ip)
}

type countingLedger struct {
	inner       *infra.MemoryLedger
	recordCalls int
	readCalls   int
}

func (l *countingLedger) Record(ctx context.Context, tenantID, ip string, fp domain.Fingerprint) error {
	l.recordCalls++
	return l.inner.Record(ctx, tenantID, ip, fp)
}

func (l *countingLedger) Read(ctx context.Context, tenantID, ip string) ([]domain.Fingerprint, error) {
	l.readCalls++
	return l.inner.Read(ctx, tenantID, ip)
}

type fixedReputation struct {
	score          int
	incrementCalls int
	lastAmount     int
}

func (r *fixedReputation) Increment(_ context.Context, _ string, amount int) error {
	r.incrementCalls++
	r.lastAmount = amount
	return nil
}

func (r *fixedReputation) Score(_ context.Context, _ string) (int, error) {
	return r.score, nil
}

type erroringCache struct {
	readErr  error
	writeErr error
	inner    *infra.MemoryVerdictCache
}

func (c *erroringCache) CachedBlock(ctx context.Context, ip string) (bool, error) {
	if c.readErr != nil {
		return false, c.readErr
	}
	return c.inner.CachedBlock(ctx, ip)
}

func (c *erroringCache) CacheBlock(ctx context.Context, ip string, ttl time.Duration) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	return c.inner.CacheBlock(ctx, ip, ttl)
}

func TestGate_QuietTrafficAllows(t *testing.T) {
	gate := &Gate{
		Ledger:     infra.NewMemoryLedger(),
		Reputation: infra.NewMemoryReputation(),
		Cache:      infra.NewMemoryVerdictCache(),
	}

	out := gate.Admit(context.Background(), "t1", testFP("1.2.3.4"))
	if out.Action != domain.VerdictAllow {
		t.Fatalf("expected ALLOW, got %s", out.Action)
	}
	if out.FromCache {
		t.Fatalf("expected fresh evaluation, not cache hit")
	}
	if out.Stats.Count60s != 1 {
		t.Fatalf("expected the recorded event in the window, got %d", out.Stats.Count60s)
	}
}

func TestGate_CachedBlockShortCircuits(t *testing.T) {
	cache := infra.NewMemoryVerdictCache()
	_ = cache.CacheBlock(context.Background(), "1.2.3.4", time.Minute)

	ledger := &countingLedger{inner: infra.NewMemoryLedger()}
	gate := &Gate{Ledger: ledger, Reputation: infra.NewMemoryReputation(), Cache: cache}

	out := gate.Admit(context.Background(), "t1", testFP("1.2.3.4"))
	if out.Action != domain.VerdictBlock {
		t.Fatalf("expected BLOCK from cache, got %s", out.Action)
	}
	if !out.FromCache {
		t.Fatalf("expected FromCache=true")
	}
	if len(out.Decision.Reasons) != 1 || out.Decision.Reasons[0] != ReasonCachedBlock {
		t.Fatalf("expected reasons=[cached_block], got %v", out.Decision.Reasons)
	}
	// fast path pula ledger e stats por completo
	if ledger.recordCalls != 0 || ledger.readCalls != 0 {
		t.Fatalf("expected ledger untouched on cache hit, got record=%d read=%d", ledger.recordCalls, ledger.readCalls)
	}
}

func TestGate_LocalBlockIncrementsReputationOnceAndCaches(t *testing.T) {
	ledger := infra.NewMemoryLedger()
	rep := &fixedReputation{}
	cache := infra.NewMemoryVerdictCache()
	gate := &Gate{Ledger: ledger, Reputation: rep, Cache: cache}

	ctx := context.Background()
	now := time.Now()

	// 130 eventos nos últimos 60s → very_high_rpm → BLOCK local
	for i := 0; i < 130; i++ {
		_ = ledger.Record(ctx, "t1", "6.6.6.6", domain.Fingerprint{
			IP: "6.6.6.6", Path: "/a", Timestamp: now.Add(-30 * time.Second),
		})
	}

	out := gate.Admit(ctx, "t1", testFP("6.6.6.6"))
	if out.Action != domain.VerdictBlock {
		t.Fatalf("expected BLOCK, got %s (score=%d stats=%+v)", out.Action, out.Decision.Score, out.Stats)
	}
	if rep.incrementCalls != 1 {
		t.Fatalf("expected exactly one reputation increment per block, got %d", rep.incrementCalls)
	}
	if rep.lastAmount != 15 {
		t.Fatalf("expected default increment 15, got %d", rep.lastAmount)
	}

	hit, _ := cache.CachedBlock(ctx, "6.6.6.6")
	if !hit {
		t.Fatalf("expected block cached after verdict")
	}
}

func TestGate_GlobalScoreForcesBlockWithoutIncrement(t *testing.T) {
	rep := &fixedReputation{score: 60}
	cache := infra.NewMemoryVerdictCache()
	gate := &Gate{Ledger: infra.NewMemoryLedger(), Reputation: rep, Cache: cache}

	out := gate.Admit(context.Background(), "t1", testFP("7.7.7.7"))
	if out.Decision.Verdict != domain.VerdictAllow {
		t.Fatalf("expected local ALLOW, got %s", out.Decision.Verdict)
	}
	if out.Action != domain.VerdictBlock {
		t.Fatalf("expected global score 60 > 50 to force BLOCK, got %s", out.Action)
	}
	if out.GlobalScore != 60 {
		t.Fatalf("expected global score surfaced, got %d", out.GlobalScore)
	}
	// incremento é só para BLOCK local
	if rep.incrementCalls != 0 {
		t.Fatalf("expected no increment for reputation-driven block, got %d", rep.incrementCalls)
	}

	hit, _ := cache.CachedBlock(context.Background(), "7.7.7.7")
	if !hit {
		t.Fatalf("expected reputation-driven block cached too")
	}
}

func TestGate_GlobalScoreAtThresholdDoesNotBlock(t *testing.T) {
	gate := &Gate{Ledger: infra.NewMemoryLedger(), Reputation: &fixedReputation{score: 50}}

	out := gate.Admit(context.Background(), "t1", testFP("8.8.8.8"))
	if out.Action != domain.VerdictAllow {
		t.Fatalf("expected score==threshold to pass (strict >), got %s", out.Action)
	}
}

func TestGate_LedgerFailureFailsOpen(t *testing.T) {
	ledger := &failingLedger{
		recordErr: errors.New("datastore down"),
		readErr:   errors.New("datastore down"),
		inner:     infra.NewMemoryLedger(),
	}
	var failedOps []string
	gate := &Gate{
		Ledger:         ledger,
		Reputation:     infra.NewMemoryReputation(),
		Cache:          infra.NewMemoryVerdictCache(),
		OnStoreFailure: func(op string) { failedOps = append(failedOps, op) },
	}

	out := gate.Admit(context.Background(), "t1", testFP("1.2.3.4"))
	if out.Action != domain.VerdictAllow {
		t.Fatalf("expected fail-open ALLOW on ledger failure, got %s", out.Action)
	}
	if out.Stats != (domain.Stats{}) {
		t.Fatalf("expected empty window stats, got %+v", out.Stats)
	}
	if len(failedOps) != 2 {
		t.Fatalf("expected record and read failures reported, got %v", failedOps)
	}
}

func TestGate_CacheErrorsAreTreatedAsMiss(t *testing.T) {
	cache := &erroringCache{
		readErr:  errors.New("redis down"),
		writeErr: errors.New("redis down"),
		inner:    infra.NewMemoryVerdictCache(),
	}
	gate := &Gate{Ledger: infra.NewMemoryLedger(), Reputation: infra.NewMemoryReputation(), Cache: cache}

	out := gate.Admit(context.Background(), "t1", testFP("1.2.3.4"))
	if out.Action != domain.VerdictAllow {
		t.Fatalf("expected cache failure absorbed, got %s", out.Action)
	}
	if out.FromCache {
		t.Fatalf("expected cache error to mean miss")
	}
}

func TestGate_OnOutcomeHookReceivesResult(t *testing.T) {
	var gotTenant string
	var gotOutcome Outcome
	gate := &Gate{
		Ledger: infra.NewMemoryLedger(),
		OnOutcome: func(tenantID string, fp domain.Fingerprint, out Outcome) {
			gotTenant = tenantID
			gotOutcome = out
		},
	}

	out := gate.Admit(context.Background(), "t1", testFP("1.2.3.4"))
	if gotTenant != "t1" {
		t.Fatalf("expected hook called with tenant t1, got %q", gotTenant)
	}
	if gotOutcome.Action != out.Action {
		t.Fatalf("expected hook to see the same outcome")
	}
}
