package infra

import (
	"context"
	"sync"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// MemoryLedger é o EventLedger em processo: mapa por chave (tenant, ip)
// com trim estritamente por recência e limpeza periódica de chaves ociosas.
//
// A chave composta usa separador NUL, então um IP igual em tenants
// diferentes nunca compartilha sequência (isolamento de tenant).
type MemoryLedger struct {
	mu           sync.Mutex
	entries      map[string]*ledgerEntry
	cap          int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type ledgerEntry struct {
	events   []domain.Fingerprint
	lastSeen time.Time
}

type MemoryLedgerOption func(*MemoryLedger)

// WithRetentionCap troca o limite de eventos retidos por chave.
func WithRetentionCap(cap int) MemoryLedgerOption {
	return func(l *MemoryLedger) {
		if cap > 0 {
			l.cap = cap
		}
	}
}

func WithLedgerIdleTTL(d time.Duration) MemoryLedgerOption {
	return func(l *MemoryLedger) { l.idleTTL = d }
}

func WithLedgerCleanupEvery(d time.Duration) MemoryLedgerOption {
	return func(l *MemoryLedger) { l.cleanupEvery = d }
}

func NewMemoryLedger(opts ...MemoryLedgerOption) *MemoryLedger {
	l := &MemoryLedger{
		entries:      make(map[string]*ledgerEntry),
		cap:          domain.DefaultRetentionCap,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func ledgerKey(tenantID, ip string) string {
	return tenantID + "\x00" + ip
}

// Record implementa domain.EventLedger. Append e trim acontecem sob o
// mesmo lock: concorrência na mesma chave nunca corrompe a sequência.
func (l *MemoryLedger) Record(_ context.Context, tenantID, ip string, fp domain.Fingerprint) error {
	now := time.Now()
	key := ledgerKey(tenantID, ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	ent, ok := l.entries[key]
	if !ok {
		ent = &ledgerEntry{}
		l.entries[key] = ent
	}
	ent.lastSeen = now
	ent.events = append(ent.events, fp)

	if len(ent.events) > l.cap {
		// realoca para não segurar o array antigo inteiro por trás do slice
		trimmed := make([]domain.Fingerprint, l.cap)
		copy(trimmed, ent.events[len(ent.events)-l.cap:])
		ent.events = trimmed
	}
	return nil
}

// Read devolve uma cópia (mais antigo → mais novo). Chave desconhecida
// devolve sequência vazia, nunca erro.
func (l *MemoryLedger) Read(_ context.Context, tenantID, ip string) ([]domain.Fingerprint, error) {
	key := ledgerKey(tenantID, ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	ent, ok := l.entries[key]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Fingerprint, len(ent.events))
	copy(out, ent.events)
	return out, nil
}

func (l *MemoryLedger) Cleanup() {
	cutoff := time.Now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas
// periodicamente. Pare cancelando o contexto.
func (l *MemoryLedger) StartJanitor(ctx DoneContext) {
	if l.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(l.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Cleanup()
			}
		}
	}()
}
