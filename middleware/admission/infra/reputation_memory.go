package infra

import (
	"context"
	"sync"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// MemoryReputation é o ReputationStore em processo.
// Útil para testes e deployments pequenos; não expira registros
// (mesma semântica sem decaimento do store de produção).
type MemoryReputation struct {
	mu      sync.Mutex
	records map[string]domain.ReputationRecord
}

func NewMemoryReputation() *MemoryReputation {
	return &MemoryReputation{records: make(map[string]domain.ReputationRecord)}
}

// Increment faz o read-modify-write inteiro sob o lock: incrementos
// concorrentes do mesmo IP nunca se perdem.
func (r *MemoryReputation) Increment(_ context.Context, ip string, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.records[ip]
	rec.IP = ip
	rec.GlobalScore += amount
	rec.LastSeen = time.Now()
	r.records[ip] = rec
	return nil
}

func (r *MemoryReputation) Score(_ context.Context, ip string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[ip].GlobalScore, nil
}

// Record devolve o registro completo (debug/inspeção em testes).
func (r *MemoryReputation) Record(ip string) (domain.ReputationRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[ip]
	return rec, ok
}
