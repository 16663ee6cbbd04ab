package infra

import (
	"context"
	"sync"

	"admission-gateway/middleware/admission/domain"

	"github.com/bits-and-blooms/bloom/v3"
)

// SeenFilter é um decorator de ReputationStore com um bloom filter de IPs
// já incrementados. Score de IP que o filtro nunca viu devolve 0 sem ir ao
// backend, na prática a imensa maioria das leituras, já que reputação só
// nasce em BLOCK.
//
// Falso positivo do bloom só custa uma leitura extra no backend (que
// devolve 0). O filtro é por processo: com múltiplas instâncias escrevendo
// no mesmo backend, um IP incrementado por outra instância pode ler 0 aqui.
// Erra na direção fail-open, nunca sobre-bloqueia por conta própria.
type SeenFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
	next   domain.ReputationStore
}

// NewSeenFilter dimensiona o bloom para expectedIPs entradas com a taxa de
// falso positivo dada (ex.: 100_000 e 0.01).
func NewSeenFilter(next domain.ReputationStore, expectedIPs uint, fpRate float64) *SeenFilter {
	return &SeenFilter{
		filter: bloom.NewWithEstimates(expectedIPs, fpRate),
		next:   next,
	}
}

func (f *SeenFilter) Increment(ctx context.Context, ip string, amount int) error {
	f.mu.Lock()
	f.filter.AddString(ip)
	f.mu.Unlock()
	return f.next.Increment(ctx, ip, amount)
}

func (f *SeenFilter) Score(ctx context.Context, ip string) (int, error) {
	f.mu.RLock()
	seen := f.filter.TestString(ip)
	f.mu.RUnlock()
	if !seen {
		return 0, nil
	}
	return f.next.Score(ctx, ip)
}
