package domain

import (
	"context"
	"time"
)

// DefaultCacheTTL é o TTL de projeto para marcas de BLOCK no cache.
const DefaultCacheTTL = 600 * time.Second

// VerdictCache é um cache negativo de curta duração: marca IPs bloqueados
// para curto-circuitar reavaliações caras.
//
// É só otimização, nunca fonte de verdade. O chamador deve tratar erro
// como cache miss (best-effort): indisponibilidade do cache não pode
// derrubar a requisição.
//
// As marcas não são escopadas por tenant: um BLOCK vale para o IP inteiro.
type VerdictCache interface {
	CachedBlock(ctx context.Context, ip string) (bool, error)
	CacheBlock(ctx context.Context, ip string, ttl time.Duration) error
}
