package domain

import (
	"context"
	"time"
)

// ReputationRecord é o score global de suspeita de um IP. É a única
// entidade que atravessa a fronteira de tenant de propósito: tenants
// diferentes alimentam e leem o mesmo registro.
type ReputationRecord struct {
	IP          string
	GlobalScore int
	LastSeen    time.Time
}

// ReputationStore mantém o score global por IP.
//
// Increment precisa ser atômico (read-modify-write linearizável) mesmo com
// tenants diferentes incrementando o mesmo IP ao mesmo tempo. Incremento
// perdido é bug de corretude, não corrida aceitável. Cria o registro com o
// valor do incremento quando o IP ainda não existe e atualiza LastSeen.
//
// Score devolve 0 para IP desconhecido; nunca falha por chave ausente.
// Não há decaimento nem expiração: scores só crescem.
type ReputationStore interface {
	Increment(ctx context.Context, ip string, amount int) error
	Score(ctx context.Context, ip string) (int, error)
}
