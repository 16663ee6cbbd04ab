// Package infra contém implementações concretas (infraestrutura) para os
// contratos definidos no pacote domain.
//
// Exemplos:
//   - MemoryLedger / PostgresLedger: histórico limitado por (tenant, ip)
//   - MemoryReputation / PostgresReputation: score global por IP
//   - MemoryVerdictCache / RedisVerdictCache: cache negativo de BLOCK
//   - SeenFilter: prefiltro bloom na frente da reputação
//   - BucketStore: token bucket por chave usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para limite de concorrência
package infra
