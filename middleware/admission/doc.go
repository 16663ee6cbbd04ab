// Package admission fornece os adapters HTTP (net/http) do controle de
// admissão multi-tenant.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (fingerprint, ledger, stats,
//     decisão, reputação, cache) sem dependência de net/http
//   - application: o caso de uso Gate (passe de admissão completo,
//     fail-open) sem net/http
//   - infra: implementações concretas (memória, Postgres, Redis, bloom,
//     token bucket, semáforo)
//   - admission (este pacote): autenticação por api key, extração de
//     fingerprint, handlers /v1, proxy reverso por tenant, métricas e o
//     feed de decisões via websocket
//
// Fluxo no gateway em /proxy/*:
//
//  1. Resolve o tenant pela x-api-key (401 se ausente/inválida)
//  2. Extrai o fingerprint da requisição
//  3. Gate.Admit: cache negativo → ledger → stats → decisão → reputação
//  4. ALLOW encaminha ao origin do tenant; CHALLENGE responde 401;
//     BLOCK responde 403 (local, cacheado ou por reputação)
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o
// comportamento, como CACHE_TTL, EVENT_RETENTION_CAP, BLOCK_SCORE,
// RATE_RPS e CONCURRENCY_MAX.
package admission
