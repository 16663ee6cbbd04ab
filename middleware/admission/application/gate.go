package application

import (
	"context"
	"sync"
	"time"

	"admission-gateway/middleware/admission/domain"

	"github.com/rs/zerolog"
)

// ReasonCachedBlock marca rejeições servidas pelo cache negativo, sem
// reavaliar o histórico.
const ReasonCachedBlock = "cached_block"

// Outcome é o resultado final de um passe de admissão.
type Outcome struct {
	// Action é o veredito final (decisão local combinada com reputação
	// global e cache). Pode diferir de Decision.Verdict.
	Action      domain.Verdict
	Decision    domain.Decision
	Stats       domain.Stats
	GlobalScore int
	// FromCache indica rejeição via cache negativo (ledger, stats e
	// reputação nem foram consultados).
	FromCache bool
}

// Gate orquestra o passe de admissão: cache negativo, ledger, estatística,
// decisão e reputação global. Uma chamada de Admit por requisição.
//
// Falhas de ledger/reputação/cache são absorvidas aqui (fail-open): na
// dúvida, o tráfego passa. Um detector degradado só pode sub-bloquear,
// nunca sobre-bloquear. Só as escritas side-effect (increment, cache de
// BLOCK) dependem de o passe rodar até o fim.
type Gate struct {
	Ledger     domain.EventLedger
	Reputation domain.ReputationStore
	Cache      domain.VerdictCache

	// Policy é a tabela de cortes local. Zero value usa DefaultPolicy.
	Policy domain.Policy
	// CacheTTL das marcas de BLOCK. Zero usa domain.DefaultCacheTTL.
	CacheTTL time.Duration
	// ReputationIncrement aplicado uma vez por BLOCK local. Zero usa 15.
	ReputationIncrement int
	// BlockThreshold: score global acima disso força BLOCK. Zero usa 50.
	BlockThreshold int
	// CallTimeout limita cada chamada a ledger/reputação/cache.
	// Zero usa 2s. Timeout é tratado igual a falha de datastore.
	CallTimeout time.Duration

	Logger zerolog.Logger

	// OnOutcome, se definido, recebe cada resultado (métricas, feed).
	OnOutcome func(tenantID string, fp domain.Fingerprint, out Outcome)
	// OnStoreFailure, se definido, recebe cada falha de colaborador
	// absorvida pelo passe (op: cache_read, ledger_record, ledger_read,
	// reputation_read, reputation_increment, cache_write).
	OnStoreFailure func(op string)
}

func (g *Gate) storeFailed(op string) {
	if g.OnStoreFailure != nil {
		g.OnStoreFailure(op)
	}
}

func (g *Gate) policy() domain.Policy {
	if g.Policy == (domain.Policy{}) {
		return domain.DefaultPolicy()
	}
	return g.Policy
}

func (g *Gate) cacheTTL() time.Duration {
	if g.CacheTTL <= 0 {
		return domain.DefaultCacheTTL
	}
	return g.CacheTTL
}

func (g *Gate) increment() int {
	if g.ReputationIncrement <= 0 {
		return 15
	}
	return g.ReputationIncrement
}

func (g *Gate) blockThreshold() int {
	if g.BlockThreshold <= 0 {
		return 50
	}
	return g.BlockThreshold
}

func (g *Gate) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := g.CallTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// Admit roda o passe completo para um fingerprint já extraído.
// Nunca falha: toda falha de colaborador vira resultado degradado.
func (g *Gate) Admit(ctx context.Context, tenantID string, fp domain.Fingerprint) Outcome {
	ip := fp.IP

	// 1) fast path: cache negativo (erro = miss)
	if g.Cache != nil {
		cctx, cancel := g.callCtx(ctx)
		hit, err := g.Cache.CachedBlock(cctx, ip)
		cancel()
		if err != nil {
			g.Logger.Warn().Err(err).Str("ip", ip).Msg("verdict cache read failed, treating as miss")
			g.storeFailed("cache_read")
		} else if hit {
			out := Outcome{
				Action:    domain.VerdictBlock,
				Decision:  domain.Decision{Verdict: domain.VerdictBlock, Reasons: []string{ReasonCachedBlock}},
				FromCache: true,
			}
			g.emit(tenantID, fp, out)
			return out
		}
	}

	// 2) grava o evento; falha aqui não aborta o passe
	if g.Ledger != nil {
		cctx, cancel := g.callCtx(ctx)
		if err := g.Ledger.Record(cctx, tenantID, ip, fp); err != nil {
			g.Logger.Warn().Err(err).Str("tenant", tenantID).Str("ip", ip).Msg("ledger record failed, continuing with partial window")
			g.storeFailed("ledger_record")
		}
		cancel()
	}

	// 3) janela local e score global em paralelo; ambos antes de pontuar
	var (
		events      []domain.Fingerprint
		globalScore int
		wg          sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if g.Ledger == nil {
			return
		}
		cctx, cancel := g.callCtx(ctx)
		defer cancel()
		evs, err := g.Ledger.Read(cctx, tenantID, ip)
		if err != nil {
			g.Logger.Warn().Err(err).Str("tenant", tenantID).Str("ip", ip).Msg("ledger read failed, scoring empty window")
			g.storeFailed("ledger_read")
			return
		}
		events = evs
	}()
	go func() {
		defer wg.Done()
		if g.Reputation == nil {
			return
		}
		cctx, cancel := g.callCtx(ctx)
		defer cancel()
		score, err := g.Reputation.Score(cctx, ip)
		if err != nil {
			g.Logger.Warn().Err(err).Str("ip", ip).Msg("reputation read failed, assuming zero")
			g.storeFailed("reputation_read")
			return
		}
		globalScore = score
	}()
	wg.Wait()

	// 4) pontuação local (pura)
	stats := domain.ComputeStats(events)
	decision := g.policy().Decide(stats)

	// 5) combinação com o sinal global
	action := decision.Verdict
	if globalScore > g.blockThreshold() {
		action = domain.VerdictBlock
	}

	// incremento só no BLOCK local, uma vez por veredito
	if decision.Verdict == domain.VerdictBlock && g.Reputation != nil {
		cctx, cancel := g.callCtx(ctx)
		if err := g.Reputation.Increment(cctx, ip, g.increment()); err != nil {
			g.Logger.Warn().Err(err).Str("ip", ip).Msg("reputation increment failed")
			g.storeFailed("reputation_increment")
		}
		cancel()
	}

	// qualquer BLOCK final vira marca no cache negativo
	if action == domain.VerdictBlock && g.Cache != nil {
		cctx, cancel := g.callCtx(ctx)
		if err := g.Cache.CacheBlock(cctx, ip, g.cacheTTL()); err != nil {
			g.Logger.Warn().Err(err).Str("ip", ip).Msg("verdict cache write failed")
			g.storeFailed("cache_write")
		}
		cancel()
	}

	out := Outcome{
		Action:      action,
		Decision:    decision,
		Stats:       stats,
		GlobalScore: globalScore,
	}
	g.emit(tenantID, fp, out)
	return out
}

func (g *Gate) emit(tenantID string, fp domain.Fingerprint, out Outcome) {
	if g.OnOutcome != nil {
		g.OnOutcome(tenantID, fp, out)
	}
}
