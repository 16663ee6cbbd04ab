package infra

import (
	"context"
	"time"

	"admission-gateway/middleware/admission/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger guarda o histórico na tabela events. O isolamento de
// tenant vem da própria chave da consulta (tenant_id AND ip).
//
// O cap é aplicado na leitura (ORDER BY ts DESC LIMIT cap) e um janitor
// apaga linhas fora do horizonte das janelas, então a tabela não cresce
// sem limite por chave ativa.
type PostgresLedger struct {
	pool         *pgxpool.Pool
	cap          int
	retention    time.Duration
	cleanupEvery time.Duration
}

type PostgresLedgerOption func(*PostgresLedger)

func WithPostgresRetentionCap(cap int) PostgresLedgerOption {
	return func(l *PostgresLedger) {
		if cap > 0 {
			l.cap = cap
		}
	}
}

// WithPostgresRowRetention controla a idade máxima das linhas mantidas
// pelo janitor. Precisa ser maior que a janela de 60s das estatísticas.
func WithPostgresRowRetention(d time.Duration) PostgresLedgerOption {
	return func(l *PostgresLedger) { l.retention = d }
}

func WithPostgresCleanupEvery(d time.Duration) PostgresLedgerOption {
	return func(l *PostgresLedger) { l.cleanupEvery = d }
}

func NewPostgresLedger(pool *pgxpool.Pool, opts ...PostgresLedgerOption) *PostgresLedger {
	l := &PostgresLedger{
		pool:         pool,
		cap:          domain.DefaultRetentionCap,
		retention:    10 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

const eventsSchema = `
CREATE TABLE IF NOT EXISTS events (
    id              BIGSERIAL PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    ip              TEXT NOT NULL,
    path            TEXT NOT NULL DEFAULT '',
    method          TEXT NOT NULL DEFAULT '',
    user_agent      TEXT NOT NULL DEFAULT '',
    referer         TEXT NOT NULL DEFAULT '',
    accept_language TEXT NOT NULL DEFAULT '',
    platform_hint   TEXT NOT NULL DEFAULT '',
    ts              TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS events_key_ts ON events (tenant_id, ip, ts DESC);
`

// EnsureSchema cria a tabela events se ainda não existir.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, eventsSchema)
	return err
}

func (l *PostgresLedger) Record(ctx context.Context, tenantID, ip string, fp domain.Fingerprint) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO events (tenant_id, ip, path, method, user_agent, referer, accept_language, platform_hint, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tenantID, ip, fp.Path, fp.Method, fp.UserAgent, fp.Referer, fp.AcceptLanguage, fp.PlatformHint, fp.Timestamp,
	)
	return err
}

func (l *PostgresLedger) Read(ctx context.Context, tenantID, ip string) ([]domain.Fingerprint, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT path, method, user_agent, referer, accept_language, platform_hint, ts
		FROM events
		WHERE tenant_id = $1 AND ip = $2
		ORDER BY ts DESC
		LIMIT $3`,
		tenantID, ip, l.cap,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var newestFirst []domain.Fingerprint
	for rows.Next() {
		fp := domain.Fingerprint{TenantID: tenantID, IP: ip}
		if err := rows.Scan(&fp.Path, &fp.Method, &fp.UserAgent, &fp.Referer, &fp.AcceptLanguage, &fp.PlatformHint, &fp.Timestamp); err != nil {
			return nil, err
		}
		newestFirst = append(newestFirst, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// contrato do ledger: mais antigo → mais novo
	for i, j := 0, len(newestFirst)-1; i < j; i, j = i+1, j-1 {
		newestFirst[i], newestFirst[j] = newestFirst[j], newestFirst[i]
	}
	return newestFirst, nil
}

func (l *PostgresLedger) Cleanup(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, `DELETE FROM events WHERE ts < $1`, time.Now().Add(-l.retention))
	return err
}

// StartJanitor apaga periodicamente linhas fora do horizonte de retenção.
func (l *PostgresLedger) StartJanitor(ctx context.Context) {
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
				_ = l.Cleanup(ctx)
			}
		}
	}()
}
