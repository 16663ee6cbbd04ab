package infra

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresReputation guarda o score global na tabela ip_reputation.
//
// O upsert soma o incremento dentro do próprio statement, então
// incrementos concorrentes de tenants diferentes são linearizados pelo
// banco; nenhum se perde.
type PostgresReputation struct {
	pool *pgxpool.Pool
}

func NewPostgresReputation(pool *pgxpool.Pool) *PostgresReputation {
	return &PostgresReputation{pool: pool}
}

const reputationSchema = `
CREATE TABLE IF NOT EXISTS ip_reputation (
    ip           TEXT PRIMARY KEY,
    global_score BIGINT NOT NULL DEFAULT 0,
    last_seen    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (r *PostgresReputation) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, reputationSchema)
	return err
}

func (r *PostgresReputation) Increment(ctx context.Context, ip string, amount int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ip_reputation (ip, global_score, last_seen)
		VALUES ($1, $2, now())
		ON CONFLICT (ip) DO UPDATE SET
			global_score = ip_reputation.global_score + EXCLUDED.global_score,
			last_seen = now()`,
		ip, amount,
	)
	return err
}

func (r *PostgresReputation) Score(ctx context.Context, ip string) (int, error) {
	var score int
	err := r.pool.QueryRow(ctx,
		`SELECT global_score FROM ip_reputation WHERE ip = $1`, ip,
	).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return score, nil
}
