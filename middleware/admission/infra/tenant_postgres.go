package infra

import (
	"context"
	"errors"

	"admission-gateway/middleware/admission/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTenantStore guarda o cadastro na tabela tenants.
type PostgresTenantStore struct {
	pool *pgxpool.Pool
}

func NewPostgresTenantStore(pool *pgxpool.Pool) *PostgresTenantStore {
	return &PostgresTenantStore{pool: pool}
}

const tenantsSchema = `
CREATE TABLE IF NOT EXISTS tenants (
    id      TEXT PRIMARY KEY,
    name    TEXT NOT NULL,
    api_key TEXT NOT NULL UNIQUE,
    origin  TEXT NOT NULL
);
`

func (s *PostgresTenantStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, tenantsSchema)
	return err
}

func (s *PostgresTenantStore) GetByAPIKey(ctx context.Context, apiKey string) (domain.Tenant, error) {
	t := domain.Tenant{APIKey: apiKey}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, origin FROM tenants WHERE api_key = $1`, apiKey,
	).Scan(&t.ID, &t.Name, &t.Origin)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	if err != nil {
		return domain.Tenant{}, err
	}
	return t, nil
}

func (s *PostgresTenantStore) Add(ctx context.Context, t domain.Tenant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tenants (id, name, api_key, origin) VALUES ($1, $2, $3, $4)`,
		t.ID, t.Name, t.APIKey, t.Origin,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		// unique_violation em id ou api_key
		return domain.ErrDuplicateTenant
	}
	return err
}

func (s *PostgresTenantStore) List(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, api_key, origin FROM tenants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.APIKey, &t.Origin); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
