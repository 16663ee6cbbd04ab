package domain

import (
	"context"
	"errors"
)

// Tenant é um registro do cadastro de tenants. O core só lê: nunca altera
// ID nem Origin, que são confiados como vieram do cadastro.
type Tenant struct {
	ID     string
	Name   string
	APIKey string
	Origin string
}

var (
	// ErrTenantNotFound indica api key sem tenant correspondente.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrDuplicateTenant indica colisão de id ou de api key no cadastro.
	ErrDuplicateTenant = errors.New("duplicate tenant")
)

// TenantStore é o cadastro de tenants visto pelo gateway.
//
// Implementações podem guardar em memória ou em Postgres; o core trata o
// cadastro como colaborador externo (read-mostly).
type TenantStore interface {
	GetByAPIKey(ctx context.Context, apiKey string) (Tenant, error)
	Add(ctx context.Context, t Tenant) error
	List(ctx context.Context) ([]Tenant, error)
}
