package infra

import (
	"context"
	"errors"
	"testing"

	"admission-gateway/middleware/admission/domain"
)

func TestMemoryTenantStore_AddAndLookup(t *testing.T) {
	s := NewMemoryTenantStore()
	ctx := context.Background()

	err := s.Add(ctx, domain.Tenant{ID: "acme", Name: "Acme", APIKey: "k1", Origin: "http://acme.internal"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	got, err := s.GetByAPIKey(ctx, "k1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != "acme" || got.Origin != "http://acme.internal" {
		t.Fatalf("unexpected tenant %+v", got)
	}
}

func TestMemoryTenantStore_UnknownKey(t *testing.T) {
	s := NewMemoryTenantStore()

	_, err := s.GetByAPIKey(context.Background(), "nope")
	if !errors.Is(err, domain.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestMemoryTenantStore_RejectsDuplicates(t *testing.T) {
	s := NewMemoryTenantStore()
	ctx := context.Background()

	_ = s.Add(ctx, domain.Tenant{ID: "acme", APIKey: "k1"})

	if err := s.Add(ctx, domain.Tenant{ID: "acme", APIKey: "k2"}); !errors.Is(err, domain.ErrDuplicateTenant) {
		t.Fatalf("expected duplicate id rejected, got %v", err)
	}
	if err := s.Add(ctx, domain.Tenant{ID: "other", APIKey: "k1"}); !errors.Is(err, domain.ErrDuplicateTenant) {
		t.Fatalf("expected duplicate api key rejected, got %v", err)
	}
}

func TestMemoryTenantStore_ListIsSorted(t *testing.T) {
	s := NewMemoryTenantStore(
		domain.Tenant{ID: "zeta", APIKey: "k2"},
		domain.Tenant{ID: "acme", APIKey: "k1"},
	)

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "acme" || list[1].ID != "zeta" {
		t.Fatalf("expected sorted list [acme zeta], got %+v", list)
	}
}
