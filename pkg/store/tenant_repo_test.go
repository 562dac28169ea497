package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/taxpoynt/core/pkg/tenant"
)

func TestTenantRepoLoadAppliesTierDefaultsAndOverride(t *testing.T) {
	engine, mock := newMockEngine(t)
	repo := NewTenantRepo(engine)

	rows := sqlmock.NewRows([]string{"id", "tier", "billing_state", "service_classes", "is_active"}).
		AddRow("tenant-a", "professional", "active", `["SI","APP"]`, true)
	mock.ExpectQuery("SELECT \\* FROM organizations").WillReturnRows(rows)

	quotaRows := sqlmock.NewRows([]string{"limit"}).AddRow(50000)
	mock.ExpectQuery("SELECT \"limit\" FROM tenant_quotas").WillReturnRows(quotaRows)

	cfg, err := repo.Load(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Tier != tenant.TierProfessional {
		t.Fatalf("expected tier professional, got %s", cfg.Tier)
	}
	if cfg.InvoiceCeilingMonth != 50000 {
		t.Fatalf("expected invoice ceiling override 50000, got %d", cfg.InvoiceCeilingMonth)
	}
	if !cfg.HasServiceClass(tenant.ServiceClassSI) || !cfg.HasServiceClass(tenant.ServiceClassAPP) {
		t.Fatalf("expected both SI and APP service classes, got %v", cfg.ServiceClasses)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestTenantRepoLoadRejectsUnknownTenant(t *testing.T) {
	engine, mock := newMockEngine(t)
	repo := NewTenantRepo(engine)

	mock.ExpectQuery("SELECT \\* FROM organizations").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.Load(context.Background(), "ghost"); err == nil {
		t.Fatal("expected an error for an unknown/inactive tenant")
	}
}
