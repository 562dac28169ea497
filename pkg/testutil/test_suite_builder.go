package testutil

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/taxpoynt/core/pkg/tenant"
)

// TestSuiteBuilder provides a fluent interface for wiring up the shared
// collaborators a stage, customer-matching, or tenant spec needs, so each
// Ginkgo suite doesn't hand-roll its own BeforeEach/AfterEach.
type TestSuiteBuilder struct {
	suiteName    string
	withTenant   bool
	tenantLoader tenant.Loader
	customSetup  []func() error
	customCleanup []func() error
}

// TestSuiteComponents holds the components a built suite provisioned.
type TestSuiteComponents struct {
	Context context.Context
	Logger  logr.Logger
	Tenant  *tenant.Manager
}

// NewTestSuiteBuilder creates a new test suite builder for suiteName.
func NewTestSuiteBuilder(suiteName string) *TestSuiteBuilder {
	return &TestSuiteBuilder{
		suiteName:     suiteName,
		customSetup:   make([]func() error, 0),
		customCleanup: make([]func() error, 0),
	}
}

// WithTenantManager enables provisioning of a tenant.Manager backed by
// loader. If loader is nil, every tenant resolves to the starter fixture
// from TestDataFactory.
func (b *TestSuiteBuilder) WithTenantManager(loader tenant.Loader) *TestSuiteBuilder {
	b.withTenant = true
	b.tenantLoader = loader
	return b
}

// WithCustomSetup adds a custom setup function run after the standard
// components are provisioned.
func (b *TestSuiteBuilder) WithCustomSetup(setupFunc func() error) *TestSuiteBuilder {
	b.customSetup = append(b.customSetup, setupFunc)
	return b
}

// WithCustomCleanup adds a custom cleanup function run before the standard
// components are torn down.
func (b *TestSuiteBuilder) WithCustomCleanup(cleanupFunc func() error) *TestSuiteBuilder {
	b.customCleanup = append(b.customCleanup, cleanupFunc)
	return b
}

// Build registers BeforeEach/AfterEach against the enclosing Ginkgo node
// and returns the components they will populate.
func (b *TestSuiteBuilder) Build() *TestSuiteComponents {
	components := &TestSuiteComponents{}

	BeforeEach(func() {
		components.Context = context.Background()
		components.Logger = logr.Discard()

		if b.withTenant {
			loader := b.tenantLoader
			if loader == nil {
				factory := NewTestDataFactory()
				loader = func(ctx context.Context, tenantID string) (tenant.Configuration, error) {
					cfg := factory.CreateStarterTenant()
					cfg.TenantID = tenantID
					return cfg, nil
				}
			}
			components.Tenant = tenant.NewManager(loader, time.Now)
		}

		for _, setupFunc := range b.customSetup {
			err := setupFunc()
			gomega.Expect(err).NotTo(gomega.HaveOccurred(), "custom setup function failed")
		}
	})

	AfterEach(func() {
		for _, cleanupFunc := range b.customCleanup {
			err := cleanupFunc()
			gomega.Expect(err).NotTo(gomega.HaveOccurred(), "custom cleanup function failed")
		}
	})

	return components
}

// StandardUnitTestSuite provisions context and logger only.
func StandardUnitTestSuite(suiteName string) *TestSuiteComponents {
	return NewTestSuiteBuilder(suiteName).Build()
}

// TenantScopedTestSuite provisions context, logger, and a tenant.Manager
// seeded with starter-tier fixtures, for specs exercising tenant-scoped
// behavior without a real configuration store behind it.
func TenantScopedTestSuite(suiteName string) *TestSuiteComponents {
	return NewTestSuiteBuilder(suiteName).
		WithTenantManager(nil).
		Build()
}
