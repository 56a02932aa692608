package billing

import (
	"context"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/identity"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock implementations

type mockPlanRepository struct {
	mock.Mock
}

func (m *mockPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Plan), args.Error(1)
}

func (m *mockPlanRepository) FindByCode(ctx context.Context, code string) (*billing.Plan, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Plan), args.Error(1)
}

func (m *mockPlanRepository) FindAll(ctx context.Context, filter billing.PlanFilter) ([]billing.Plan, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]billing.Plan), args.Get(1).(int64), args.Error(2)
}

func (m *mockPlanRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *mockPlanRepository) Save(ctx context.Context, plan *billing.Plan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *mockPlanRepository) Update(ctx context.Context, plan *billing.Plan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

type mockPlanCache struct {
	mock.Mock
}

func (m *mockPlanCache) Get(ctx context.Context, id uuid.UUID) (*billing.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Plan), args.Error(1)
}

func (m *mockPlanCache) Set(ctx context.Context, plan *billing.Plan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *mockPlanCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockPlanProvider struct {
	mock.Mock
}

func (m *mockPlanProvider) GetPlan(ctx context.Context, id uuid.UUID) (*billing.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Plan), args.Error(1)
}

type mockTenantRepository struct {
	mock.Mock
}

func (m *mockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *mockTenantRepository) FindByCode(ctx context.Context, code string) (*identity.Tenant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *mockTenantRepository) FindAll(ctx context.Context, filter identity.TenantFilter) ([]identity.Tenant, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]identity.Tenant), args.Get(1).(int64), args.Error(2)
}

func (m *mockTenantRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]identity.Tenant, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *mockTenantRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *mockTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *mockTenantRepository) Update(ctx context.Context, tenant *identity.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

type mockMembershipRepository struct {
	mock.Mock
}

func (m *mockMembershipRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*identity.Membership, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Membership), args.Error(1)
}

func (m *mockMembershipRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, filter identity.MembershipFilter) ([]identity.Membership, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]identity.Membership), args.Get(1).(int64), args.Error(2)
}

func (m *mockMembershipRepository) CountActive(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockMembershipRepository) ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error) {
	args := m.Called(ctx, tenantID, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockMembershipRepository) Save(ctx context.Context, membership *identity.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *mockMembershipRepository) Update(ctx context.Context, membership *identity.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

type mockInvoiceRepository struct {
	mock.Mock
}

func (m *mockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.BillingInvoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.BillingInvoice), args.Error(1)
}

func (m *mockInvoiceRepository) FindByTenantAndPeriod(ctx context.Context, tenantID uuid.UUID, period string) (*billing.BillingInvoice, error) {
	args := m.Called(ctx, tenantID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.BillingInvoice), args.Error(1)
}

func (m *mockInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]billing.BillingInvoice, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]billing.BillingInvoice), args.Get(1).(int64), args.Error(2)
}

func (m *mockInvoiceRepository) Save(ctx context.Context, invoice *billing.BillingInvoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *mockInvoiceRepository) Update(ctx context.Context, invoice *billing.BillingInvoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

type mockInvoiceIssuer struct {
	mock.Mock
}

func (m *mockInvoiceIssuer) IssueForPeriod(ctx context.Context, tenant *identity.Tenant, period billing.Period) (*billing.BillingInvoice, error) {
	args := m.Called(ctx, tenant, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.BillingInvoice), args.Error(1)
}

func (m *mockInvoiceIssuer) AdvanceTenant(ctx context.Context, tenant *identity.Tenant, period billing.Period) error {
	args := m.Called(ctx, tenant, period)
	return args.Error(0)
}
