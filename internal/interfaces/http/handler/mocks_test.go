package handler

import (
	"context"

	"github.com/erp/billing/internal/application/billing"
	domain "github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockPlanService struct {
	mock.Mock
}

func (m *mockPlanService) Create(ctx context.Context, input billing.PlanInput) (*billing.PlanDTO, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PlanDTO), args.Error(1)
}

func (m *mockPlanService) Update(ctx context.Context, id uuid.UUID, input billing.PlanInput) (*billing.PlanDTO, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PlanDTO), args.Error(1)
}

func (m *mockPlanService) Activate(ctx context.Context, id uuid.UUID) (*billing.PlanDTO, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PlanDTO), args.Error(1)
}

func (m *mockPlanService) Deactivate(ctx context.Context, id uuid.UUID) (*billing.PlanDTO, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PlanDTO), args.Error(1)
}

func (m *mockPlanService) GetByID(ctx context.Context, id uuid.UUID) (*billing.PlanDTO, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PlanDTO), args.Error(1)
}

func (m *mockPlanService) GetByCode(ctx context.Context, code string) (*billing.PlanDTO, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PlanDTO), args.Error(1)
}

func (m *mockPlanService) List(ctx context.Context, filter billing.ListFilter) (*shared.Paginated[billing.PlanDTO], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[billing.PlanDTO]), args.Error(1)
}

type mockTenantService struct {
	mock.Mock
}

func (m *mockTenantService) tenant(args mock.Arguments) (*billing.TenantDTO, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.TenantDTO), args.Error(1)
}

func (m *mockTenantService) CreateTenant(ctx context.Context, input billing.CreateTenantInput) (*billing.TenantDTO, error) {
	return m.tenant(m.Called(ctx, input))
}

func (m *mockTenantService) GetTenant(ctx context.Context, id uuid.UUID) (*billing.TenantDTO, error) {
	return m.tenant(m.Called(ctx, id))
}

func (m *mockTenantService) ListTenants(ctx context.Context, filter billing.ListFilter, planID *uuid.UUID) (*shared.Paginated[billing.TenantDTO], error) {
	args := m.Called(ctx, filter, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[billing.TenantDTO]), args.Error(1)
}

func (m *mockTenantService) ChangeBillingFrequency(ctx context.Context, id uuid.UUID, frequency string) (*billing.TenantDTO, error) {
	return m.tenant(m.Called(ctx, id, frequency))
}

func (m *mockTenantService) ChangePlan(ctx context.Context, id, planID uuid.UUID) (*billing.TenantDTO, error) {
	return m.tenant(m.Called(ctx, id, planID))
}

func (m *mockTenantService) SuspendTenant(ctx context.Context, id uuid.UUID) (*billing.TenantDTO, error) {
	return m.tenant(m.Called(ctx, id))
}

func (m *mockTenantService) ActivateTenant(ctx context.Context, id uuid.UUID) (*billing.TenantDTO, error) {
	return m.tenant(m.Called(ctx, id))
}

func (m *mockTenantService) AddMember(ctx context.Context, tenantID uuid.UUID, input billing.AddMemberInput) (*billing.AddMemberResult, error) {
	args := m.Called(ctx, tenantID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.AddMemberResult), args.Error(1)
}

func (m *mockTenantService) DisableMember(ctx context.Context, tenantID, memberID uuid.UUID) (*billing.MemberDTO, error) {
	args := m.Called(ctx, tenantID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.MemberDTO), args.Error(1)
}

func (m *mockTenantService) ListMembers(ctx context.Context, tenantID uuid.UUID, filter billing.ListFilter) (*shared.Paginated[billing.MemberDTO], error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[billing.MemberDTO]), args.Error(1)
}

func (m *mockTenantService) CheckModuleAccess(ctx context.Context, tenantID uuid.UUID, module string) (*billing.ModuleAccessDTO, error) {
	args := m.Called(ctx, tenantID, module)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ModuleAccessDTO), args.Error(1)
}

type mockInvoiceService struct {
	mock.Mock
}

func (m *mockInvoiceService) invoice(args mock.Arguments) (*billing.InvoiceDTO, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.InvoiceDTO), args.Error(1)
}

func (m *mockInvoiceService) Preview(ctx context.Context, tenantID uuid.UUID, period string) (*domain.BillingPreview, error) {
	args := m.Called(ctx, tenantID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingPreview), args.Error(1)
}

func (m *mockInvoiceService) CreateInvoice(ctx context.Context, tenantID uuid.UUID, period string) (*billing.InvoiceDTO, error) {
	return m.invoice(m.Called(ctx, tenantID, period))
}

func (m *mockInvoiceService) MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string) (*billing.InvoiceDTO, error) {
	return m.invoice(m.Called(ctx, id, paymentRef))
}

func (m *mockInvoiceService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*billing.InvoiceDTO, error) {
	return m.invoice(m.Called(ctx, id, reason))
}

func (m *mockInvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*billing.InvoiceDTO, error) {
	return m.invoice(m.Called(ctx, id))
}

func (m *mockInvoiceService) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter billing.ListFilter, period string) (*shared.Paginated[billing.InvoiceDTO], error) {
	args := m.Called(ctx, tenantID, filter, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[billing.InvoiceDTO]), args.Error(1)
}

type mockBillingRunTrigger struct {
	mock.Mock
}

func (m *mockBillingRunTrigger) RunNow(ctx context.Context) (*billing.RunSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.RunSummary), args.Error(1)
}
