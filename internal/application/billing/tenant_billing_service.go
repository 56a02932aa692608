package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/identity"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TenantBillingService manages the billing side of tenants: their plan,
// billing frequency and anchor dates, and the memberships they are billed for.
type TenantBillingService struct {
	tenantRepo     identity.TenantRepository
	membershipRepo identity.MembershipRepository
	plans          PlanProvider
	publisher      shared.EventPublisher
	logger         *zap.Logger
	opts           options
}

// NewTenantBillingService creates a new tenant billing service. publisher may be nil.
func NewTenantBillingService(
	tenantRepo identity.TenantRepository,
	membershipRepo identity.MembershipRepository,
	plans PlanProvider,
	publisher shared.EventPublisher,
	logger *zap.Logger,
	opts ...Option,
) *TenantBillingService {
	return &TenantBillingService{
		tenantRepo:     tenantRepo,
		membershipRepo: membershipRepo,
		plans:          plans,
		publisher:      publisher,
		logger:         logger,
		opts:           newOptions(opts),
	}
}

// CreateTenant creates a tenant on an active plan and derives its billing anchor
func (s *TenantBillingService) CreateTenant(ctx context.Context, input CreateTenantInput) (*TenantDTO, error) {
	s.logger.Info("Creating tenant",
		zap.String("code", input.Code),
		zap.String("billing_frequency", input.BillingFrequency))

	frequency, err := billing.ParseFrequency(input.BillingFrequency)
	if err != nil {
		return nil, err
	}
	if _, err := s.activePlan(ctx, input.PlanID); err != nil {
		return nil, err
	}

	now := s.opts.now()
	tenant, err := identity.NewTenant(input.Code, input.Name, input.PlanID, frequency, now)
	if err != nil {
		return nil, err
	}
	if err := tenant.SetContactEmail(input.ContactEmail); err != nil {
		return nil, err
	}

	exists, err := s.tenantRepo.ExistsByCode(ctx, tenant.Code)
	if err != nil {
		s.logger.Error("Failed to check tenant code existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check code availability")
	}
	if exists {
		return nil, shared.ErrAlreadyExists.Withf("Tenant code %s already exists", tenant.Code)
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, err
		}
		s.logger.Error("Failed to create tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create tenant")
	}
	s.publish(ctx, tenant)

	s.logger.Info("Tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("code", tenant.Code),
		zap.Time("next_invoice_at", tenant.NextInvoiceAt))

	return toTenantDTO(tenant), nil
}

// GetTenant retrieves a tenant by ID
func (s *TenantBillingService) GetTenant(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.loadTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTenantDTO(tenant), nil
}

// ListTenants retrieves a paginated list of tenants
func (s *TenantBillingService) ListTenants(ctx context.Context, filter ListFilter, planID *uuid.UUID) (*shared.Paginated[TenantDTO], error) {
	tenantFilter := identity.TenantFilter{Filter: filter.ToSharedFilter(), PlanID: planID}
	if filter.Status != "" {
		status := identity.TenantStatus(filter.Status)
		if !status.IsValid() {
			return nil, shared.ErrInvalidInput.Withf("Invalid tenant status %q", filter.Status)
		}
		tenantFilter.Status = &status
	}

	tenants, total, err := s.tenantRepo.FindAll(ctx, tenantFilter)
	if err != nil {
		s.logger.Error("Failed to list tenants", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list tenants")
	}

	result := shared.NewPaginated(mapSlice(tenants, toTenantDTO), total, tenantFilter.Page, tenantFilter.PageSize)
	return &result, nil
}

// ChangeBillingFrequency switches a tenant between monthly and annual billing.
// The anchor is re-derived from the tenant's creation date and the next due date from the current time.
func (s *TenantBillingService) ChangeBillingFrequency(ctx context.Context, id uuid.UUID, frequency string) (*TenantDTO, error) {
	freq, err := billing.ParseFrequency(frequency)
	if err != nil {
		return nil, err
	}
	tenant, err := s.loadTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tenant.ChangeBillingFrequency(freq, s.opts.now()); err != nil {
		return nil, err
	}
	if err := s.updateTenant(ctx, tenant); err != nil {
		return nil, err
	}

	s.logger.Info("Tenant billing frequency changed",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("billing_frequency", freq.String()),
		zap.Time("next_invoice_at", tenant.NextInvoiceAt))

	return toTenantDTO(tenant), nil
}

// ChangePlan moves a tenant to another active plan
func (s *TenantBillingService) ChangePlan(ctx context.Context, id, planID uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.loadTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.activePlan(ctx, planID); err != nil {
		return nil, err
	}

	if err := tenant.ChangePlan(planID, s.opts.now()); err != nil {
		return nil, err
	}
	if err := s.updateTenant(ctx, tenant); err != nil {
		return nil, err
	}
	return toTenantDTO(tenant), nil
}

// SuspendTenant stops billing a tenant
func (s *TenantBillingService) SuspendTenant(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.loadTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tenant.Suspend(s.opts.now()); err != nil {
		return nil, err
	}
	if err := s.updateTenant(ctx, tenant); err != nil {
		return nil, err
	}
	return toTenantDTO(tenant), nil
}

// ActivateTenant resumes billing a suspended tenant
func (s *TenantBillingService) ActivateTenant(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.loadTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tenant.Activate(s.opts.now()); err != nil {
		return nil, err
	}
	if err := s.updateTenant(ctx, tenant); err != nil {
		return nil, err
	}
	return toTenantDTO(tenant), nil
}

// AddMember adds an active member to a tenant. When the tenant is already at or
// beyond its plan's included users the result carries the plan's creation fee.
func (s *TenantBillingService) AddMember(ctx context.Context, tenantID uuid.UUID, input AddMemberInput) (*AddMemberResult, error) {
	tenant, err := s.loadTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.GetPlan(ctx, tenant.PlanID)
	if err != nil {
		return nil, err
	}

	member, err := identity.NewMembership(tenant.ID, input.Email, input.Name, identity.MembershipRole(input.Role), s.opts.now())
	if err != nil {
		return nil, err
	}

	exists, err := s.membershipRepo.ExistsByEmail(ctx, tenant.ID, member.Email)
	if err != nil {
		s.logger.Error("Failed to check member existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check member")
	}
	if exists {
		return nil, shared.ErrAlreadyExists.Withf("Member %s already exists", member.Email)
	}

	active, err := s.membershipRepo.CountActive(ctx, tenant.ID)
	if err != nil {
		s.logger.Error("Failed to count active members", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count members")
	}

	if err := s.membershipRepo.Save(ctx, member); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, err
		}
		s.logger.Error("Failed to add member", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to add member")
	}

	fee := decimal.Zero
	if active+1 > int64(plan.IncludedUsers) {
		fee = plan.ExtraUserCreationCharge(1).Amount()
	}

	s.logger.Info("Member added",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("member_id", member.ID.String()),
		zap.Int64("active_users", active+1),
		zap.String("creation_fee", fee.String()))

	return &AddMemberResult{
		Member:      *toMemberDTO(member),
		ActiveUsers: active + 1,
		CreationFee: fee,
		Currency:    string(plan.Currency),
	}, nil
}

// DisableMember stops a membership from counting as an active user
func (s *TenantBillingService) DisableMember(ctx context.Context, tenantID, memberID uuid.UUID) (*MemberDTO, error) {
	member, err := s.membershipRepo.FindByID(ctx, tenantID, memberID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound.Withf("Member not found")
		}
		s.logger.Error("Failed to find member", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find member")
	}

	if err := member.Disable(s.opts.now()); err != nil {
		return nil, err
	}
	if err := s.membershipRepo.Update(ctx, member); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}
		s.logger.Error("Failed to disable member", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to disable member")
	}
	return toMemberDTO(member), nil
}

// ListMembers lists a tenant's memberships
func (s *TenantBillingService) ListMembers(ctx context.Context, tenantID uuid.UUID, filter ListFilter) (*shared.Paginated[MemberDTO], error) {
	if _, err := s.loadTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	memberFilter := identity.MembershipFilter{Filter: filter.ToSharedFilter()}
	if filter.Status != "" {
		status := identity.MembershipStatus(filter.Status)
		memberFilter.Status = &status
	}

	members, total, err := s.membershipRepo.FindByTenant(ctx, tenantID, memberFilter)
	if err != nil {
		s.logger.Error("Failed to list members", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list members")
	}

	result := shared.NewPaginated(mapSlice(members, toMemberDTO), total, memberFilter.Page, memberFilter.PageSize)
	return &result, nil
}

// CheckModuleAccess reports whether the tenant's plan includes module.
// Suspended tenants are denied every module.
func (s *TenantBillingService) CheckModuleAccess(ctx context.Context, tenantID uuid.UUID, module string) (*ModuleAccessDTO, error) {
	if strings.TrimSpace(module) == "" {
		return nil, shared.ErrInvalidInput.Withf("Module is required")
	}
	tenant, err := s.loadTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.GetPlan(ctx, tenant.PlanID)
	if err != nil {
		return nil, err
	}

	access := &ModuleAccessDTO{
		TenantID: tenant.ID,
		PlanCode: plan.Code,
		Module:   strings.ToLower(strings.TrimSpace(module)),
		Granted:  tenant.IsActive() && plan.HasModule(module),
	}
	switch {
	case !tenant.IsActive():
		access.Reason = "tenant is " + string(tenant.Status)
	case !access.Granted:
		access.Reason = "module not included in plan " + plan.Code
	}
	return access, nil
}

func (s *TenantBillingService) activePlan(ctx context.Context, planID uuid.UUID) (*billing.Plan, error) {
	if planID == uuid.Nil {
		return nil, shared.ErrInvalidInput.Withf("Plan ID is required")
	}
	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, shared.ErrInvalidState.Withf("Plan %s is not active", plan.Code)
	}
	return plan, nil
}

func (s *TenantBillingService) loadTenant(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound.Withf("Tenant not found")
		}
		s.logger.Error("Failed to find tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}
	return tenant, nil
}

func (s *TenantBillingService) updateTenant(ctx context.Context, tenant *identity.Tenant) error {
	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		s.logger.Error("Failed to update tenant", zap.String("tenant_id", tenant.ID.String()), zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to update tenant")
	}
	s.publish(ctx, tenant)
	return nil
}

func (s *TenantBillingService) publish(ctx context.Context, tenant *identity.Tenant) {
	events := tenant.GetDomainEvents()
	tenant.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish tenant events",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err))
	}
}
