package handler

import (
	"context"

	"github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TenantService is the tenant billing surface used by TenantHandler
type TenantService interface {
	CreateTenant(ctx context.Context, input billing.CreateTenantInput) (*billing.TenantDTO, error)
	GetTenant(ctx context.Context, id uuid.UUID) (*billing.TenantDTO, error)
	ListTenants(ctx context.Context, filter billing.ListFilter, planID *uuid.UUID) (*shared.Paginated[billing.TenantDTO], error)
	ChangeBillingFrequency(ctx context.Context, id uuid.UUID, frequency string) (*billing.TenantDTO, error)
	ChangePlan(ctx context.Context, id, planID uuid.UUID) (*billing.TenantDTO, error)
	SuspendTenant(ctx context.Context, id uuid.UUID) (*billing.TenantDTO, error)
	ActivateTenant(ctx context.Context, id uuid.UUID) (*billing.TenantDTO, error)
	AddMember(ctx context.Context, tenantID uuid.UUID, input billing.AddMemberInput) (*billing.AddMemberResult, error)
	DisableMember(ctx context.Context, tenantID, memberID uuid.UUID) (*billing.MemberDTO, error)
	ListMembers(ctx context.Context, tenantID uuid.UUID, filter billing.ListFilter) (*shared.Paginated[billing.MemberDTO], error)
	CheckModuleAccess(ctx context.Context, tenantID uuid.UUID, module string) (*billing.ModuleAccessDTO, error)
}

// CreateTenantRequest represents the request body for creating a tenant
type CreateTenantRequest struct {
	Code             string    `json:"code" binding:"required,min=2,max=50"`
	Name             string    `json:"name" binding:"required,min=1,max=200"`
	ContactEmail     string    `json:"contact_email" binding:"omitempty,email,max=200"`
	PlanID           uuid.UUID `json:"plan_id" binding:"required"`
	BillingFrequency string    `json:"billing_frequency" binding:"required,frequency"`
}

// ChangeFrequencyRequest switches a tenant's billing frequency
type ChangeFrequencyRequest struct {
	BillingFrequency string `json:"billing_frequency" binding:"required,frequency"`
}

// ChangePlanRequest moves a tenant to another plan
type ChangePlanRequest struct {
	PlanID uuid.UUID `json:"plan_id" binding:"required"`
}

// AddMemberRequest adds a user to a tenant
type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email,max=200"`
	Name  string `json:"name" binding:"omitempty,max=200"`
	Role  string `json:"role" binding:"omitempty,oneof=owner admin member"`
}

// TenantListQuery extends ListQuery with a plan filter
type TenantListQuery struct {
	ListQuery
	PlanID string `form:"plan_id" binding:"omitempty,uuid"`
}

// TenantHandler handles tenant billing HTTP requests
type TenantHandler struct {
	BaseHandler
	tenantService TenantService
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenantService TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

// Create handles POST /billing/tenants
func (h *TenantHandler) Create(c *gin.Context) {
	var req CreateTenantRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tenant, err := h.tenantService.CreateTenant(c.Request.Context(), billing.CreateTenantInput{
		Code:             req.Code,
		Name:             req.Name,
		ContactEmail:     req.ContactEmail,
		PlanID:           req.PlanID,
		BillingFrequency: req.BillingFrequency,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, tenant)
}

// GetByID handles GET /billing/tenants/:id
func (h *TenantHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseID(c, "id", "tenant")
	if !ok {
		return
	}

	tenant, err := h.tenantService.GetTenant(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// List handles GET /billing/tenants
func (h *TenantHandler) List(c *gin.Context) {
	var query TenantListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	var planID *uuid.UUID
	if query.PlanID != "" {
		id := uuid.MustParse(query.PlanID)
		planID = &id
	}

	result, err := h.tenantService.ListTenants(c.Request.Context(), query.toFilter(), planID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	respondPage(&h.BaseHandler, c, result)
}

// ChangeFrequency handles PUT /billing/tenants/:id/frequency
func (h *TenantHandler) ChangeFrequency(c *gin.Context) {
	id, ok := h.ParseID(c, "id", "tenant")
	if !ok {
		return
	}

	var req ChangeFrequencyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tenant, err := h.tenantService.ChangeBillingFrequency(c.Request.Context(), id, req.BillingFrequency)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// ChangePlan handles PUT /billing/tenants/:id/plan
func (h *TenantHandler) ChangePlan(c *gin.Context) {
	id, ok := h.ParseID(c, "id", "tenant")
	if !ok {
		return
	}

	var req ChangePlanRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tenant, err := h.tenantService.ChangePlan(c.Request.Context(), id, req.PlanID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// Suspend handles POST /billing/tenants/:id/suspend
func (h *TenantHandler) Suspend(c *gin.Context) {
	h.setStatus(c, h.tenantService.SuspendTenant)
}

// Activate handles POST /billing/tenants/:id/activate
func (h *TenantHandler) Activate(c *gin.Context) {
	h.setStatus(c, h.tenantService.ActivateTenant)
}

func (h *TenantHandler) setStatus(c *gin.Context, fn func(context.Context, uuid.UUID) (*billing.TenantDTO, error)) {
	id, ok := h.ParseID(c, "id", "tenant")
	if !ok {
		return
	}

	tenant, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// AddMember handles POST /billing/tenants/:id/members
func (h *TenantHandler) AddMember(c *gin.Context) {
	tenantID, ok := h.ParseID(c, "id", "tenant")
	if !ok {
		return
	}

	var req AddMemberRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.tenantService.AddMember(c.Request.Context(), tenantID, billing.AddMemberInput{
		Email: req.Email,
		Name:  req.Name,
		Role:  req.Role,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// ListMembers handles GET /billing/tenants/:id/members
func (h *TenantHandler) ListMembers(c *gin.Context) {
	tenantID, ok := h.ParseID(c, "id", "tenant")
	if !ok {
		return
	}

	var query ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	result, err := h.tenantService.ListMembers(c.Request.Context(), tenantID, query.toFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	respondPage(&h.BaseHandler, c, result)
}

// DisableMember handles POST /billing/tenants/:id/members/:member_id/disable
func (h *TenantHandler) DisableMember(c *gin.Context) {
	tenantID, ok := h.ParseID(c, "id", "tenant")
	if !ok {
		return
	}
	memberID, ok := h.ParseID(c, "member_id", "member")
	if !ok {
		return
	}

	member, err := h.tenantService.DisableMember(c.Request.Context(), tenantID, memberID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, member)
}

// ModuleAccess handles GET /billing/tenants/:id/modules/:module
func (h *TenantHandler) ModuleAccess(c *gin.Context) {
	tenantID, ok := h.ParseID(c, "id", "tenant")
	if !ok {
		return
	}

	access, err := h.tenantService.CheckModuleAccess(c.Request.Context(), tenantID, c.Param("module"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, access)
}
