package handler

import (
	"context"

	"github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanService is the plan management surface used by PlanHandler
type PlanService interface {
	Create(ctx context.Context, input billing.PlanInput) (*billing.PlanDTO, error)
	Update(ctx context.Context, id uuid.UUID, input billing.PlanInput) (*billing.PlanDTO, error)
	Activate(ctx context.Context, id uuid.UUID) (*billing.PlanDTO, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*billing.PlanDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*billing.PlanDTO, error)
	GetByCode(ctx context.Context, code string) (*billing.PlanDTO, error)
	List(ctx context.Context, filter billing.ListFilter) (*shared.Paginated[billing.PlanDTO], error)
}

// PlanRequest is the body of plan create and update requests.
// Amounts are decimals, sent either as JSON numbers or strings.
type PlanRequest struct {
	Code                 string          `json:"code" binding:"required,min=2,max=50"`
	Name                 string          `json:"name" binding:"required,min=1,max=200"`
	IncludedUsers        int             `json:"included_users" binding:"min=0"`
	PriceMonthly         decimal.Decimal `json:"price_monthly"`
	PriceYearly          decimal.Decimal `json:"price_yearly"`
	ExtraUserMonthlyFee  decimal.Decimal `json:"extra_user_monthly_fee"`
	ExtraUserCreationFee decimal.Decimal `json:"extra_user_creation_fee"`
	Currency             string          `json:"currency" binding:"omitempty,len=3"`
	Modules              []string        `json:"modules" binding:"omitempty,dive,min=1,max=50"`
}

// UpdatePlanRequest is PlanRequest without the immutable code
type UpdatePlanRequest struct {
	Name                 string          `json:"name" binding:"required,min=1,max=200"`
	IncludedUsers        int             `json:"included_users" binding:"min=0"`
	PriceMonthly         decimal.Decimal `json:"price_monthly"`
	PriceYearly          decimal.Decimal `json:"price_yearly"`
	ExtraUserMonthlyFee  decimal.Decimal `json:"extra_user_monthly_fee"`
	ExtraUserCreationFee decimal.Decimal `json:"extra_user_creation_fee"`
	Currency             string          `json:"currency" binding:"omitempty,len=3"`
	Modules              []string        `json:"modules" binding:"omitempty,dive,min=1,max=50"`
}

// PlanHandler handles subscription plan HTTP requests
type PlanHandler struct {
	BaseHandler
	planService     PlanService
	defaultCurrency string
}

// NewPlanHandler creates a new plan handler. Plans created without a
// currency use defaultCurrency.
func NewPlanHandler(planService PlanService, defaultCurrency string) *PlanHandler {
	return &PlanHandler{
		planService:     planService,
		defaultCurrency: defaultCurrency,
	}
}

func (h *PlanHandler) currency(requested string) string {
	if requested == "" {
		return h.defaultCurrency
	}
	return requested
}

// Create handles POST /billing/plans
func (h *PlanHandler) Create(c *gin.Context) {
	var req PlanRequest
	if !h.BindJSON(c, &req) {
		return
	}

	plan, err := h.planService.Create(c.Request.Context(), billing.PlanInput{
		Code:                 req.Code,
		Name:                 req.Name,
		IncludedUsers:        req.IncludedUsers,
		PriceMonthly:         req.PriceMonthly,
		PriceYearly:          req.PriceYearly,
		ExtraUserMonthlyFee:  req.ExtraUserMonthlyFee,
		ExtraUserCreationFee: req.ExtraUserCreationFee,
		Currency:             h.currency(req.Currency),
		Modules:              req.Modules,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, plan)
}

// Update handles PUT /billing/plans/:id
func (h *PlanHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c, "id", "plan")
	if !ok {
		return
	}

	var req UpdatePlanRequest
	if !h.BindJSON(c, &req) {
		return
	}

	plan, err := h.planService.Update(c.Request.Context(), id, billing.PlanInput{
		Name:                 req.Name,
		IncludedUsers:        req.IncludedUsers,
		PriceMonthly:         req.PriceMonthly,
		PriceYearly:          req.PriceYearly,
		ExtraUserMonthlyFee:  req.ExtraUserMonthlyFee,
		ExtraUserCreationFee: req.ExtraUserCreationFee,
		Currency:             h.currency(req.Currency),
		Modules:              req.Modules,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, plan)
}

// GetByID handles GET /billing/plans/:id
func (h *PlanHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseID(c, "id", "plan")
	if !ok {
		return
	}

	plan, err := h.planService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, plan)
}

// GetByCode handles GET /billing/plans/code/:code
func (h *PlanHandler) GetByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		h.BadRequest(c, "Plan code is required")
		return
	}

	plan, err := h.planService.GetByCode(c.Request.Context(), code)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, plan)
}

// List handles GET /billing/plans
func (h *PlanHandler) List(c *gin.Context) {
	var query ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	result, err := h.planService.List(c.Request.Context(), query.toFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	respondPage(&h.BaseHandler, c, result)
}

// Activate handles POST /billing/plans/:id/activate
func (h *PlanHandler) Activate(c *gin.Context) {
	h.toggle(c, h.planService.Activate)
}

// Deactivate handles POST /billing/plans/:id/deactivate
func (h *PlanHandler) Deactivate(c *gin.Context) {
	h.toggle(c, h.planService.Deactivate)
}

func (h *PlanHandler) toggle(c *gin.Context, fn func(context.Context, uuid.UUID) (*billing.PlanDTO, error)) {
	id, ok := h.ParseID(c, "id", "plan")
	if !ok {
		return
	}

	plan, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, plan)
}
