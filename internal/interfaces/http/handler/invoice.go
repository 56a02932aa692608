package handler

import (
	"context"

	"github.com/erp/billing/internal/application/billing"
	domain "github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceService is the invoicing surface used by InvoiceHandler
type InvoiceService interface {
	Preview(ctx context.Context, tenantID uuid.UUID, period string) (*domain.BillingPreview, error)
	CreateInvoice(ctx context.Context, tenantID uuid.UUID, period string) (*billing.InvoiceDTO, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string) (*billing.InvoiceDTO, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*billing.InvoiceDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*billing.InvoiceDTO, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, filter billing.ListFilter, period string) (*shared.Paginated[billing.InvoiceDTO], error)
}

// PeriodQuery selects a billing period; empty means the current period
type PeriodQuery struct {
	Period string `form:"period" binding:"omitempty,max=7"`
}

// CreateInvoiceRequest issues an invoice for a period; empty means the current period
type CreateInvoiceRequest struct {
	Period string `json:"period" binding:"omitempty,max=7"`
}

// PayInvoiceRequest records the payment of an invoice
type PayInvoiceRequest struct {
	PaymentRef string `json:"payment_ref" binding:"omitempty,max=100"`
}

// CancelInvoiceRequest cancels an issued invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// InvoiceListQuery extends ListQuery with a period filter
type InvoiceListQuery struct {
	ListQuery
	Period string `form:"period" binding:"omitempty,max=7"`
}

// InvoiceHandler handles billing invoice HTTP requests
type InvoiceHandler struct {
	BaseHandler
	invoiceService InvoiceService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceService InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// Preview handles GET /billing/tenants/:id/preview?period=
func (h *InvoiceHandler) Preview(c *gin.Context) {
	tenantID, ok := h.ParseID(c, "id", "tenant")
	if !ok {
		return
	}

	var query PeriodQuery
	if !h.BindQuery(c, &query) {
		return
	}

	preview, err := h.invoiceService.Preview(c.Request.Context(), tenantID, query.Period)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, preview)
}

// Create handles POST /billing/tenants/:id/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	tenantID, ok := h.ParseID(c, "id", "tenant")
	if !ok {
		return
	}

	var req CreateInvoiceRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), tenantID, req.Period)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// ListByTenant handles GET /billing/tenants/:id/invoices
func (h *InvoiceHandler) ListByTenant(c *gin.Context) {
	tenantID, ok := h.ParseID(c, "id", "tenant")
	if !ok {
		return
	}

	var query InvoiceListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	result, err := h.invoiceService.ListByTenant(c.Request.Context(), tenantID, query.toFilter(), query.Period)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	respondPage(&h.BaseHandler, c, result)
}

// GetByID handles GET /billing/invoices/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseID(c, "id", "invoice")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Pay handles POST /billing/invoices/:id/pay
func (h *InvoiceHandler) Pay(c *gin.Context) {
	id, ok := h.ParseID(c, "id", "invoice")
	if !ok {
		return
	}

	var req PayInvoiceRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.MarkPaid(c.Request.Context(), id, req.PaymentRef)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Cancel handles POST /billing/invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	id, ok := h.ParseID(c, "id", "invoice")
	if !ok {
		return
	}

	var req CancelInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}
