package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/infrastructure/scheduler"
	"github.com/erp/billing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BillingRunTrigger starts a billing run and waits for it
type BillingRunTrigger interface {
	RunNow(ctx context.Context) (*billing.RunSummary, error)
}

// BillingRunHandler triggers billing runs on demand
type BillingRunHandler struct {
	BaseHandler
	runs BillingRunTrigger
}

// NewBillingRunHandler creates a new billing run handler
func NewBillingRunHandler(runs BillingRunTrigger) *BillingRunHandler {
	return &BillingRunHandler{runs: runs}
}

// Run handles POST /billing/runs. It invoices every tenant due now and
// answers with the run summary. A run already executing, scheduled or
// manual, answers 409.
func (h *BillingRunHandler) Run(c *gin.Context) {
	summary, err := h.runs.RunNow(c.Request.Context())
	if errors.Is(err, scheduler.ErrRunInProgress) {
		h.Error(c, http.StatusConflict, dto.ErrCodeConflict, "A billing run is already in progress")
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}
