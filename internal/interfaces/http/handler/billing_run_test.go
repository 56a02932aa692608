package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/infrastructure/scheduler"
	"github.com/erp/billing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestBillingRunHandler_Run(t *testing.T) {
	now := time.Date(2025, 4, 1, 0, 5, 0, 0, time.UTC)

	t.Run("returns the run summary", func(t *testing.T) {
		runs := new(mockBillingRunTrigger)
		summary := &billing.RunSummary{
			StartedAt:  now,
			FinishedAt: now.Add(time.Second),
			DueTenants: 3,
			Issued:     2,
			Skipped:    1,
			Invoices:   []string{"INV-ACME-2025-03", "INV-BETA-2025-03"},
		}
		runs.On("RunNow", mock.Anything).Return(summary, nil)

		r := gin.New()
		r.POST("/billing/runs", NewBillingRunHandler(runs).Run)
		w := serve(r, http.MethodPost, "/billing/runs", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var got billing.RunSummary
		decodeData(t, w, &got)
		assert.Equal(t, 2, got.Issued)
		assert.Equal(t, 1, got.Skipped)
		assert.Len(t, got.Invoices, 2)
		runs.AssertExpectations(t)
	})

	t.Run("overlapping run is a conflict", func(t *testing.T) {
		runs := new(mockBillingRunTrigger)
		runs.On("RunNow", mock.Anything).Return(nil, scheduler.ErrRunInProgress)

		r := gin.New()
		r.POST("/billing/runs", NewBillingRunHandler(runs).Run)
		w := serve(r, http.MethodPost, "/billing/runs", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeConflict)
	})

	t.Run("run failure is internal", func(t *testing.T) {
		runs := new(mockBillingRunTrigger)
		runs.On("RunNow", mock.Anything).Return(nil, assert.AnError)

		r := gin.New()
		r.POST("/billing/runs", NewBillingRunHandler(runs).Run)
		w := serve(r, http.MethodPost, "/billing/runs", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
