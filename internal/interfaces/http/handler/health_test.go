package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/infrastructure/event"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthRouter(deps HealthDeps) *gin.Engine {
	r := gin.New()
	r.GET("/health", NewHealthHandler(deps).Health)
	return r
}

func up(context.Context) error { return nil }

func TestHealthHandler(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		lastRun := &billing.RunSummary{Issued: 4}
		w := serve(healthRouter(HealthDeps{
			Database: PingerFunc(up),
			Redis:    PingerFunc(up),
			Stats: func() event.InvoiceStats {
				return event.InvoiceStats{Issued: 4, IssuedAmount: decimal.NewFromInt(100000)}
			},
			LastRun:          func() *billing.RunSummary { return lastRun },
			SchedulerRunning: func() bool { return true },
			Version:          "1.2.0",
			StartedAt:        time.Now().Add(-time.Hour),
		}), http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var got HealthResponse
		decodeData(t, w, &got)
		assert.Equal(t, "ok", got.Status)
		assert.Equal(t, "1.2.0", got.Version)
		assert.Equal(t, "up", got.Checks["database"])
		assert.Equal(t, "up", got.Checks["redis"])
		assert.Equal(t, "running", got.Checks["billing_scheduler"])
		require.NotNil(t, got.Invoices)
		assert.Equal(t, int64(4), got.Invoices.Issued)
		require.NotNil(t, got.LastRun)
		assert.Equal(t, 4, got.LastRun.Issued)
	})

	t.Run("failing dependency degrades", func(t *testing.T) {
		w := serve(healthRouter(HealthDeps{
			Database: PingerFunc(up),
			Redis: PingerFunc(func(context.Context) error {
				return errors.New("connection refused")
			}),
		}), http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decodeResponse(t, w)
		assert.False(t, resp.Success)
		var got HealthResponse
		decodeData(t, w, &got)
		assert.Equal(t, "degraded", got.Status)
		assert.Equal(t, "down: connection refused", got.Checks["redis"])
	})

	t.Run("unset dependencies are skipped", func(t *testing.T) {
		w := serve(healthRouter(HealthDeps{}), http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var got HealthResponse
		decodeData(t, w, &got)
		assert.Empty(t, got.Checks)
		assert.Nil(t, got.Invoices)
	})

	t.Run("stopped scheduler is reported without degrading", func(t *testing.T) {
		w := serve(healthRouter(HealthDeps{
			SchedulerRunning: func() bool { return false },
		}), http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var got HealthResponse
		decodeData(t, w, &got)
		assert.Equal(t, "stopped", got.Checks["billing_scheduler"])
	})
}
