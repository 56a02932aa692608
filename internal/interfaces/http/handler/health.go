package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/infrastructure/event"
	"github.com/erp/billing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger
type PingerFunc func(ctx context.Context) error

// Ping calls f
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthDeps are the optional collaborators reported by HealthHandler
type HealthDeps struct {
	Database         Pinger
	Redis            Pinger
	Stats            func() event.InvoiceStats
	LastRun          func() *billing.RunSummary
	SchedulerRunning func() bool
	Version          string
	StartedAt        time.Time
}

// HealthHandler reports service liveness and dependency status
type HealthHandler struct {
	BaseHandler
	deps HealthDeps
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(deps HealthDeps) *HealthHandler {
	if deps.StartedAt.IsZero() {
		deps.StartedAt = time.Now()
	}
	return &HealthHandler{deps: deps}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string              `json:"status"`
	Version   string              `json:"version,omitempty"`
	GoVersion string              `json:"go_version"`
	Uptime    string              `json:"uptime"`
	Checks    map[string]string   `json:"checks"`
	Invoices  *event.InvoiceStats `json:"invoices,omitempty"`
	LastRun   *billing.RunSummary `json:"last_run,omitempty"`
}

// Health handles GET /health. Any failing dependency turns the answer into 503.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Version:   h.deps.Version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.deps.StartedAt).Round(time.Second).String(),
		Checks:    map[string]string{},
	}

	check := func(name string, p Pinger) {
		if p == nil {
			return
		}
		if err := p.Ping(ctx); err != nil {
			resp.Checks[name] = "down: " + err.Error()
			resp.Status = "degraded"
			return
		}
		resp.Checks[name] = "up"
	}
	check("database", h.deps.Database)
	check("redis", h.deps.Redis)

	// a stopped daily loop is reported but does not degrade the service
	if h.deps.SchedulerRunning != nil {
		resp.Checks["billing_scheduler"] = "stopped"
		if h.deps.SchedulerRunning() {
			resp.Checks["billing_scheduler"] = "running"
		}
	}

	if h.deps.Stats != nil {
		stats := h.deps.Stats()
		resp.Invoices = &stats
	}
	if h.deps.LastRun != nil {
		resp.LastRun = h.deps.LastRun()
	}

	if resp.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp})
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}
