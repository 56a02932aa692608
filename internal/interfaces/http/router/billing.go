package router

import (
	"github.com/erp/billing/internal/interfaces/http/handler"
)

// BillingHandlers are the handlers mounted under /billing
type BillingHandlers struct {
	Plans      *handler.PlanHandler
	Tenants    *handler.TenantHandler
	Invoices   *handler.InvoiceHandler
	BillingRun *handler.BillingRunHandler
}

// NewBillingRoutes builds the /billing domain group
func NewBillingRoutes(h BillingHandlers) *DomainGroup {
	billing := NewDomainGroup("billing", "/billing")

	billing.Group("plans", "/plans").
		POST("", h.Plans.Create).
		GET("", h.Plans.List).
		GET("/code/:code", h.Plans.GetByCode).
		GET("/:id", h.Plans.GetByID).
		PUT("/:id", h.Plans.Update).
		POST("/:id/activate", h.Plans.Activate).
		POST("/:id/deactivate", h.Plans.Deactivate)

	billing.Group("tenants", "/tenants").
		POST("", h.Tenants.Create).
		GET("", h.Tenants.List).
		GET("/:id", h.Tenants.GetByID).
		PUT("/:id/frequency", h.Tenants.ChangeFrequency).
		PUT("/:id/plan", h.Tenants.ChangePlan).
		POST("/:id/suspend", h.Tenants.Suspend).
		POST("/:id/activate", h.Tenants.Activate).
		GET("/:id/members", h.Tenants.ListMembers).
		POST("/:id/members", h.Tenants.AddMember).
		POST("/:id/members/:member_id/disable", h.Tenants.DisableMember).
		GET("/:id/modules/:module", h.Tenants.ModuleAccess).
		GET("/:id/preview", h.Invoices.Preview).
		POST("/:id/invoices", h.Invoices.Create).
		GET("/:id/invoices", h.Invoices.ListByTenant)

	billing.Group("invoices", "/invoices").
		GET("/:id", h.Invoices.GetByID).
		POST("/:id/pay", h.Invoices.Pay).
		POST("/:id/cancel", h.Invoices.Cancel)

	billing.Group("runs", "/runs").
		POST("", h.BillingRun.Run)

	return billing
}
