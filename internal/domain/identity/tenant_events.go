package identity

import (
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeTenant = "Tenant"

// Event type constants
const (
	EventTypeTenantCreated                 = "TenantCreated"
	EventTypeTenantStatusChanged           = "TenantStatusChanged"
	EventTypeTenantPlanChanged             = "TenantPlanChanged"
	EventTypeTenantBillingFrequencyChanged = "TenantBillingFrequencyChanged"
)

// TenantCreatedEvent is published when a new tenant is created
type TenantCreatedEvent struct {
	shared.BaseDomainEvent
	Code             string            `json:"code"`
	Name             string            `json:"name"`
	PlanID           uuid.UUID         `json:"plan_id"`
	BillingFrequency billing.Frequency `json:"billing_frequency"`
	NextInvoiceAt    time.Time         `json:"next_invoice_at"`
}

// NewTenantCreatedEvent creates a new TenantCreatedEvent
func NewTenantCreatedEvent(tenant *Tenant) *TenantCreatedEvent {
	return &TenantCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeTenantCreated, AggregateTypeTenant, tenant.ID, tenant.ID, tenant.CreatedAt),
		Code:             tenant.Code,
		Name:             tenant.Name,
		PlanID:           tenant.PlanID,
		BillingFrequency: tenant.BillingFrequency,
		NextInvoiceAt:    tenant.NextInvoiceAt,
	}
}

// TenantStatusChangedEvent is published when a tenant's status changes
type TenantStatusChangedEvent struct {
	shared.BaseDomainEvent
	OldStatus TenantStatus `json:"old_status"`
	NewStatus TenantStatus `json:"new_status"`
}

// NewTenantStatusChangedEvent creates a new TenantStatusChangedEvent
func NewTenantStatusChangedEvent(tenant *Tenant, oldStatus TenantStatus) *TenantStatusChangedEvent {
	return &TenantStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantStatusChanged, AggregateTypeTenant, tenant.ID, tenant.ID, tenant.UpdatedAt),
		OldStatus:       oldStatus,
		NewStatus:       tenant.Status,
	}
}

// TenantPlanChangedEvent is published when a tenant moves to another plan
type TenantPlanChangedEvent struct {
	shared.BaseDomainEvent
	OldPlanID uuid.UUID `json:"old_plan_id"`
	NewPlanID uuid.UUID `json:"new_plan_id"`
}

// NewTenantPlanChangedEvent creates a new TenantPlanChangedEvent
func NewTenantPlanChangedEvent(tenant *Tenant, oldPlanID uuid.UUID) *TenantPlanChangedEvent {
	return &TenantPlanChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantPlanChanged, AggregateTypeTenant, tenant.ID, tenant.ID, tenant.UpdatedAt),
		OldPlanID:       oldPlanID,
		NewPlanID:       tenant.PlanID,
	}
}

// TenantBillingFrequencyChangedEvent is published when a tenant switches between monthly and annual billing
type TenantBillingFrequencyChangedEvent struct {
	shared.BaseDomainEvent
	OldFrequency  billing.Frequency `json:"old_frequency"`
	NewFrequency  billing.Frequency `json:"new_frequency"`
	AnchorDay     int               `json:"anchor_day"`
	AnchorMonth   int               `json:"anchor_month"`
	NextInvoiceAt time.Time         `json:"next_invoice_at"`
}

// NewTenantBillingFrequencyChangedEvent creates a new TenantBillingFrequencyChangedEvent
func NewTenantBillingFrequencyChangedEvent(tenant *Tenant, old billing.Frequency) *TenantBillingFrequencyChangedEvent {
	return &TenantBillingFrequencyChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantBillingFrequencyChanged, AggregateTypeTenant, tenant.ID, tenant.ID, tenant.UpdatedAt),
		OldFrequency:    old,
		NewFrequency:    tenant.BillingFrequency,
		AnchorDay:       tenant.BillingAnchorDay,
		AnchorMonth:     tenant.BillingAnchorMonth,
		NextInvoiceAt:   tenant.NextInvoiceAt,
	}
}
