package identity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
)

// TenantStatus represents the status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended" // Suspended due to payment issues, not billed
)

// IsValid returns true if the status is valid
func (s TenantStatus) IsValid() bool {
	return s == TenantStatusActive || s == TenantStatusSuspended
}

// maxCatchUpPeriods bounds how far AdvanceNextInvoice rolls forward in one call
const maxCatchUpPeriods = 120

// Tenant represents a tenant/organization in the multi-tenant system.
// Billing anchors are derived from CreatedAt and only re-derived when the
// billing frequency changes.
type Tenant struct {
	shared.BaseAggregateRoot
	Code               string
	Name               string
	ContactEmail       string
	Status             TenantStatus
	PlanID             uuid.UUID
	BillingFrequency   billing.Frequency
	BillingAnchorDay   int
	BillingAnchorMonth int
	NextInvoiceAt      time.Time
}

// NewTenant creates a new active tenant on the given plan.
// The first due date is computed with now set to the creation time.
func NewTenant(code, name string, planID uuid.UUID, frequency billing.Frequency, createdAt time.Time) (*Tenant, error) {
	if err := validateTenantCode(code); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validateTenantName(name); err != nil {
		return nil, err
	}
	if planID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PLAN", "Plan ID cannot be empty")
	}

	schedule, err := billing.ComputeNextInvoiceDate(createdAt, frequency, createdAt)
	if err != nil {
		return nil, err
	}

	tenant := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(createdAt),
		Code:              strings.ToUpper(code),
		Name:              name,
		Status:            TenantStatusActive,
		PlanID:            planID,
		BillingFrequency:  frequency,
	}
	tenant.applySchedule(schedule)

	tenant.AddDomainEvent(NewTenantCreatedEvent(tenant))

	return tenant, nil
}

func (t *Tenant) applySchedule(s billing.AnchorSchedule) {
	t.BillingAnchorDay = s.AnchorDay
	t.BillingAnchorMonth = s.AnchorMonth
	t.NextInvoiceAt = s.NextInvoiceAt
}

// Update updates the tenant's display name and contact email
func (t *Tenant) Update(name, contactEmail string, at time.Time) error {
	name = strings.TrimSpace(name)
	if err := validateTenantName(name); err != nil {
		return err
	}
	if err := t.SetContactEmail(contactEmail); err != nil {
		return err
	}

	t.Name = name
	t.MarkModified(at)
	return nil
}

// SetContactEmail sets the address invoices are sent to
func (t *Tenant) SetContactEmail(email string) error {
	email = strings.TrimSpace(email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
		}
	}
	t.ContactEmail = email
	return nil
}

// ChangeBillingFrequency switches the billing cadence. The anchor is derived
// again from the original creation date and the next due date is computed from now.
func (t *Tenant) ChangeBillingFrequency(frequency billing.Frequency, now time.Time) error {
	if frequency == t.BillingFrequency {
		return shared.NewDomainError("SAME_FREQUENCY", "Tenant is already billed at this frequency")
	}
	schedule, err := billing.ComputeNextInvoiceDate(t.CreatedAt, frequency, now)
	if err != nil {
		return err
	}

	old := t.BillingFrequency
	t.BillingFrequency = frequency
	t.applySchedule(schedule)
	t.MarkModified(now)

	t.AddDomainEvent(NewTenantBillingFrequencyChangedEvent(t, old))
	return nil
}

// ChangePlan moves the tenant to another plan; the change applies from the next invoice
func (t *Tenant) ChangePlan(planID uuid.UUID, at time.Time) error {
	if planID == uuid.Nil {
		return shared.NewDomainError("INVALID_PLAN", "Plan ID cannot be empty")
	}
	if planID == t.PlanID {
		return shared.NewDomainError("SAME_PLAN", "Tenant is already on this plan")
	}

	old := t.PlanID
	t.PlanID = planID
	t.MarkModified(at)

	t.AddDomainEvent(NewTenantPlanChangedEvent(t, old))
	return nil
}

// CurrentPeriod returns the billing period containing the given time
func (t *Tenant) CurrentPeriod(now time.Time) (billing.Period, error) {
	return billing.PeriodFor(t.BillingFrequency, now.In(t.CreatedAt.Location()))
}

// DuePeriod returns the billing period the next due date falls in
func (t *Tenant) DuePeriod() (billing.Period, error) {
	return billing.PeriodFor(t.BillingFrequency, t.NextInvoiceAt)
}

// AdvanceNextInvoice rolls the next due date forward after the given period has
// been invoiced. It returns false when the due date does not fall in that period.
func (t *Tenant) AdvanceNextInvoice(invoiced billing.Period, at time.Time) (bool, error) {
	advanced := false
	for range maxCatchUpPeriods {
		if invoiced.Frequency != t.BillingFrequency || !invoiced.Contains(t.NextInvoiceAt) {
			break
		}
		schedule, err := billing.ComputeNextInvoiceDate(t.CreatedAt, t.BillingFrequency, t.NextInvoiceAt)
		if err != nil {
			return false, err
		}
		t.applySchedule(schedule)
		advanced = true
	}
	if advanced {
		t.MarkModified(at)
	}
	return advanced, nil
}

// IsDue reports whether the tenant should be invoiced at now
func (t *Tenant) IsDue(now time.Time) bool {
	return t.IsActive() && !t.NextInvoiceAt.After(now)
}

// Activate reactivates a suspended tenant
func (t *Tenant) Activate(at time.Time) error {
	if t.Status == TenantStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Tenant is already active")
	}
	old := t.Status
	t.Status = TenantStatusActive
	t.MarkModified(at)
	t.AddDomainEvent(NewTenantStatusChangedEvent(t, old))
	return nil
}

// Suspend stops billing the tenant
func (t *Tenant) Suspend(at time.Time) error {
	if t.Status == TenantStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Tenant is already suspended")
	}
	old := t.Status
	t.Status = TenantStatusSuspended
	t.MarkModified(at)
	t.AddDomainEvent(NewTenantStatusChangedEvent(t, old))
	return nil
}

// IsActive returns true if the tenant is active
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

func validateTenantCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Tenant code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Tenant code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Tenant code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateTenantName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot exceed 200 characters")
	}
	return nil
}
