package identity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
)

// MembershipStatus represents whether a membership counts as an active user
type MembershipStatus string

const (
	MembershipStatusActive   MembershipStatus = "active"
	MembershipStatusDisabled MembershipStatus = "disabled"
)

// MembershipRole is the role a user holds in a tenant
type MembershipRole string

const (
	MembershipRoleOwner  MembershipRole = "owner"
	MembershipRoleAdmin  MembershipRole = "admin"
	MembershipRoleMember MembershipRole = "member"
)

// IsValid returns true if the role is valid
func (r MembershipRole) IsValid() bool {
	switch r {
	case MembershipRoleOwner, MembershipRoleAdmin, MembershipRoleMember:
		return true
	}
	return false
}

// Membership is a user's seat in a tenant. Active memberships are the
// active users a tenant is billed for.
type Membership struct {
	shared.TenantAggregateRoot
	Email      string
	Name       string
	Role       MembershipRole
	Status     MembershipStatus
	DisabledAt *time.Time
}

// NewMembership creates an active membership
func NewMembership(tenantID uuid.UUID, email, name string, role MembershipRole, at time.Time) (*Membership, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	if role == "" {
		role = MembershipRoleMember
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role must be owner, admin or member")
	}

	return &Membership{
		TenantAggregateRoot: shared.NewTenantAggregateRootAt(tenantID, at),
		Email:               email,
		Name:                strings.TrimSpace(name),
		Role:                role,
		Status:              MembershipStatusActive,
	}, nil
}

// Disable stops the membership from counting as an active user
func (m *Membership) Disable(at time.Time) error {
	if m.Status == MembershipStatusDisabled {
		return shared.NewDomainError("ALREADY_DISABLED", "Membership is already disabled")
	}
	m.Status = MembershipStatusDisabled
	m.DisabledAt = &at
	m.MarkModified(at)
	return nil
}

// Enable reactivates a disabled membership
func (m *Membership) Enable(at time.Time) error {
	if m.Status == MembershipStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Membership is already active")
	}
	m.Status = MembershipStatusActive
	m.DisabledAt = nil
	m.MarkModified(at)
	return nil
}

// IsActive returns true if the membership counts as an active user
func (m *Membership) IsActive() bool {
	return m.Status == MembershipStatusActive
}
