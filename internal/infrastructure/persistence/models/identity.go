package models

import (
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/identity"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
)

// TenantModel is the persistence model for the Tenant aggregate
type TenantModel struct {
	AggregateModel
	Code               string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name               string                `gorm:"type:varchar(200);not null"`
	ContactEmail       string                `gorm:"type:varchar(200)"`
	Status             identity.TenantStatus `gorm:"type:varchar(20);not null;index"`
	PlanID             uuid.UUID             `gorm:"type:uuid;not null;index"`
	BillingFrequency   billing.Frequency     `gorm:"type:varchar(20);not null"`
	BillingAnchorDay   int                   `gorm:"not null"`
	BillingAnchorMonth int                   `gorm:"not null"`
	NextInvoiceAt      time.Time             `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant
func (m *TenantModel) ToDomain() *identity.Tenant {
	return &identity.Tenant{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		Code:               m.Code,
		Name:               m.Name,
		ContactEmail:       m.ContactEmail,
		Status:             m.Status,
		PlanID:             m.PlanID,
		BillingFrequency:   m.BillingFrequency,
		BillingAnchorDay:   m.BillingAnchorDay,
		BillingAnchorMonth: m.BillingAnchorMonth,
		NextInvoiceAt:      m.NextInvoiceAt,
	}
}

// TenantModelFromDomain creates a persistence model from a domain Tenant
func TenantModelFromDomain(t *identity.Tenant) *TenantModel {
	m := &TenantModel{
		Code:               t.Code,
		Name:               t.Name,
		ContactEmail:       t.ContactEmail,
		Status:             t.Status,
		PlanID:             t.PlanID,
		BillingFrequency:   t.BillingFrequency,
		BillingAnchorDay:   t.BillingAnchorDay,
		BillingAnchorMonth: t.BillingAnchorMonth,
		NextInvoiceAt:      t.NextInvoiceAt,
	}
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	return m
}

// MembershipModel is the persistence model for a tenant membership
type MembershipModel struct {
	AggregateModel
	TenantID   uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_tenant_email,priority:1"`
	Email      string                    `gorm:"type:varchar(200);not null;uniqueIndex:idx_memberships_tenant_email,priority:2"`
	Name       string                    `gorm:"type:varchar(200)"`
	Role       identity.MembershipRole   `gorm:"type:varchar(20);not null"`
	Status     identity.MembershipStatus `gorm:"type:varchar(20);not null;index"`
	DisabledAt *time.Time
}

// TableName returns the table name for GORM
func (MembershipModel) TableName() string {
	return "memberships"
}

// ToDomain converts the persistence model to a domain Membership
func (m *MembershipModel) ToDomain() *identity.Membership {
	return &identity.Membership{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: m.ToDomainAggregateRoot(),
			TenantID:          m.TenantID,
		},
		Email:      m.Email,
		Name:       m.Name,
		Role:       m.Role,
		Status:     m.Status,
		DisabledAt: m.DisabledAt,
	}
}

// MembershipModelFromDomain creates a persistence model from a domain Membership
func MembershipModelFromDomain(ms *identity.Membership) *MembershipModel {
	m := &MembershipModel{
		TenantID:   ms.TenantID,
		Email:      ms.Email,
		Name:       ms.Name,
		Role:       ms.Role,
		Status:     ms.Status,
		DisabledAt: ms.DisabledAt,
	}
	m.FromDomainAggregateRoot(ms.BaseAggregateRoot)
	return m
}
