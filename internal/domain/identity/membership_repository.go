package identity

import (
	"context"

	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
)

// MembershipFilter defines filtering options for membership queries
type MembershipFilter struct {
	shared.Filter
	Status *MembershipStatus
}

// MembershipRepository defines the interface for membership persistence
type MembershipRepository interface {
	// FindByID finds a membership of a tenant by its ID
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Membership, error)

	// FindByTenant lists a tenant's memberships, returning the page and the total count
	FindByTenant(ctx context.Context, tenantID uuid.UUID, filter MembershipFilter) ([]Membership, int64, error)

	// CountActive counts the tenant's active memberships
	CountActive(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// ExistsByEmail checks if the tenant already has a membership for the email
	ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error)

	// Save inserts a new membership
	Save(ctx context.Context, membership *Membership) error

	// Update persists changes to an existing membership using optimistic locking
	Update(ctx context.Context, membership *Membership) error
}
