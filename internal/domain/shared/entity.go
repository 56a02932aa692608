package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for all domain entities
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// BaseEntity provides common fields for all entities
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// GetCreatedAt returns the creation timestamp
func (e *BaseEntity) GetCreatedAt() time.Time {
	return e.CreatedAt
}

// GetUpdatedAt returns the last update timestamp
func (e *BaseEntity) GetUpdatedAt() time.Time {
	return e.UpdatedAt
}

// Touch records a modification time
func (e *BaseEntity) Touch(at time.Time) {
	e.UpdatedAt = at
}

// NewBaseEntityAt creates a new base entity with a generated ID stamped at the given time.
// Billing entities take their creation time from an injected clock rather than time.Now.
func NewBaseEntityAt(at time.Time) BaseEntity {
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: at,
		UpdatedAt: at,
	}
}
