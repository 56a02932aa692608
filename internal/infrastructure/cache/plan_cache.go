package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	// DefaultPlanKeyPrefix namespaces cached plans in Redis
	DefaultPlanKeyPrefix = "billing:plan:"
	defaultPlanTTL       = 10 * time.Minute
)

// cachedPlan is the serialized form of a plan in the cache.
// Kept separate from billing.Plan so the cache format only changes on purpose.
type cachedPlan struct {
	ID                   uuid.UUID       `json:"id"`
	Code                 string          `json:"code"`
	Name                 string          `json:"name"`
	IncludedUsers        int             `json:"included_users"`
	PriceMonthly         decimal.Decimal `json:"price_monthly"`
	PriceYearly          decimal.Decimal `json:"price_yearly"`
	ExtraUserMonthlyFee  decimal.Decimal `json:"extra_user_monthly_fee"`
	ExtraUserCreationFee decimal.Decimal `json:"extra_user_creation_fee"`
	Currency             string          `json:"currency"`
	Modules              []string        `json:"modules"`
	IsActive             bool            `json:"is_active"`
	Version              int             `json:"version"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func snapshotPlan(p *billing.Plan) cachedPlan {
	return cachedPlan{
		ID:                   p.ID,
		Code:                 p.Code,
		Name:                 p.Name,
		IncludedUsers:        p.IncludedUsers,
		PriceMonthly:         p.PriceMonthly,
		PriceYearly:          p.PriceYearly,
		ExtraUserMonthlyFee:  p.ExtraUserMonthlyFee,
		ExtraUserCreationFee: p.ExtraUserCreationFee,
		Currency:             string(p.Currency),
		Modules:              append([]string(nil), p.Modules...),
		IsActive:             p.IsActive,
		Version:              p.Version,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func (c cachedPlan) toDomain() *billing.Plan {
	modules := append([]string{}, c.Modules...)
	return &billing.Plan{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        c.ID,
				CreatedAt: c.CreatedAt,
				UpdatedAt: c.UpdatedAt,
			},
			Version: c.Version,
		},
		Code:                 c.Code,
		Name:                 c.Name,
		IncludedUsers:        c.IncludedUsers,
		PriceMonthly:         c.PriceMonthly,
		PriceYearly:          c.PriceYearly,
		ExtraUserMonthlyFee:  c.ExtraUserMonthlyFee,
		ExtraUserCreationFee: c.ExtraUserCreationFee,
		Currency:             valueobject.Currency(c.Currency),
		Modules:              modules,
		IsActive:             c.IsActive,
	}
}

// RedisPlanCache caches plans as JSON documents in Redis
type RedisPlanCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisPlanCache creates a Redis backed plan cache
func NewRedisPlanCache(client *redis.Client, ttl time.Duration) *RedisPlanCache {
	if ttl <= 0 {
		ttl = defaultPlanTTL
	}
	return &RedisPlanCache{
		client:    client,
		keyPrefix: DefaultPlanKeyPrefix,
		ttl:       ttl,
	}
}

func (c *RedisPlanCache) key(id uuid.UUID) string {
	return c.keyPrefix + id.String()
}

// Get returns the cached plan, or nil when absent
func (c *RedisPlanCache) Get(ctx context.Context, id uuid.UUID) (*billing.Plan, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached plan %s: %w", id, err)
	}

	var cp cachedPlan
	if err := json.Unmarshal(data, &cp); err != nil {
		// A corrupt entry is treated as a miss and dropped
		_ = c.client.Del(ctx, c.key(id)).Err()
		return nil, nil
	}
	return cp.toDomain(), nil
}

// Set stores plan for the configured TTL
func (c *RedisPlanCache) Set(ctx context.Context, plan *billing.Plan) error {
	if plan == nil {
		return nil
	}
	data, err := json.Marshal(snapshotPlan(plan))
	if err != nil {
		return fmt.Errorf("failed to encode plan %s: %w", plan.ID, err)
	}
	if err := c.client.Set(ctx, c.key(plan.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache plan %s: %w", plan.ID, err)
	}
	return nil
}

// Invalidate removes the cached plan
func (c *RedisPlanCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate plan %s: %w", id, err)
	}
	return nil
}

type planEntry struct {
	plan      cachedPlan
	expiresAt time.Time
}

// InMemoryPlanCache caches plans in process memory with a TTL
type InMemoryPlanCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]planEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryPlanCache creates an in-process plan cache
func NewInMemoryPlanCache(ttl time.Duration) *InMemoryPlanCache {
	if ttl <= 0 {
		ttl = defaultPlanTTL
	}
	return &InMemoryPlanCache{
		entries: make(map[uuid.UUID]planEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the cached plan, or nil when absent or expired
func (c *InMemoryPlanCache) Get(_ context.Context, id uuid.UUID) (*billing.Plan, error) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, id)
		c.mu.Unlock()
		return nil, nil
	}
	return entry.plan.toDomain(), nil
}

// Set stores a snapshot of plan
func (c *InMemoryPlanCache) Set(_ context.Context, plan *billing.Plan) error {
	if plan == nil {
		return nil
	}
	c.mu.Lock()
	c.entries[plan.ID] = planEntry{plan: snapshotPlan(plan), expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

// Invalidate removes the cached plan
func (c *InMemoryPlanCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
	return nil
}

var (
	_ billing.PlanCache = (*RedisPlanCache)(nil)
	_ billing.PlanCache = (*InMemoryPlanCache)(nil)
)
