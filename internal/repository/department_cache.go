package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
)

const departmentsKey = "workcenter:departments:v1"

// DepartmentLoader provides the flat department list.
type DepartmentLoader interface {
	Departments(ctx context.Context) ([]domain.Department, error)
}

// DepartmentCache keeps the shared department snapshot in Redis. Cache
// failures never fail a lookup; they fall through to the loader.
type DepartmentCache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewDepartmentCache builds a cache. A nil client disables caching.
func NewDepartmentCache(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *DepartmentCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DepartmentCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Wrap returns a loader that consults the cache before next.
func (c *DepartmentCache) Wrap(next DepartmentLoader) DepartmentLoader {
	if c == nil || c.rdb == nil {
		return next
	}
	return &cachedDepartments{cache: c, next: next}
}

// Invalidate drops the cached snapshot.
func (c *DepartmentCache) Invalidate(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, departmentsKey).Err()
}

type cachedDepartment struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

type cachedDepartments struct {
	cache *DepartmentCache
	next  DepartmentLoader
}

func (d *cachedDepartments) Departments(ctx context.Context) ([]domain.Department, error) {
	if depts, ok := d.cache.get(ctx); ok {
		return depts, nil
	}
	depts, err := d.next.Departments(ctx)
	if err != nil {
		return nil, err
	}
	d.cache.set(ctx, depts)
	return depts, nil
}

func (c *DepartmentCache) get(ctx context.Context) ([]domain.Department, bool) {
	raw, err := c.rdb.Get(ctx, departmentsKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("department cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var items []cachedDepartment
	if err := json.Unmarshal(raw, &items); err != nil {
		c.logger.Warn("department cache entry corrupt", zap.Error(err))
		return nil, false
	}
	depts := make([]domain.Department, 0, len(items))
	for _, it := range items {
		depts = append(depts, domain.Department{
			ID:       it.ID,
			Name:     it.Name,
			Category: domain.DepartmentCategory(it.Category),
			ParentID: it.ParentID,
		})
	}
	return depts, true
}

func (c *DepartmentCache) set(ctx context.Context, depts []domain.Department) {
	items := make([]cachedDepartment, 0, len(depts))
	for _, d := range depts {
		items = append(items, cachedDepartment{
			ID:       d.ID,
			Name:     d.Name,
			Category: string(d.Category),
			ParentID: d.ParentID,
		})
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, departmentsKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("department cache write failed", zap.Error(err))
	}
}
