package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
)

// fakeRedis implements the subset of redis.Cmdable the cache uses.
type fakeRedis struct {
	redis.Cmdable
	values  map[string]string
	ttls    map[string]time.Duration
	readErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.readErr != nil {
		return redis.NewStringResult("", f.readErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.values, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

type countingLoader struct {
	depts []domain.Department
	err   error
	calls int
}

func (l *countingLoader) Departments(ctx context.Context) ([]domain.Department, error) {
	l.calls++
	return l.depts, l.err
}

func sampleDepartments() []domain.Department {
	parent := int64(1)
	return []domain.Department{
		{ID: 1, Name: "Transport Bureau", Category: domain.DepartmentCategoryBureau},
		{ID: 10, Name: "Traffic", Category: domain.DepartmentCategoryDivision, ParentID: &parent},
	}
}

func TestDepartmentCache_HitAfterMiss(t *testing.T) {
	rdb := newFakeRedis()
	cache := NewDepartmentCache(rdb, time.Minute, zap.NewNop())
	loader := &countingLoader{depts: sampleDepartments()}
	src := cache.Wrap(loader)
	ctx := context.Background()

	first, err := src.Departments(ctx)
	require.NoError(t, err)
	second, err := src.Departments(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, loader.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, time.Minute, rdb.ttls[departmentsKey])

	require.NoError(t, cache.Invalidate(ctx))
	_, err = src.Departments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestDepartmentCache_FallsThroughOnRedisFailure(t *testing.T) {
	rdb := newFakeRedis()
	rdb.readErr = errors.New("connection refused")
	loader := &countingLoader{depts: sampleDepartments()}
	src := NewDepartmentCache(rdb, time.Minute, zap.NewNop()).Wrap(loader)

	depts, err := src.Departments(context.Background())
	require.NoError(t, err)
	assert.Len(t, depts, 2)
	assert.Equal(t, 1, loader.calls)
}

func TestDepartmentCache_LoaderErrorIsNotCached(t *testing.T) {
	rdb := newFakeRedis()
	loader := &countingLoader{err: errors.New("upstream down")}
	src := NewDepartmentCache(rdb, time.Minute, zap.NewNop()).Wrap(loader)

	_, err := src.Departments(context.Background())
	require.Error(t, err)
	assert.Empty(t, rdb.values)
}

func TestDepartmentCache_DisabledWithoutClient(t *testing.T) {
	loader := &countingLoader{}
	cache := NewDepartmentCache(nil, 0, zap.NewNop())
	assert.Same(t, loader, cache.Wrap(loader))
	assert.NoError(t, cache.Invalidate(context.Background()))
}
