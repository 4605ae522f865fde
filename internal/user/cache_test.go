package user

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/accounts-api/internal/logging"
)

type fakeRedis struct {
	mu      sync.Mutex
	values  map[string]string
	sets    map[string]map[string]struct{}
	failAll bool
	gets    int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		values: make(map[string]string),
		sets:   make(map[string]map[string]struct{}),
	}
}

var errRedisDown = errors.New("redis down")

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failAll {
		return redis.NewStringResult("", errRedisDown)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return redis.NewStatusResult("", errRedisDown)
	}
	f.values[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return redis.NewIntResult(0, errRedisDown)
	}
	set, ok := f.sets[key]
	if !ok {
		set = make(map[string]struct{})
		f.sets[key] = set
	}
	for _, m := range members {
		set[m.(string)] = struct{}{}
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (f *fakeRedis) SMembers(ctx context.Context, key string) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return redis.NewStringSliceResult(nil, errRedisDown)
	}
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return redis.NewStringSliceResult(out, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return redis.NewIntResult(0, errRedisDown)
	}
	for _, k := range keys {
		delete(f.values, k)
		delete(f.sets, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

// countingStore counts FindAll calls that reach the underlying store.
type countingStore struct {
	*MemoryRepository
	listCalls int
}

func (s *countingStore) FindAll(ctx context.Context, exclude ...Field) ([]User, error) {
	s.listCalls++
	return s.MemoryRepository.FindAll(ctx, exclude...)
}

func TestGetListKey(t *testing.T) {
	assert.Equal(t, "users:list:", getListKey(nil))
	assert.Equal(t,
		getListKey([]Field{FieldPasswordHash, FieldCity}),
		getListKey([]Field{FieldCity, FieldPasswordHash, FieldCity}),
	)
}

func TestCachedRepository_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryRepository: NewMemoryRepository()}
	cache := NewCachedRepository(inner, newFakeRedis(), time.Minute, logging.NewNopLogger())

	_, err := cache.Insert(ctx, sampleUser("a@x.com"))
	require.NoError(t, err)

	first, err := cache.FindAll(ctx, FieldPasswordHash)
	require.NoError(t, err)
	second, err := cache.FindAll(ctx, FieldPasswordHash)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.listCalls)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Empty(t, second[0].PasswordHash)
	assert.NotNil(t, second[0].Labs)
}

func TestCachedRepository_KeepsHashWhenNotExcluded(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryRepository: NewMemoryRepository()}
	cache := NewCachedRepository(inner, newFakeRedis(), time.Minute, logging.NewNopLogger())

	_, err := cache.Insert(ctx, sampleUser("a@x.com"))
	require.NoError(t, err)

	_, err = cache.FindAll(ctx)
	require.NoError(t, err)
	cached, err := cache.FindAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.listCalls)
	require.Len(t, cached, 1)
	assert.Equal(t, "hash", cached[0].PasswordHash)
}

func TestCachedRepository_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryRepository: NewMemoryRepository()}
	cache := NewCachedRepository(inner, newFakeRedis(), time.Minute, logging.NewNopLogger())

	a, err := cache.Insert(ctx, sampleUser("a@x.com"))
	require.NoError(t, err)

	_, err = cache.FindAll(ctx, FieldPasswordHash)
	require.NoError(t, err)

	_, err = cache.Insert(ctx, sampleUser("b@x.com"))
	require.NoError(t, err)

	users, err := cache.FindAll(ctx, FieldPasswordHash)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 2, inner.listCalls)

	updated := Patch{City: ptr("LA")}.Apply(*a)
	require.NoError(t, cache.Save(ctx, &updated))

	users, err = cache.FindAll(ctx, FieldPasswordHash)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.listCalls)
	assert.Equal(t, "LA", users[0].City)
}

func TestCachedRepository_FallsThroughWhenRedisFails(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryRepository: NewMemoryRepository()}
	rdb := newFakeRedis()
	rdb.failAll = true
	cache := NewCachedRepository(inner, rdb, time.Minute, logging.NewNopLogger())

	_, err := cache.Insert(ctx, sampleUser("a@x.com"))
	require.NoError(t, err)

	users, err := cache.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = cache.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.listCalls)
}

func TestCachedRepository_PassesStoreErrorsThrough(t *testing.T) {
	ctx := context.Background()
	cache := NewCachedRepository(NewMemoryRepository(), newFakeRedis(), time.Minute, logging.NewNopLogger())

	_, err := cache.Insert(ctx, sampleUser("a@x.com"))
	require.NoError(t, err)

	_, err = cache.Insert(ctx, sampleUser("a@x.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = cache.FindByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
