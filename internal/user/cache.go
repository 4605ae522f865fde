package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/accounts-api/internal/logging"
)

const listKeysSet = "users:list:keys"

// RedisClient is the subset of *redis.Client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedRepository caches FindAll results in redis in front of another Store.
// Redis errors are logged and the wrapped store answers instead.
type CachedRepository struct {
	next   Store
	client RedisClient
	ttl    time.Duration
	logger *logging.Logger
}

func NewCachedRepository(next Store, client RedisClient, ttl time.Duration, logger *logging.Logger) *CachedRepository {
	return &CachedRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// cachedUser keeps the password hash, which User hides from JSON.
type cachedUser struct {
	User
	PasswordHash string `json:"passwordHash,omitempty"`
}

// getListKey generates the redis key for one projection of the user list
func getListKey(exclude []Field) string {
	names := make([]string, 0, len(exclude))
	for _, f := range exclude {
		names = append(names, string(f))
	}
	slices.Sort(names)
	names = slices.Compact(names)

	return fmt.Sprintf("users:list:%s", strings.Join(names, ","))
}

func (r *CachedRepository) FindAll(ctx context.Context, exclude ...Field) ([]User, error) {
	key := getListKey(exclude)

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		users, decodeErr := decodeUsers(raw)
		if decodeErr == nil {
			return users, nil
		}
		r.logger.Warn("discarding unreadable users cache entry", "key", key, "error", decodeErr)
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("users cache read failed", "key", key, "error", err)
	}

	users, err := r.next.FindAll(ctx, exclude...)
	if err != nil {
		return nil, err
	}

	r.store(ctx, key, users)
	return users, nil
}

func (r *CachedRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.next.FindByEmail(ctx, email)
}

func (r *CachedRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.next.FindByID(ctx, id)
}

func (r *CachedRepository) Insert(ctx context.Context, u *User) (*User, error) {
	created, err := r.next.Insert(ctx, u)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx)
	return created, nil
}

func (r *CachedRepository) Save(ctx context.Context, u *User) error {
	if err := r.next.Save(ctx, u); err != nil {
		return err
	}

	r.invalidate(ctx)
	return nil
}

func (r *CachedRepository) store(ctx context.Context, key string, users []User) {
	payload := make([]cachedUser, 0, len(users))
	for _, u := range users {
		payload = append(payload, cachedUser{User: u, PasswordHash: u.PasswordHash})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		r.logger.Warn("users cache encode failed", "error", err)
		return
	}

	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("users cache write failed", "key", key, "error", err)
		return
	}

	if err := r.client.SAdd(ctx, listKeysSet, key).Err(); err != nil {
		r.logger.Warn("users cache key tracking failed", "key", key, "error", err)
	}
}

// invalidate drops every cached projection of the list
func (r *CachedRepository) invalidate(ctx context.Context) {
	keys, err := r.client.SMembers(ctx, listKeysSet).Result()
	if err != nil {
		r.logger.Warn("users cache invalidation failed", "error", err)
		return
	}

	keys = append(keys, listKeysSet)
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("users cache invalidation failed", "error", err)
	}
}

func decodeUsers(raw []byte) ([]User, error) {
	var payload []cachedUser
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	users := make([]User, 0, len(payload))
	for _, c := range payload {
		u := c.User
		u.PasswordHash = c.PasswordHash
		users = append(users, Without(u))
	}
	return users, nil
}
