package user

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a process-local Store. It backs STORE_DRIVER=memory and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]User
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[uuid.UUID]User),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

// FindAll returns users ordered by creation time.
func (r *MemoryRepository) FindAll(ctx context.Context, exclude ...Field) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]User, 0, len(r.byID))
	for _, u := range r.byID {
		users = append(users, Without(u, exclude...))
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID.String() < users[j].ID.String()
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	return users, nil
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}

	u := Without(r.byID[id])
	return &u, nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	out := Without(u)
	return &out, nil
}

func (r *MemoryRepository) Insert(ctx context.Context, u *User) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return nil, ErrDuplicateEmail
	}

	stored := Without(*u)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.byID[stored.ID] = stored
	r.byEmail[stored.Email] = stored.ID

	out := Without(stored)
	return &out, nil
}

func (r *MemoryRepository) Save(ctx context.Context, u *User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[u.ID]
	if !ok {
		return ErrNotFound
	}

	if owner, taken := r.byEmail[u.Email]; taken && owner != u.ID {
		return ErrDuplicateEmail
	}

	stored := Without(*u)
	stored.CreatedAt = current.CreatedAt
	stored.UpdatedAt = r.now()

	delete(r.byEmail, current.Email)
	r.byEmail[stored.Email] = stored.ID
	r.byID[stored.ID] = stored

	u.CreatedAt = stored.CreatedAt
	u.UpdatedAt = stored.UpdatedAt

	return nil
}
