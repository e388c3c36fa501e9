package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"seatrotation/internal/domain"
)

// UserRepository stores users in memory.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return domain.ErrDuplicateUser
		}
		if u.Email != "" && strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrDuplicateUser
		}
	}
	u.ID = uuid.NewString()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepository) CountByBatch(ctx context.Context, batch domain.Batch) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, u := range r.users {
		if u.Batch == batch {
			n++
		}
	}
	return n, nil
}

func (r *UserRepository) CountBySquad(ctx context.Context, squad domain.Squad) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, u := range r.users {
		if u.Squad == squad {
			n++
		}
	}
	return n, nil
}
