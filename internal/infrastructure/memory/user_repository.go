package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	domain "github.com/Zhima-Mochi/foodorder/internal/domain/user"
)

type UserRepository struct {
	mu      sync.RWMutex
	users   map[string]*domain.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) Insert(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return failure.Persistence("users.insert", err)
	}
	if u == nil || u.ID == "" {
		return failure.Validation("user id is required")
	}
	email := domain.NormalizeEmail(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; exists {
		return failure.New(failure.ErrConflict, "email already registered")
	}
	if _, exists := r.users[u.ID]; exists {
		return failure.New(failure.ErrConflict, "user already exists")
	}
	r.users[u.ID] = u.Clone()
	r.byEmail[email] = u.ID
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Persistence("users.get", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, failure.New(failure.ErrNotFound, "user not found")
	}
	return u.Clone(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Persistence("users.get_by_email", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, failure.New(failure.ErrNotFound, "user not found")
	}
	return r.users[id].Clone(), nil
}

func (r *UserRepository) UpdateCart(ctx context.Context, id string, cart domain.Cart) error {
	if err := ctx.Err(); err != nil {
		return failure.Persistence("users.update_cart", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return failure.New(failure.ErrNotFound, "user not found")
	}
	u.Cart = cart.Normalize()
	return nil
}
