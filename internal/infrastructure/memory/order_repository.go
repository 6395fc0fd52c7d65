package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	domain "github.com/Zhima-Mochi/foodorder/internal/domain/order"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return failure.Persistence("orders.insert", err)
	}
	if order == nil || order.ID == "" {
		return failure.Validation("order id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return failure.New(failure.ErrConflict, "order already exists")
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Persistence("orders.get", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, failure.New(failure.ErrNotFound, "order not found")
	}
	return order.Clone(), nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return failure.Persistence("orders.update", err)
	}
	if order == nil || order.ID == "" {
		return failure.Validation("order id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; !exists {
		return failure.New(failure.ErrNotFound, "order not found")
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return r.list(ctx, func(o *domain.Order) bool { return o.UserID == userID })
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	return r.list(ctx, func(*domain.Order) bool { return true })
}

func (r *OrderRepository) list(ctx context.Context, keep func(*domain.Order) bool) ([]*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Persistence("orders.list", err)
	}

	r.mu.RLock()
	out := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
