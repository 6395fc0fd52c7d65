package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	domain "github.com/Zhima-Mochi/foodorder/internal/domain/menu"
)

type MenuRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Item
}

func NewMenuRepository() *MenuRepository {
	return &MenuRepository{
		items: make(map[string]*domain.Item),
	}
}

func (r *MenuRepository) Insert(ctx context.Context, item *domain.Item) error {
	if err := ctx.Err(); err != nil {
		return failure.Persistence("menu.insert", err)
	}
	if item == nil || item.ID == "" {
		return failure.Validation("item id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; exists {
		return failure.New(failure.ErrConflict, "item already exists")
	}
	r.items[item.ID] = cloneItem(item)
	return nil
}

func (r *MenuRepository) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Persistence("menu.get", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, failure.New(failure.ErrNotFound, "item not found")
	}
	return cloneItem(item), nil
}

func (r *MenuRepository) List(ctx context.Context) ([]*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Persistence("menu.list", err)
	}

	r.mu.RLock()
	out := make([]*domain.Item, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, cloneItem(item))
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MenuRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return failure.Persistence("menu.delete", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return failure.New(failure.ErrNotFound, "item not found")
	}
	delete(r.items, id)
	return nil
}

func cloneItem(item *domain.Item) *domain.Item {
	if item == nil {
		return nil
	}
	clone := *item
	return &clone
}
