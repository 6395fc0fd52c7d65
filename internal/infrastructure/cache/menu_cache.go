// Package cache keeps the public menu listing in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/foodorder/internal/domain/menu"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const menuListKey = "foodorder:menu:list"

type cachedItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// MenuCache stores the full menu list under one key.
type MenuCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// Dial parses a redis:// URL and pings the server.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func NewMenuCache(client redis.UniversalClient, ttl time.Duration) *MenuCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MenuCache{client: client, ttl: ttl}
}

// Get returns the cached list; ok is false on a miss.
func (c *MenuCache) Get(ctx context.Context) (items []*menu.Item, ok bool, err error) {
	raw, err := c.client.Get(ctx, menuListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var cached []cachedItem
	if err := json.Unmarshal(raw, &cached); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = c.client.Del(ctx, menuListKey).Err()
		return nil, false, nil
	}

	items = make([]*menu.Item, 0, len(cached))
	for _, ci := range cached {
		items = append(items, &menu.Item{
			ID:          ci.ID,
			Name:        ci.Name,
			Description: ci.Description,
			Price:       ci.Price,
			Category:    ci.Category,
			Image:       ci.Image,
			CreatedAt:   ci.CreatedAt,
		})
	}
	return items, true, nil
}

func (c *MenuCache) Set(ctx context.Context, items []*menu.Item) error {
	cached := make([]cachedItem, 0, len(items))
	for _, it := range items {
		cached = append(cached, cachedItem{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Price:       it.Price,
			Category:    it.Category,
			Image:       it.Image,
			CreatedAt:   it.CreatedAt,
		})
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("encode menu: %w", err)
	}
	if err := c.client.Set(ctx, menuListKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *MenuCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, menuListKey).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
