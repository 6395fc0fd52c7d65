package menu

import (
	"strings"
	"time"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	"github.com/shopspring/decimal"
)

// Item is a catalog entry. Items are immutable once created.
type Item struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Image       string
	CreatedAt   time.Time
}

// NewItem validates and builds an item.
func NewItem(id, name, description string, price decimal.Decimal, category, image string) (*Item, error) {
	name = strings.TrimSpace(name)
	category = strings.TrimSpace(category)
	switch {
	case id == "":
		return nil, failure.Validation("item id is required")
	case name == "":
		return nil, failure.Validation("name is required")
	case !price.IsPositive():
		return nil, failure.Validation("price must be greater than zero")
	case category == "":
		return nil, failure.Validation("category is required")
	case image == "":
		return nil, failure.Validation("image is required")
	}
	return &Item{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(description),
		Price:       price,
		Category:    category,
		Image:       image,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
