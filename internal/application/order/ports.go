package order

import "context"

// CartClearer empties a user's cart once an order owns its contents.
type CartClearer interface {
	Clear(ctx context.Context, userID string) error
}
