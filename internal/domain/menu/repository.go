package menu

import "context"

// Repository is the Catalog Store.
type Repository interface {
	Insert(ctx context.Context, item *Item) error
	FindByID(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context) ([]*Item, error)
	// Delete removes the item; an absent id yields failure.ErrNotFound.
	Delete(ctx context.Context, id string) error
}
