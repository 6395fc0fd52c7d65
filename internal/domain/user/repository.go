package user

import "context"

// Repository is the Identity Store.
type Repository interface {
	// Insert stores a new user; a taken email yields failure.ErrConflict.
	Insert(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// UpdateCart replaces only the cart field of the user.
	UpdateCart(ctx context.Context, id string, cart Cart) error
}
