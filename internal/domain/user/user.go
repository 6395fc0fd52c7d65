package user

import (
	"maps"
	"strings"
	"time"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
)

// User is a registered identity. PasswordHash is never returned to clients.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Cart         Cart
	CreatedAt    time.Time
}

// New builds a user with an empty cart.
func New(id, name, email, passwordHash string) (*User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if id == "" {
		return nil, failure.Validation("user id is required")
	}
	if name == "" {
		return nil, failure.Validation("name is required")
	}
	if email == "" {
		return nil, failure.Validation("email is required")
	}
	if passwordHash == "" {
		return nil, failure.Validation("password is required")
	}
	return &User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Cart:         Cart{},
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// NormalizeEmail lower-cases and trims an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Cart = u.Cart.Snapshot()
	return &clone
}

// Cart maps a menu item id to a strictly positive quantity.
type Cart map[string]int

// Add increments itemID by one, starting at one when absent.
func (c Cart) Add(itemID string) {
	c[itemID]++
}

// Remove decrements itemID by one and drops the key once it reaches zero.
// Removing an absent item is a no-op.
func (c Cart) Remove(itemID string) {
	qty, ok := c[itemID]
	if !ok {
		return
	}
	if qty-1 <= 0 {
		delete(c, itemID)
		return
	}
	c[itemID] = qty - 1
}

// Snapshot returns an independent copy; a nil cart yields an empty map.
func (c Cart) Snapshot() Cart {
	out := make(Cart, len(c))
	maps.Copy(out, c)
	return out
}

// Normalize drops non-positive quantities left behind by older writers.
func (c Cart) Normalize() Cart {
	out := make(Cart, len(c))
	for k, v := range c {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}
