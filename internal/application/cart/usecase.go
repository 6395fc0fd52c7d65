// Package cart is the Cart Engine: per-user add, remove and read of the
// persisted cart.
package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/Zhima-Mochi/foodorder/internal/application"
	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	domuser "github.com/Zhima-Mochi/foodorder/internal/domain/user"
	"github.com/Zhima-Mochi/foodorder/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

const (
	cartService   = "cart-service"
	useCaseAdd    = "cart.add"
	useCaseRemove = "cart.remove"
	useCaseGet    = "cart.get"
)

// Locker serializes cart read-modify-write cycles per user.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type ItemInput struct {
	UserID string
	ItemID string
}

type GetInput struct {
	UserID string
}

// Engine runs the three cart operations against the identity store.
type Engine struct {
	users domuser.Repository
	locks Locker
	in    application.Instrument
}

func NewEngine(users domuser.Repository, locks Locker, tel observability.Observability) *Engine {
	return &Engine{
		users: users,
		locks: locks,
		in:    application.NewInstrument(tel, cartService),
	}
}

// AddItem increments itemID by one and returns the resulting cart.
func (e *Engine) AddItem(ctx context.Context, cmd ItemInput) (_ domuser.Cart, err error) {
	ctx, run := e.in.Start(ctx, useCaseAdd, "AddToCart",
		attribute.String("user.id", cmd.UserID),
		attribute.String("item.id", cmd.ItemID),
	)
	defer func() { run.End(err) }()

	return e.mutate(ctx, run, cmd, domuser.Cart.Add)
}

// RemoveItem decrements itemID by one, dropping it at zero. Removing an item
// that is not in the cart leaves the cart unchanged.
func (e *Engine) RemoveItem(ctx context.Context, cmd ItemInput) (_ domuser.Cart, err error) {
	ctx, run := e.in.Start(ctx, useCaseRemove, "RemoveFromCart",
		attribute.String("user.id", cmd.UserID),
		attribute.String("item.id", cmd.ItemID),
	)
	defer func() { run.End(err) }()

	return e.mutate(ctx, run, cmd, domuser.Cart.Remove)
}

// GetCart returns a snapshot of the user's cart; a user without one gets an empty map.
func (e *Engine) GetCart(ctx context.Context, cmd GetInput) (_ domuser.Cart, err error) {
	ctx, run := e.in.Start(ctx, useCaseGet, "GetCart", attribute.String("user.id", cmd.UserID))
	defer func() { run.End(err) }()

	if cmd.UserID == "" {
		return nil, failure.New(failure.ErrUnauthenticated, "not authorized")
	}
	u, err := e.users.FindByID(ctx, cmd.UserID)
	if err != nil {
		return nil, run.Fail("USER_LOAD_FAILED", loadError(err))
	}
	snapshot := u.Cart.Snapshot()
	run.Annotate(observability.F("cart_lines", len(snapshot)))
	return snapshot, nil
}

// Clear empties the user's cart. It is used by order placement.
func (e *Engine) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return failure.Validation("user id is required")
	}
	unlock, err := e.locks.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	return failure.Persistence("users.update_cart", e.users.UpdateCart(ctx, userID, domuser.Cart{}))
}

func (e *Engine) mutate(ctx context.Context, run *application.Run, cmd ItemInput, op func(domuser.Cart, string)) (domuser.Cart, error) {
	if cmd.UserID == "" {
		return nil, failure.New(failure.ErrUnauthenticated, "not authorized")
	}
	itemID := strings.TrimSpace(cmd.ItemID)
	if itemID == "" {
		return nil, failure.Validation("itemId is required")
	}

	unlock, err := e.locks.Lock(ctx, cmd.UserID)
	if err != nil {
		return nil, run.Fail("LOCK_ABORTED", err)
	}
	defer unlock()

	u, err := e.users.FindByID(ctx, cmd.UserID)
	if err != nil {
		return nil, run.Fail("USER_LOAD_FAILED", loadError(err))
	}

	cart := u.Cart.Snapshot()
	op(cart, itemID)

	if err := e.users.UpdateCart(ctx, cmd.UserID, cart); err != nil {
		return nil, run.Fail("CART_SAVE_FAILED", failure.Persistence("users.update_cart", err))
	}
	run.Annotate(
		observability.F("item_id", itemID),
		observability.F("quantity", cart[itemID]),
	)
	return cart.Snapshot(), nil
}

func loadError(err error) error {
	if errors.Is(err, failure.ErrNotFound) {
		return failure.Wrap(failure.ErrNotFound, "user not found", err)
	}
	return failure.Persistence("users.get", err)
}
