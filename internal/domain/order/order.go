package order

import (
	"strings"
	"time"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

var (
	ErrInvalidStateTransition = &failure.Error{Kind: failure.ErrValidation, Msg: "invalid order status transition"}
	ErrUnknownStatus          = &failure.Error{Kind: failure.ErrValidation, Msg: "unknown order status"}
)

type Status string

const (
	StatusProcessing     Status = "processing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// ParseStatus accepts the wire names of the statuses.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusProcessing, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", ErrUnknownStatus
}

// LineItem is a denormalized copy of a menu item at placement time.
type LineItem struct {
	ItemID   string
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// Total is Price × Quantity.
func (li LineItem) Total() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Address struct {
	FirstName string
	LastName  string
	Email     string
	Street    string
	City      string
	State     string
	Zipcode   string
	Country   string
	Phone     string
}

type Order struct {
	ID                string
	UserID            string
	Items             []LineItem
	Amount            decimal.Decimal
	Address           Address
	Status            Status
	Payment           bool
	FailureReason     string
	CheckoutSessionID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// New validates the request shape and builds a processing, unpaid order.
// Amount is stored as given; it is not recomputed from the items.
func New(id, userID string, items []LineItem, amount decimal.Decimal, address Address) (*Order, error) {
	if id == "" {
		return nil, failure.Validation("order id is required")
	}
	if userID == "" {
		return nil, failure.Validation("user id is required")
	}
	if len(items) == 0 {
		return nil, failure.Validation("at least one item is required")
	}
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			return nil, failure.Validation("item name is required")
		}
		if !it.Price.IsPositive() {
			return nil, failure.Validation("item price must be greater than zero")
		}
		if _, ok := MinorUnits(it.Price); !ok {
			return nil, failure.Validation("item price is too large")
		}
		if it.Quantity <= 0 {
			return nil, failure.Validation("item quantity must be greater than zero")
		}
	}
	if !amount.IsPositive() {
		return nil, failure.Validation("amount must be greater than zero")
	}

	now := time.Now().UTC()
	return &Order{
		ID:        id,
		UserID:    userID,
		Items:     append([]LineItem(nil), items...),
		Amount:    amount,
		Address:   address,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MinorUnits converts a major-unit price to minor units, rounding half away
// from zero. ok is false when the result does not fit in an int64.
func MinorUnits(price decimal.Decimal) (minor int64, ok bool) {
	m := price.Mul(hundred).Round(0)
	if !m.BigInt().IsInt64() {
		return 0, false
	}
	return m.IntPart(), true
}

// Subtotal is the sum of the line totals.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Total())
	}
	return sum
}

// AttachCheckout records the gateway session opened for the order.
func (o *Order) AttachCheckout(sessionID string) {
	o.CheckoutSessionID = sessionID
	o.touch()
}

// MarkPaid records a successful checkout.
func (o *Order) MarkPaid() error {
	return o.apply(func(s State) (State, error) { return s.OnPaymentSucceeded(o) })
}

// MarkPaymentFailed cancels an unpaid order.
func (o *Order) MarkPaymentFailed(reason string) error {
	return o.apply(func(s State) (State, error) { return s.OnPaymentFailed(o, reason) })
}

// Advance moves the order to target following the allowed transitions.
func (o *Order) Advance(target Status) error {
	switch target {
	case StatusOutForDelivery:
		return o.apply(func(s State) (State, error) { return s.OnDispatched(o) })
	case StatusDelivered:
		return o.apply(func(s State) (State, error) { return s.OnDelivered(o) })
	case StatusCancelled:
		return o.apply(func(s State) (State, error) { return s.OnCancelled(o, "cancelled") })
	case StatusProcessing:
		if o.Status == StatusProcessing {
			return nil
		}
		return ErrInvalidStateTransition
	default:
		return ErrUnknownStatus
	}
}

func (o *Order) apply(fn func(State) (State, error)) error {
	current, err := stateFor(o.Status)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	o.Status = next.Status()
	o.touch()
	return nil
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]LineItem(nil), o.Items...)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
