package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlacedEvent is emitted once an order has been persisted.
type PlacedEvent struct {
	OrderID    string
	UserID     string
	Amount     decimal.Decimal
	OccurredAt time.Time
}

func (PlacedEvent) EventName() string { return "order.placed" }

func NewPlacedEvent(o *Order) PlacedEvent {
	return PlacedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Amount:     o.Amount,
		OccurredAt: time.Now().UTC(),
	}
}

// PaidEvent is emitted when checkout completes successfully.
type PaidEvent struct {
	OrderID    string
	UserID     string
	OccurredAt time.Time
}

func (PaidEvent) EventName() string { return "order.paid" }

func NewPaidEvent(o *Order) PaidEvent {
	return PaidEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		OccurredAt: time.Now().UTC(),
	}
}

// CancelledEvent is emitted when checkout is abandoned or the order is cancelled.
type CancelledEvent struct {
	OrderID    string
	UserID     string
	Reason     string
	OccurredAt time.Time
}

func (CancelledEvent) EventName() string { return "order.cancelled" }

func NewCancelledEvent(o *Order) CancelledEvent {
	return CancelledEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Reason:     o.FailureReason,
		OccurredAt: time.Now().UTC(),
	}
}
