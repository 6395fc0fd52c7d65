package payment

import "context"

// LineItem is one row of a hosted checkout, priced in minor currency units.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// CheckoutRequest describes the checkout session to open for an order.
type CheckoutRequest struct {
	OrderID    string
	Currency   string
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
}

// Session is an opened checkout; URL is where the payer is redirected.
type Session struct {
	ID  string
	URL string
}

// Gateway opens hosted checkout sessions and reports whether one was paid.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Session, error)
	SessionPaid(ctx context.Context, sessionID string) (bool, error)
}
