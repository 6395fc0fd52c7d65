package payment

import (
	"context"
	"strings"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	dompay "github.com/Zhima-Mochi/foodorder/internal/domain/payment"
	"github.com/Zhima-Mochi/foodorder/internal/observability"
	"github.com/Zhima-Mochi/foodorder/internal/observability/logctx"
)

const fakeSessionPrefix = "fake_"

// FakeGateway skips the hosted checkout and points straight at the success
// URL. It is used when no Stripe key is configured.
type FakeGateway struct {
	log observability.Logger
}

func NewFakeGateway(tel observability.Observability) *FakeGateway {
	return &FakeGateway{
		log: observability.LoggerOf(tel).With(observability.F("component", "fake_gateway")),
	}
}

var _ dompay.Gateway = (*FakeGateway)(nil)

func (g *FakeGateway) CreateCheckoutSession(ctx context.Context, req dompay.CheckoutRequest) (dompay.Session, error) {
	if _, err := checkoutParams(req); err != nil {
		return dompay.Session{}, err
	}
	if err := ctx.Err(); err != nil {
		return dompay.Session{}, failure.Wrap(failure.ErrGateway, "checkout aborted", err)
	}
	logctx.FromOr(ctx, g.log).Info("fake_checkout_created",
		observability.F("order_id", req.OrderID),
		observability.F("line_items", len(req.LineItems)),
	)
	return dompay.Session{
		ID:  fakeSessionPrefix + req.OrderID,
		URL: req.SuccessURL,
	}, nil
}

// SessionPaid treats every session it opened as paid.
func (g *FakeGateway) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, failure.Wrap(failure.ErrGateway, "checkout lookup aborted", err)
	}
	return strings.HasPrefix(sessionID, fakeSessionPrefix), nil
}
