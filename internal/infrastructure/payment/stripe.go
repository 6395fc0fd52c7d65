// Package payment holds the checkout gateway adapters.
package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	dompay "github.com/Zhima-Mochi/foodorder/internal/domain/payment"
	"github.com/Zhima-Mochi/foodorder/internal/observability"
	"github.com/Zhima-Mochi/foodorder/internal/observability/logctx"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/text/currency"
)

const (
	peerStripe             = "stripe"
	endpointCheckoutCreate = "checkout.sessions.create"
	endpointCheckoutGet    = "checkout.sessions.get"
)

// sessionClient is the slice of the Stripe client the gateway calls.
type sessionClient interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGateway creates hosted checkout sessions through the Stripe API.
type StripeGateway struct {
	sessions sessionClient
	tracer   observability.Tracer
	log      observability.Logger
	reqs     observability.Counter
	dur      observability.Histogram
}

// NewStripeGateway builds a gateway on a dedicated client; no package-level
// Stripe key is set.
func NewStripeGateway(secretKey string, tel observability.Observability) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return newStripeGateway(sc.CheckoutSessions, tel)
}

func newStripeGateway(sessions sessionClient, tel observability.Observability) *StripeGateway {
	metrics := observability.MetricsOf(tel)
	return &StripeGateway{
		sessions: sessions,
		tracer:   observability.TracerOf(tel),
		log:      observability.LoggerOf(tel).With(observability.F("component", "stripe_gateway")),
		reqs:     metrics.Counter(observability.MExternalRequests),
		dur:      metrics.Histogram(observability.MExternalRequestDuration),
	}
}

var _ dompay.Gateway = (*StripeGateway)(nil)

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req dompay.CheckoutRequest) (_ dompay.Session, err error) {
	ctx, done := g.call(ctx, "Stripe.CreateCheckoutSession", endpointCheckoutCreate,
		attribute.String("order.id", req.OrderID),
		attribute.Int("checkout.line_items", len(req.LineItems)),
	)
	defer func() { done(err) }()

	params, err := checkoutParams(req)
	if err != nil {
		return dompay.Session{}, err
	}
	params.Context = ctx

	sess, err := g.sessions.New(params)
	if err != nil {
		logctx.FromOr(ctx, g.log).Warn("stripe_checkout_failed",
			observability.F("order_id", req.OrderID),
			observability.F("error", err),
		)
		return dompay.Session{}, failure.Wrap(failure.ErrGateway, "checkout session could not be created", err)
	}
	return dompay.Session{ID: sess.ID, URL: sess.URL}, nil
}

// SessionPaid reports whether the checkout session has collected payment.
func (g *StripeGateway) SessionPaid(ctx context.Context, sessionID string) (_ bool, err error) {
	ctx, done := g.call(ctx, "Stripe.GetCheckoutSession", endpointCheckoutGet,
		attribute.String("checkout.session_id", sessionID),
	)
	defer func() { done(err) }()

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := g.sessions.Get(sessionID, params)
	if err != nil {
		logctx.FromOr(ctx, g.log).Warn("stripe_session_lookup_failed",
			observability.F("session_id", sessionID),
			observability.F("error", err),
		)
		return false, failure.Wrap(failure.ErrGateway, "checkout session could not be checked", err)
	}
	switch sess.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return true, nil
	}
	return false, nil
}

// call opens a client span for one Stripe request; done ends it and records
// the external request metrics.
func (g *StripeGateway) call(ctx context.Context, spanName, endpoint string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := g.tracer.Start(ctx, spanName, append([]attribute.KeyValue{attribute.String("peer.service", peerStripe)}, attrs...)...)
	start := time.Now()
	return ctx, func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, "stripe request failed")
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
		g.reqs.Add(1,
			observability.L("peer", peerStripe),
			observability.L("endpoint", endpoint),
			observability.L("outcome", outcome),
		)
		g.dur.Observe(time.Since(start).Seconds(),
			observability.L("peer", peerStripe),
			observability.L("endpoint", endpoint),
		)
	}
}

// checkoutParams maps a checkout request onto Stripe session parameters.
func checkoutParams(req dompay.CheckoutRequest) (*stripe.CheckoutSessionParams, error) {
	cur, err := NormalizeCurrency(req.Currency)
	if err != nil {
		return nil, failure.Wrap(failure.ErrGateway, "invalid checkout currency", err)
	}
	if len(req.LineItems) == 0 {
		return nil, failure.New(failure.ErrGateway, "checkout needs at least one line item")
	}

	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(cur),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(li.Name),
				},
				UnitAmount: stripe.Int64(li.UnitAmount),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}

	return &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          items,
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ClientReferenceID:  stripe.String(req.OrderID),
	}, nil
}

// NormalizeCurrency validates an ISO 4217 code and returns it lower-cased.
func NormalizeCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("currency %q: %w", code, err)
	}
	return strings.ToLower(unit.String()), nil
}
