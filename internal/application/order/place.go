package order

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Zhima-Mochi/foodorder/internal/application"
	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	domain "github.com/Zhima-Mochi/foodorder/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/foodorder/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/foodorder/internal/domain/payment"
	"github.com/Zhima-Mochi/foodorder/internal/observability"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService      = "order-service"
	useCasePlaceOrder = "order.place"
	publishPeer       = "outbox"
	publishTimeout    = 300 * time.Millisecond

	// DeliveryChargeName labels the fixed delivery line on every checkout.
	DeliveryChargeName = "Delivery Charge"

	msgPlacementFailed = "Error placing order"
)

// CheckoutConfig shapes the session requested from the payment gateway.
type CheckoutConfig struct {
	Currency         string
	DeliveryFeeMinor int64
	FrontendURL      string
	// ClearCartOnPlace empties the cart right after the order is stored. When
	// false the cart is left for the order.paid handler.
	ClearCartOnPlace bool
}

type ItemInput struct {
	ItemID   string
	Name     string
	Price    decimal.Decimal
	Quantity int
}

type PlaceOrderInput struct {
	UserID  string
	Items   []ItemInput
	Amount  decimal.Decimal
	Address domain.Address
}

type PlaceOrderResult struct {
	OrderID    string
	SessionURL string
}

type PlaceOrderUseCase struct {
	repo      domain.Repository
	carts     CartClearer
	gateway   dompay.Gateway
	ids       application.IDGenerator
	publisher domoutbox.Publisher
	cfg       CheckoutConfig
	in        application.Instrument

	mismatch     observability.Counter   // order_amount_mismatch_total
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewPlaceOrderUseCase(
	repo domain.Repository,
	carts CartClearer,
	gateway dompay.Gateway,
	ids application.IDGenerator,
	publisher domoutbox.Publisher,
	cfg CheckoutConfig,
	tel observability.Observability,
) *PlaceOrderUseCase {
	metrics := observability.MetricsOf(tel)
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &PlaceOrderUseCase{
		repo:         repo,
		carts:        carts,
		gateway:      gateway,
		ids:          ids,
		publisher:    publisher,
		cfg:          cfg,
		in:           application.NewInstrument(tel, orderService),
		mismatch:     metrics.Counter(observability.MOrderAmountMismatch),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

var _ application.UseCase[PlaceOrderInput, *PlaceOrderResult] = (*PlaceOrderUseCase)(nil)

// Execute stores the order, clears the cart, opens a checkout session and
// records the session id on the order.
// Steps are not transactional: a gateway failure leaves the order stored and
// the cart already cleared.
func (uc *PlaceOrderUseCase) Execute(ctx context.Context, cmd PlaceOrderInput) (_ *PlaceOrderResult, err error) {
	ctx, run := uc.in.Start(ctx, useCasePlaceOrder, "PlaceOrder",
		attribute.String("user.id", cmd.UserID),
		attribute.Int("order.items", len(cmd.Items)),
	)
	defer func() { run.End(err) }()
	logger := run.Logger()

	if cmd.UserID == "" {
		return nil, failure.New(failure.ErrUnauthenticated, "not authorized")
	}

	items := make([]domain.LineItem, 0, len(cmd.Items))
	for _, it := range cmd.Items {
		items = append(items, domain.LineItem{
			ItemID:   strings.TrimSpace(it.ItemID),
			Name:     strings.TrimSpace(it.Name),
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}

	orderID := uc.ids.NewID()
	entity, err := domain.New(orderID, cmd.UserID, items, cmd.Amount, cmd.Address)
	if err != nil {
		return nil, err
	}
	run.Span().SetAttributes(attribute.String("order.id", orderID))
	run.Annotate(observability.F("order_id", orderID))

	if expected := uc.expectedAmount(entity); !entity.Amount.Equal(expected) {
		uc.mismatch.Add(1)
		run.Span().AddEvent("order.amount_mismatch")
		logger.Warn("order_amount_mismatch",
			observability.F("order_id", orderID),
			observability.F("amount", entity.Amount.String()),
			observability.F("expected_amount", expected.String()),
		)
	}

	if err := uc.repo.Insert(ctx, entity); err != nil {
		return nil, run.Fail("REPO_INSERT_FAILED", placementError(failure.Persistence("orders.insert", err)))
	}
	uc.publish(ctx, run, domain.NewPlacedEvent(entity))

	if uc.cfg.ClearCartOnPlace {
		if err := uc.carts.Clear(ctx, cmd.UserID); err != nil {
			return nil, run.Fail("CART_CLEAR_FAILED", placementError(failure.Persistence("users.update_cart", err)))
		}
	}

	session, err := uc.gateway.CreateCheckoutSession(ctx, uc.checkoutRequest(entity))
	if err != nil {
		if !errors.Is(err, failure.ErrGateway) {
			err = failure.Wrap(failure.ErrGateway, "checkout session could not be created", err)
		}
		return nil, run.Fail("CHECKOUT_FAILED", placementError(err))
	}

	entity.AttachCheckout(session.ID)
	if err := uc.repo.Update(ctx, entity); err != nil {
		return nil, run.Fail("REPO_UPDATE_FAILED", placementError(failure.Persistence("orders.update", err)))
	}

	run.Span().AddEvent("order.placed", trace.WithAttributes(attribute.String("checkout.session_id", session.ID)))
	return &PlaceOrderResult{OrderID: entity.ID, SessionURL: session.URL}, nil
}

func (uc *PlaceOrderUseCase) expectedAmount(o *domain.Order) decimal.Decimal {
	return o.Subtotal().Add(decimal.New(uc.cfg.DeliveryFeeMinor, -2))
}

func (uc *PlaceOrderUseCase) checkoutRequest(o *domain.Order) dompay.CheckoutRequest {
	lines := make([]dompay.LineItem, 0, len(o.Items)+1)
	for _, it := range o.Items {
		// domain.New rejects prices outside the int64 minor-unit range.
		unit, _ := domain.MinorUnits(it.Price)
		lines = append(lines, dompay.LineItem{
			Name:       it.Name,
			UnitAmount: unit,
			Quantity:   int64(it.Quantity),
		})
	}
	lines = append(lines, dompay.LineItem{
		Name:       DeliveryChargeName,
		UnitAmount: uc.cfg.DeliveryFeeMinor,
		Quantity:   1,
	})

	return dompay.CheckoutRequest{
		OrderID:    o.ID,
		Currency:   uc.cfg.Currency,
		LineItems:  lines,
		SuccessURL: VerifyURL(uc.cfg.FrontendURL, o.ID, true),
		CancelURL:  VerifyURL(uc.cfg.FrontendURL, o.ID, false),
	}
}

// publish is best effort: a failure is logged and recorded on the span only.
func (uc *PlaceOrderUseCase) publish(ctx context.Context, run *application.Run, evt domoutbox.Event) {
	if uc.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	outcome := "success"
	if err := uc.publisher.Publish(pubCtx, evt); err != nil {
		outcome = "error"
		run.Span().RecordError(err)
		run.Logger().Warn("event_publish_failed",
			observability.F("event", evt.EventName()),
			observability.F("error", err.Error()),
		)
	}
	uc.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", evt.EventName()),
		observability.L("outcome", outcome),
	)
	uc.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", evt.EventName()),
	)
}

// VerifyURL is the front-end page the checkout returns to.
func VerifyURL(frontend, orderID string, success bool) string {
	return frontend + "/verify?success=" + strconv.FormatBool(success) + "&orderId=" + url.QueryEscape(orderID)
}

func placementError(cause error) error {
	return failure.Wrap(failure.ErrOrderPlacement, msgPlacementFailed, cause)
}
