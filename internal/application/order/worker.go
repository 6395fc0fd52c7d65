package order

import (
	"context"

	"github.com/Zhima-Mochi/foodorder/internal/application"
	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	domain "github.com/Zhima-Mochi/foodorder/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/foodorder/internal/domain/outbox"
	"github.com/Zhima-Mochi/foodorder/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

const (
	workerService        = "order-worker"
	useCaseClearPaidCart = "order.worker.clear_cart_on_paid"
)

// HandlerMiddleware decorates an event handler, e.g. with a scoped logger.
type HandlerMiddleware func(domoutbox.Handler) domoutbox.Handler

// CartWorker empties a user's cart when their order is paid. It backs the
// on_paid cart-clear policy.
type CartWorker struct {
	carts CartClearer
	in    application.Instrument
}

func NewCartWorker(carts CartClearer, tel observability.Observability) *CartWorker {
	return &CartWorker{
		carts: carts,
		in:    application.NewInstrument(tel, workerService),
	}
}

// Register subscribes the worker to order.paid, applying mws outermost first.
func (w *CartWorker) Register(sub domoutbox.Subscriber, mws ...HandlerMiddleware) {
	h := domoutbox.Handler(w.handlePaid)
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	sub.Subscribe(domain.PaidEvent{}.EventName(), h)
}

func (w *CartWorker) handlePaid(ctx context.Context, e domoutbox.Event) (err error) {
	evt, ok := e.(domain.PaidEvent)
	if !ok {
		return nil
	}
	ctx, run := w.in.Start(ctx, useCaseClearPaidCart, "ClearCartOnPaid",
		attribute.String("event", e.EventName()),
		attribute.String("order.id", evt.OrderID),
		attribute.String("user.id", evt.UserID),
	)
	defer func() { run.End(err) }()
	run.Annotate(observability.F("order_id", evt.OrderID))

	if err := w.carts.Clear(ctx, evt.UserID); err != nil {
		return run.Fail("CART_CLEAR_FAILED", failure.Persistence("users.update_cart", err))
	}
	return nil
}
