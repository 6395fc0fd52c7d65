package order

import (
	"context"
	"errors"
	"strings"

	"github.com/Zhima-Mochi/foodorder/internal/application"
	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	domain "github.com/Zhima-Mochi/foodorder/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/foodorder/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/foodorder/internal/domain/payment"
	"github.com/Zhima-Mochi/foodorder/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseVerifyPayment  = "order.verify_payment"
	useCaseListUserOrders = "order.list_user"
	useCaseListOrders     = "order.list"
	useCaseUpdateStatus   = "order.update_status"

	reasonCheckoutCancelled = "checkout cancelled"

	verifyPaid        = "paid"
	verifyAlreadyPaid = "already_paid"
	verifyPending     = "pending"
	verifyCancelled   = "cancelled"
)

type VerifyPaymentInput struct {
	UserID  string
	OrderID string
	Success bool
}

type VerifyPaymentResult struct {
	OrderID string
	Paid    bool
	Status  domain.Status
}

// Manager runs the order operations that follow placement.
type Manager struct {
	repo      domain.Repository
	gateway   dompay.Gateway
	publisher domoutbox.Publisher
	in        application.Instrument
	verified  observability.Counter // payment_verifications_total{outcome}
}

func NewManager(repo domain.Repository, gateway dompay.Gateway, publisher domoutbox.Publisher, tel observability.Observability) *Manager {
	return &Manager{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		in:        application.NewInstrument(tel, orderService),
		verified:  observability.MetricsOf(tel).Counter(observability.MPaymentVerifications),
	}
}

// VerifyPayment records the checkout outcome the front end reports back for
// one of the caller's orders. A success claim only marks the order paid once
// the gateway confirms its session; an already paid order is returned as is.
// A failure claim cancels the unpaid order.
func (m *Manager) VerifyPayment(ctx context.Context, cmd VerifyPaymentInput) (_ *VerifyPaymentResult, err error) {
	ctx, run := m.in.Start(ctx, useCaseVerifyPayment, "VerifyPayment",
		attribute.String("order.id", cmd.OrderID),
		attribute.Bool("payment.success", cmd.Success),
	)
	defer func() { run.End(err) }()

	if cmd.UserID == "" {
		return nil, failure.New(failure.ErrUnauthenticated, "not authorized")
	}
	o, err := m.load(ctx, cmd.OrderID)
	if err != nil {
		return nil, run.Fail("ORDER_LOAD_FAILED", err)
	}
	if o.UserID != cmd.UserID {
		return nil, run.Fail("ORDER_NOT_OWNED", failure.New(failure.ErrNotFound, "order not found"))
	}
	run.Annotate(observability.F("order_id", o.ID), observability.F("user_id", o.UserID))

	var evt domoutbox.Event
	if cmd.Success {
		if o.Payment {
			m.verified.Add(1, observability.L("outcome", verifyAlreadyPaid))
			return verifyResult(o), nil
		}
		paid, err := m.sessionPaid(ctx, o)
		if err != nil {
			return nil, run.Fail("GATEWAY_CHECK_FAILED", err)
		}
		if !paid {
			m.verified.Add(1, observability.L("outcome", verifyPending))
			return verifyResult(o), nil
		}
		if err := o.MarkPaid(); err != nil {
			return nil, run.Fail("STATE_TRANSITION_FAILED", err)
		}
		evt = domain.NewPaidEvent(o)
	} else {
		if err := o.MarkPaymentFailed(reasonCheckoutCancelled); err != nil {
			return nil, run.Fail("STATE_TRANSITION_FAILED", err)
		}
		evt = domain.NewCancelledEvent(o)
	}

	if err := m.repo.Update(ctx, o); err != nil {
		return nil, run.Fail("ORDER_UPDATE_FAILED", failure.Persistence("orders.update", err))
	}
	m.publish(ctx, run, evt)

	outcome := verifyCancelled
	if o.Payment {
		outcome = verifyPaid
	}
	m.verified.Add(1, observability.L("outcome", outcome))
	return verifyResult(o), nil
}

// sessionPaid asks the gateway about the order's checkout session. An order
// without a session never reached checkout and is unpaid.
func (m *Manager) sessionPaid(ctx context.Context, o *domain.Order) (bool, error) {
	if o.CheckoutSessionID == "" || m.gateway == nil {
		return false, nil
	}
	paid, err := m.gateway.SessionPaid(ctx, o.CheckoutSessionID)
	if err != nil {
		if !errors.Is(err, failure.ErrGateway) {
			err = failure.Wrap(failure.ErrGateway, "checkout session could not be checked", err)
		}
		return false, err
	}
	return paid, nil
}

func verifyResult(o *domain.Order) *VerifyPaymentResult {
	return &VerifyPaymentResult{OrderID: o.ID, Paid: o.Payment, Status: o.Status}
}

// ListUserOrders returns the user's orders, newest first.
func (m *Manager) ListUserOrders(ctx context.Context, userID string) (_ []*domain.Order, err error) {
	ctx, run := m.in.Start(ctx, useCaseListUserOrders, "ListUserOrders", attribute.String("user.id", userID))
	defer func() { run.End(err) }()

	if userID == "" {
		return nil, failure.New(failure.ErrUnauthenticated, "not authorized")
	}
	orders, err := m.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, run.Fail("ORDER_LIST_FAILED", failure.Persistence("orders.list_by_user", err))
	}
	run.Annotate(observability.F("orders", len(orders)))
	return orders, nil
}

// ListOrders returns every order, newest first.
func (m *Manager) ListOrders(ctx context.Context) (_ []*domain.Order, err error) {
	ctx, run := m.in.Start(ctx, useCaseListOrders, "ListOrders")
	defer func() { run.End(err) }()

	orders, err := m.repo.List(ctx)
	if err != nil {
		return nil, run.Fail("ORDER_LIST_FAILED", failure.Persistence("orders.list", err))
	}
	run.Annotate(observability.F("orders", len(orders)))
	return orders, nil
}

type UpdateStatusInput struct {
	OrderID string
	Status  string
}

// UpdateStatus moves an order along its lifecycle. Illegal transitions are
// validation failures.
func (m *Manager) UpdateStatus(ctx context.Context, cmd UpdateStatusInput) (_ *domain.Order, err error) {
	ctx, run := m.in.Start(ctx, useCaseUpdateStatus, "UpdateStatus",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.status_requested", cmd.Status),
	)
	defer func() { run.End(err) }()

	target, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	o, err := m.load(ctx, cmd.OrderID)
	if err != nil {
		return nil, run.Fail("ORDER_LOAD_FAILED", err)
	}
	from := o.Status
	if err := o.Advance(target); err != nil {
		return nil, run.Fail("STATE_TRANSITION_FAILED", err)
	}
	if err := m.repo.Update(ctx, o); err != nil {
		return nil, run.Fail("ORDER_UPDATE_FAILED", failure.Persistence("orders.update", err))
	}
	if target == domain.StatusCancelled && from != domain.StatusCancelled {
		m.publish(ctx, run, domain.NewCancelledEvent(o))
	}

	run.Annotate(
		observability.F("from_status", string(from)),
		observability.F("to_status", string(o.Status)),
	)
	return o, nil
}

func (m *Manager) load(ctx context.Context, orderID string) (*domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, failure.Validation("orderId is required")
	}
	o, err := m.repo.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, failure.ErrNotFound) {
			return nil, failure.Wrap(failure.ErrNotFound, "order not found", err)
		}
		return nil, failure.Persistence("orders.get", err)
	}
	return o, nil
}

func (m *Manager) publish(ctx context.Context, run *application.Run, evt domoutbox.Event) {
	if m.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := m.publisher.Publish(pubCtx, evt); err != nil {
		run.Span().RecordError(err)
		run.Logger().Warn("event_publish_failed",
			observability.F("event", evt.EventName()),
			observability.F("error", err.Error()),
		)
	}
}
