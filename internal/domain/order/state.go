package order

// State implements the state pattern for order lifecycle transitions.
type State interface {
	Status() Status
	OnPaymentSucceeded(o *Order) (State, error)
	OnPaymentFailed(o *Order, reason string) (State, error)
	OnDispatched(o *Order) (State, error)
	OnDelivered(o *Order) (State, error)
	OnCancelled(o *Order, reason string) (State, error)
}

func stateFor(s Status) (State, error) {
	switch s {
	case StatusProcessing:
		return processingState{}, nil
	case StatusOutForDelivery:
		return outForDeliveryState{}, nil
	case StatusDelivered:
		return deliveredState{}, nil
	case StatusCancelled:
		return cancelledState{}, nil
	}
	return nil, ErrUnknownStatus
}

type processingState struct{}

func (processingState) Status() Status { return StatusProcessing }

func (processingState) OnPaymentSucceeded(o *Order) (State, error) {
	o.Payment = true
	o.FailureReason = ""
	return processingState{}, nil
}

func (processingState) OnPaymentFailed(o *Order, reason string) (State, error) {
	if o.Payment {
		return nil, ErrInvalidStateTransition
	}
	o.FailureReason = reason
	return cancelledState{}, nil
}

func (processingState) OnDispatched(*Order) (State, error) {
	return outForDeliveryState{}, nil
}

func (processingState) OnDelivered(*Order) (State, error) {
	return nil, ErrInvalidStateTransition
}

func (processingState) OnCancelled(o *Order, reason string) (State, error) {
	o.FailureReason = reason
	return cancelledState{}, nil
}

type outForDeliveryState struct{}

func (outForDeliveryState) Status() Status { return StatusOutForDelivery }

func (outForDeliveryState) OnPaymentSucceeded(o *Order) (State, error) {
	if o.Payment {
		return outForDeliveryState{}, nil
	}
	return nil, ErrInvalidStateTransition
}

func (outForDeliveryState) OnPaymentFailed(*Order, string) (State, error) {
	return nil, ErrInvalidStateTransition
}

func (outForDeliveryState) OnDispatched(*Order) (State, error) {
	return outForDeliveryState{}, nil
}

func (outForDeliveryState) OnDelivered(*Order) (State, error) {
	return deliveredState{}, nil
}

func (outForDeliveryState) OnCancelled(*Order, string) (State, error) {
	return nil, ErrInvalidStateTransition
}

type deliveredState struct{}

func (deliveredState) Status() Status { return StatusDelivered }

func (deliveredState) OnPaymentSucceeded(o *Order) (State, error) {
	if o.Payment {
		return deliveredState{}, nil
	}
	return nil, ErrInvalidStateTransition
}

func (deliveredState) OnPaymentFailed(*Order, string) (State, error) {
	return nil, ErrInvalidStateTransition
}

func (deliveredState) OnDispatched(*Order) (State, error) {
	return nil, ErrInvalidStateTransition
}

func (deliveredState) OnDelivered(*Order) (State, error) {
	return deliveredState{}, nil
}

func (deliveredState) OnCancelled(*Order, string) (State, error) {
	return nil, ErrInvalidStateTransition
}

type cancelledState struct{}

func (cancelledState) Status() Status { return StatusCancelled }

func (cancelledState) OnPaymentSucceeded(*Order) (State, error) {
	return nil, ErrInvalidStateTransition
}

func (cancelledState) OnPaymentFailed(o *Order, reason string) (State, error) {
	o.FailureReason = reason
	return cancelledState{}, nil
}

func (cancelledState) OnDispatched(*Order) (State, error) {
	return nil, ErrInvalidStateTransition
}

func (cancelledState) OnDelivered(*Order) (State, error) {
	return nil, ErrInvalidStateTransition
}

func (cancelledState) OnCancelled(*Order, string) (State, error) {
	return cancelledState{}, nil
}
