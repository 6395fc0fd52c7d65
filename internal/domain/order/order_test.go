package order

import (
	"testing"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validItems() []LineItem {
	return []LineItem{
		{ItemID: "i1", Name: "Soup", Price: decimal.NewFromInt(100), Quantity: 2},
		{ItemID: "i2", Name: "Bread", Price: decimal.RequireFromString("12.5"), Quantity: 1},
	}
}

func TestNew(t *testing.T) {
	amount := decimal.NewFromInt(214)

	tests := []struct {
		name      string
		id        string
		userID    string
		items     []LineItem
		amount    decimal.Decimal
		wantError string
	}{
		{name: "ok", id: "o1", userID: "u1", items: validItems(), amount: amount},
		{name: "missing id", userID: "u1", items: validItems(), amount: amount, wantError: "validation failed: order id is required"},
		{name: "missing user", id: "o1", items: validItems(), amount: amount, wantError: "validation failed: user id is required"},
		{name: "no items", id: "o1", userID: "u1", amount: amount, wantError: "validation failed: at least one item is required"},
		{
			name: "zero quantity", id: "o1", userID: "u1", amount: amount,
			items:     []LineItem{{ItemID: "i1", Name: "Soup", Price: decimal.NewFromInt(1), Quantity: 0}},
			wantError: "validation failed: item quantity must be greater than zero",
		},
		{
			name: "zero price", id: "o1", userID: "u1", amount: amount,
			items:     []LineItem{{ItemID: "i1", Name: "Soup", Price: decimal.Zero, Quantity: 1}},
			wantError: "validation failed: item price must be greater than zero",
		},
		{
			name: "price overflows minor units", id: "o1", userID: "u1", amount: amount,
			items:     []LineItem{{ItemID: "i1", Name: "Soup", Price: decimal.New(1, 18), Quantity: 1}},
			wantError: "validation failed: item price is too large",
		},
		{
			name: "blank name", id: "o1", userID: "u1", amount: amount,
			items:     []LineItem{{ItemID: "i1", Name: " ", Price: decimal.NewFromInt(1), Quantity: 1}},
			wantError: "validation failed: item name is required",
		},
		{name: "zero amount", id: "o1", userID: "u1", items: validItems(), amount: decimal.Zero, wantError: "validation failed: amount must be greater than zero"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := New(tt.id, tt.userID, tt.items, tt.amount, Address{City: "Pune"})
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				assert.ErrorIs(t, err, failure.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusProcessing, o.Status)
			assert.False(t, o.Payment)
			assert.False(t, o.CreatedAt.IsZero())
			assert.True(t, o.Amount.Equal(amount))
			assert.True(t, o.Subtotal().Equal(decimal.RequireFromString("212.5")))
		})
	}
}

func TestNew_MismatchedAmountKeptVerbatim(t *testing.T) {
	o, err := New("o1", "u1", validItems(), decimal.NewFromInt(1), Address{})
	require.NoError(t, err)
	assert.Equal(t, "1", o.Amount.String())
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		price  string
		want   int64
		wantOK bool
	}{
		{price: "12.5", want: 1250, wantOK: true},
		{price: "9.995", want: 1000, wantOK: true},
		{price: "9.994", want: 999, wantOK: true},
		{price: "92233720368547758.07", want: 9223372036854775807, wantOK: true},
		{price: "92233720368547758.08"},
		{price: "1000000000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			got, ok := MinorUnits(decimal.RequireFromString(tt.price))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttachCheckout(t *testing.T) {
	o, err := New("o1", "u1", validItems(), decimal.NewFromInt(214), Address{})
	require.NoError(t, err)
	before := o.UpdatedAt

	o.AttachCheckout("cs_1")
	assert.Equal(t, "cs_1", o.CheckoutSessionID)
	assert.False(t, o.UpdatedAt.Before(before))
	assert.Equal(t, "cs_1", o.Clone().CheckoutSessionID)
}

func TestTransitions(t *testing.T) {
	newOrder := func(t *testing.T) *Order {
		t.Helper()
		o, err := New("o1", "u1", validItems(), decimal.NewFromInt(10), Address{})
		require.NoError(t, err)
		return o
	}

	t.Run("paid then dispatched then delivered", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.MarkPaid())
		assert.True(t, o.Payment)
		assert.Equal(t, StatusProcessing, o.Status)

		require.NoError(t, o.Advance(StatusOutForDelivery))
		require.NoError(t, o.MarkPaid())
		require.NoError(t, o.Advance(StatusDelivered))
		assert.Equal(t, StatusDelivered, o.Status)

		assert.ErrorIs(t, o.Advance(StatusCancelled), ErrInvalidStateTransition)
		assert.ErrorIs(t, o.Advance(StatusProcessing), ErrInvalidStateTransition)
	})

	t.Run("payment failure cancels", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.MarkPaymentFailed("checkout_cancelled"))
		assert.Equal(t, StatusCancelled, o.Status)
		assert.Equal(t, "checkout_cancelled", o.FailureReason)

		assert.ErrorIs(t, o.MarkPaid(), ErrInvalidStateTransition)
		assert.ErrorIs(t, o.MarkPaid(), failure.ErrValidation)
		require.NoError(t, o.Advance(StatusCancelled))
	})

	t.Run("paid order cannot be failed", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.MarkPaid())
		assert.ErrorIs(t, o.MarkPaymentFailed("late"), ErrInvalidStateTransition)
	})

	t.Run("deliver requires dispatch", func(t *testing.T) {
		o := newOrder(t)
		assert.ErrorIs(t, o.Advance(StatusDelivered), ErrInvalidStateTransition)
		require.NoError(t, o.Advance(StatusProcessing))
	})

	t.Run("unknown status", func(t *testing.T) {
		o := newOrder(t)
		assert.ErrorIs(t, o.Advance(Status("lost")), ErrUnknownStatus)
		o.Status = "lost"
		assert.ErrorIs(t, o.MarkPaid(), ErrUnknownStatus)
	})
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" Out_For_Delivery ")
	require.NoError(t, err)
	assert.Equal(t, StatusOutForDelivery, st)

	_, err = ParseStatus("Food Processing")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestClone(t *testing.T) {
	o, err := New("o1", "u1", validItems(), decimal.NewFromInt(10), Address{})
	require.NoError(t, err)

	c := o.Clone()
	c.Items[0].Quantity = 99
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Nil(t, (*Order)(nil).Clone())
}
