//go:build unit

package order_test

import (
	"testing"
	"time"

	"boxoffice/internal/domain/order"
	"boxoffice/tests/common/builder"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func TestNewOrder(t *testing.T) {
	t.Run("basic success case", func(t *testing.T) {
		ord, err := order.NewOrder(uuid.New(), "buyer@example.com", "en", "banktransfer",
			order.NewMoney(50), testNow.Add(time.Hour), testNow)
		require.NoError(t, err)

		assert.Equal(t, order.StatusPending, ord.Status())
		assert.Len(t, ord.Code(), 5)
		assert.Equal(t, int64(50), ord.Total().Cents(), "empty order total is the payment fee")
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		_, err := order.NewOrder(uuid.New(), "not-an-email", "en", "banktransfer",
			order.NewMoney(0), testNow.Add(time.Hour), testNow)
		assert.ErrorIs(t, err, order.ErrInvalidEmail)
	})

	t.Run("rejects expiry in the past", func(t *testing.T) {
		_, err := order.NewOrder(uuid.New(), "buyer@example.com", "en", "banktransfer",
			order.NewMoney(0), testNow.Add(-time.Hour), testNow)
		assert.ErrorIs(t, err, order.ErrExpiryNotInFuture)
	})
}

func TestRecalculateTotal(t *testing.T) {
	itemID := uuid.New()
	ord := builder.NewOrderBuilder().
		WithPaymentFee(30).
		WithPosition(itemID, 1000).
		WithPosition(itemID, 500).
		BuildDomain()

	assert.Equal(t, int64(1530), ord.Total().Cents())

	require.NoError(t, ord.Positions()[1].Cancel())
	ord.RecalculateTotal()
	assert.Equal(t, int64(1030), ord.Total().Cents(), "canceled positions leave the total")
}

func TestAttachPositionNumbering(t *testing.T) {
	itemID := uuid.New()
	ord := builder.NewOrderBuilder().WithPosition(itemID, 1000).BuildDomain()

	pos, err := order.NewPosition(itemID, nil, nil, order.NewMoney(800), nil)
	require.NoError(t, err)
	ord.AttachPosition(pos)

	assert.Equal(t, ord.ID(), pos.OrderID())
	assert.Equal(t, 2, pos.Number())

	// Numbers are never reused, even after a cancellation.
	require.NoError(t, pos.Cancel())
	another, err := order.NewPosition(itemID, nil, nil, order.NewMoney(800), nil)
	require.NoError(t, err)
	ord.AttachPosition(another)
	assert.Equal(t, 3, another.Number())
}

func TestAddonDepthLimit(t *testing.T) {
	itemID := uuid.New()
	parent, err := order.NewPosition(itemID, nil, nil, order.NewMoney(1000), nil)
	require.NoError(t, err)

	addon, err := order.NewPosition(itemID, nil, nil, order.NewMoney(200), parent)
	require.NoError(t, err)
	require.True(t, addon.IsAddon())

	_, err = order.NewPosition(itemID, nil, nil, order.NewMoney(100), addon)
	assert.ErrorIs(t, err, order.ErrAddonToAddon)
}

func TestAddonToCanceledParent(t *testing.T) {
	itemID := uuid.New()
	parent, err := order.NewPosition(itemID, nil, nil, order.NewMoney(1000), nil)
	require.NoError(t, err)
	require.NoError(t, parent.Cancel())

	_, err = order.NewPosition(itemID, nil, nil, order.NewMoney(200), parent)
	assert.ErrorIs(t, err, order.ErrPositionCanceled)
}

func TestRevive(t *testing.T) {
	t.Run("expired order returns to pending with new deadline", func(t *testing.T) {
		ord := builder.NewOrderBuilder().WithStatus(order.StatusExpired).BuildDomain()
		newExpiry := testNow.Add(48 * time.Hour)

		require.NoError(t, ord.Revive(newExpiry, testNow))
		assert.Equal(t, order.StatusPending, ord.Status())
		assert.True(t, ord.Expires().Equal(newExpiry))
	})

	t.Run("refuses non-expired order", func(t *testing.T) {
		ord := builder.NewOrderBuilder().WithStatus(order.StatusPaid).BuildDomain()
		err := ord.Revive(testNow.Add(time.Hour), testNow)
		assert.ErrorIs(t, err, order.ErrInvalidTransition)
	})

	t.Run("refuses past deadline", func(t *testing.T) {
		ord := builder.NewOrderBuilder().WithStatus(order.StatusExpired).BuildDomain()
		err := ord.Revive(testNow.Add(-time.Minute), testNow)
		assert.ErrorIs(t, err, order.ErrExpiryNotInFuture)
	})
}

func TestMarkUnpaidSetsManualFlag(t *testing.T) {
	ord := builder.NewOrderBuilder().WithStatus(order.StatusPaid).BuildDomain()
	require.NoError(t, ord.MarkUnpaid())
	assert.Equal(t, order.StatusPending, ord.Status())
	assert.True(t, ord.PaymentManual())
}

func TestSetContact(t *testing.T) {
	ord := builder.NewOrderBuilder().BuildDomain()

	require.NoError(t, ord.SetContact("new@example.com"))
	assert.Equal(t, "new@example.com", ord.Email())

	assert.ErrorIs(t, ord.SetContact(""), order.ErrInvalidEmail)
	assert.ErrorIs(t, ord.SetContact("nope"), order.ErrInvalidEmail)
	assert.Equal(t, "new@example.com", ord.Email(), "failed update must not change the contact")
}

func TestIsOverdue(t *testing.T) {
	ord := builder.NewOrderBuilder().WithExpires(testNow.Add(-time.Minute)).BuildDomain()
	assert.True(t, ord.IsOverdue(testNow))

	paid := builder.NewOrderBuilder().WithStatus(order.StatusPaid).WithExpires(testNow.Add(-time.Minute)).BuildDomain()
	assert.False(t, paid.IsOverdue(testNow), "only pending orders go overdue")
}

func TestActivePositions(t *testing.T) {
	itemID := uuid.New()
	ord := builder.NewOrderBuilder().
		WithPosition(itemID, 1000).
		WithPosition(itemID, 500).
		WithPosition(itemID, 250).
		BuildDomain()

	require.NoError(t, ord.Positions()[1].Cancel())

	var got []int64
	for _, p := range ord.ActivePositions() {
		got = append(got, p.Price().Cents())
	}
	if diff := cmp.Diff([]int64{1000, 250}, got); diff != "" {
		t.Errorf("active position prices mismatch (-want +got):\n%s", diff)
	}
}
