//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"boxoffice/internal/domain/order"
	"boxoffice/internal/usecase/commands"
	"boxoffice/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExtendFixture(t *testing.T, status order.Status) (*transitionFixture, *commands.ExtendExpiry) {
	t.Helper()
	f := newTransitionFixture(t, status)
	extend := commands.NewExtendExpiry(f.store, commands.NewAvailabilityChecker(), f.clock)
	return f, extend
}

func TestExtend_PendingOrder(t *testing.T) {
	f, extend := newExtendFixture(t, order.StatusPending)
	newExpiry := testNow.Add(7 * 24 * time.Hour)

	ord, err := extend.Extend(context.Background(), f.order.ID(), newExpiry, testActor)
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, ord.Status())
	assert.True(t, f.store.orderRows[f.order.ID()].expires.Equal(newExpiry))
	// A pending order already holds its inventory, so no lock is taken.
	assert.Zero(t, f.store.lockCalls)

	require.Len(t, f.store.audits, 1)
	entry := f.store.audits[0]
	assert.Equal(t, "order.expirychanged", entry.Action)
	assert.Equal(t, false, entry.Payload["state_change"])
}

func TestExtend_RevivesExpiredOrder(t *testing.T) {
	f, extend := newExtendFixture(t, order.StatusExpired)
	newExpiry := testNow.Add(7 * 24 * time.Hour)

	ord, err := extend.Extend(context.Background(), f.order.ID(), newExpiry, testActor)
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, ord.Status())
	assert.Equal(t, order.StatusPending, f.store.orderRows[f.order.ID()].status)
	assert.Equal(t, 1, f.store.lockCalls)

	require.Len(t, f.store.audits, 1)
	assert.Equal(t, "order.expirychanged", f.store.audits[0].Action)
	assert.Equal(t, true, f.store.audits[0].Payload["state_change"])
}

func TestExtend_RevivalRefusedWhenQuotaGone(t *testing.T) {
	f, extend := newExtendFixture(t, order.StatusExpired)
	f.store.reads.quotaReads.usage[f.quota.ID] = shared.QuotaUsage{Sold: 9, Reserved: 1}

	_, err := extend.Extend(context.Background(), f.order.ID(), testNow.Add(24*time.Hour), testActor)
	assert.ErrorIs(t, err, commands.ErrQuotaExceeded)

	// The order stays expired; a later retry may succeed once capacity
	// frees up.
	assert.Equal(t, order.StatusExpired, f.order.Status())
	assert.Equal(t, order.StatusExpired, f.store.orderRows[f.order.ID()].status)
	assert.Empty(t, f.store.audits)
}

func TestExtend_RejectsPastDeadline(t *testing.T) {
	f, extend := newExtendFixture(t, order.StatusPending)

	_, err := extend.Extend(context.Background(), f.order.ID(), testNow.Add(-time.Minute), testActor)
	assert.ErrorIs(t, err, commands.ErrInvalidOperation)
	assert.Empty(t, f.store.audits)
}

func TestExtend_RejectsClosedStatuses(t *testing.T) {
	for _, status := range []order.Status{order.StatusPaid, order.StatusCanceled, order.StatusRefunded} {
		t.Run(string(status), func(t *testing.T) {
			f, extend := newExtendFixture(t, status)
			_, err := extend.Extend(context.Background(), f.order.ID(), testNow.Add(24*time.Hour), testActor)
			assert.ErrorIs(t, err, commands.ErrInvalidStatus)
		})
	}
}

func TestExtend_OrderNotFound(t *testing.T) {
	_, extend := newExtendFixture(t, order.StatusPending)

	_, err := extend.Extend(context.Background(), uuid.New(), testNow.Add(24*time.Hour), testActor)
	assert.ErrorIs(t, err, commands.ErrOrderNotFound)
}

func TestResendLink(t *testing.T) {
	t.Run("writes the audit entry and sends the mail", func(t *testing.T) {
		f := newTransitionFixture(t, order.StatusPending)
		details := commands.NewOrderDetails(f.store, f.notifier, f.clock)

		require.NoError(t, details.ResendLink(context.Background(), f.order.ID(), testActor))

		assert.Equal(t, []string{"order.resend"}, auditActions(f.store.audits))
		require.Len(t, f.notifier.sends, 1)
		assert.Equal(t, "order.link.resend", f.notifier.sends[0].templateKey)
	})

	t.Run("delivery failure is reported after the audit entry", func(t *testing.T) {
		f := newTransitionFixture(t, order.StatusPending)
		f.notifier.err = assert.AnError
		details := commands.NewOrderDetails(f.store, f.notifier, f.clock)

		err := details.ResendLink(context.Background(), f.order.ID(), testActor)
		assert.ErrorIs(t, err, commands.ErrDeliveryFailure)
		assert.Equal(t, []string{"order.resend"}, auditActions(f.store.audits))
	})
}

func TestOrderDetails(t *testing.T) {
	newDetails := func(t *testing.T) (*transitionFixture, *commands.OrderDetails) {
		f := newTransitionFixture(t, order.StatusPending)
		return f, commands.NewOrderDetails(f.store, f.notifier, f.clock)
	}

	t.Run("comment", func(t *testing.T) {
		f, details := newDetails(t)

		require.NoError(t, details.UpdateComment(context.Background(), f.order.ID(), "VIP pickup at the door", testActor))

		assert.Equal(t, "VIP pickup at the door", f.store.orderRows[f.order.ID()].comment)
		assert.Equal(t, []string{"order.comment"}, auditActions(f.store.audits))
	})

	t.Run("contact", func(t *testing.T) {
		f, details := newDetails(t)

		require.NoError(t, details.ChangeContact(context.Background(), f.order.ID(), "new-buyer@example.com", testActor))

		assert.Equal(t, "new-buyer@example.com", f.store.orderRows[f.order.ID()].email)
		require.Len(t, f.store.audits, 1)
		assert.Equal(t, "buyer@example.com", f.store.audits[0].Payload["old_email"])
	})

	t.Run("contact rejects a malformed address", func(t *testing.T) {
		f, details := newDetails(t)

		err := details.ChangeContact(context.Background(), f.order.ID(), "not-an-email", testActor)
		assert.ErrorIs(t, err, commands.ErrInvalidOperation)
		assert.Equal(t, "buyer@example.com", f.store.orderRows[f.order.ID()].email)
	})

	t.Run("locale", func(t *testing.T) {
		f, details := newDetails(t)

		require.NoError(t, details.ChangeLocale(context.Background(), f.order.ID(), "de", testActor))

		assert.Equal(t, "de", f.store.orderRows[f.order.ID()].locale)
		assert.Equal(t, []string{"order.locale.changed"}, auditActions(f.store.audits))
	})
}
