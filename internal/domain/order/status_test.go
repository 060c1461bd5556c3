//go:build unit

package order_test

import (
	"testing"

	"boxoffice/internal/domain/order"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    order.Status
		to      order.Status
		allowed bool
	}{
		{"pending to paid", order.StatusPending, order.StatusPaid, true},
		{"pending to expired", order.StatusPending, order.StatusExpired, true},
		{"pending to canceled", order.StatusPending, order.StatusCanceled, true},
		{"pending to refunded", order.StatusPending, order.StatusRefunded, false},
		{"expired to paid", order.StatusExpired, order.StatusPaid, true},
		{"expired to pending", order.StatusExpired, order.StatusPending, true},
		{"expired to canceled", order.StatusExpired, order.StatusCanceled, false},
		{"paid to pending", order.StatusPaid, order.StatusPending, true},
		{"paid to refunded", order.StatusPaid, order.StatusRefunded, true},
		{"paid to expired", order.StatusPaid, order.StatusExpired, false},
		{"canceled is terminal", order.StatusCanceled, order.StatusPending, false},
		{"refunded is terminal", order.StatusRefunded, order.StatusPaid, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, order.StatusCanceled.IsTerminal())
	assert.True(t, order.StatusRefunded.IsTerminal())
	assert.False(t, order.StatusPending.IsTerminal())
	assert.False(t, order.StatusPaid.IsTerminal())
	assert.False(t, order.StatusExpired.IsTerminal())
}

func TestStatusIsValid(t *testing.T) {
	for _, s := range []order.Status{
		order.StatusPending, order.StatusPaid, order.StatusExpired,
		order.StatusCanceled, order.StatusRefunded,
	} {
		assert.True(t, s.IsValid(), s.String())
	}
	assert.False(t, order.Status("shipped").IsValid())
	assert.False(t, order.Status("").IsValid())
}
