//go:build unit

package commands_test

import (
	"context"
	"testing"

	"boxoffice/internal/domain/catalog"
	"boxoffice/internal/usecase/commands"
	"boxoffice/internal/usecase/shared"
	"boxoffice/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAvailability(t *testing.T) {
	eventID := uuid.New()
	itemID := uuid.New()
	quota := builder.QuotaFor(eventID, builder.Int64Ptr(3), itemID)
	checker := commands.NewAvailabilityChecker()

	sel := commands.Selection{ItemID: itemID, ItemName: "Standard ticket"}

	tests := []struct {
		name   string
		quotas []catalog.Quota
		usage  shared.QuotaUsage
		wantOK bool
	}{
		{
			name:   "capacity left",
			quotas: []catalog.Quota{quota},
			usage:  shared.QuotaUsage{Sold: 1, Reserved: 1},
			wantOK: true,
		},
		{
			name:   "sold out",
			quotas: []catalog.Quota{quota},
			usage:  shared.QuotaUsage{Sold: 3},
			wantOK: false,
		},
		{
			name:   "carts count against capacity",
			quotas: []catalog.Quota{quota},
			usage:  shared.QuotaUsage{Sold: 1, Reserved: 2},
			wantOK: false,
		},
		{
			name:   "no quota means not sellable",
			quotas: nil,
			wantOK: false,
		},
		{
			name:   "unlimited quota never blocks",
			quotas: []catalog.Quota{builder.QuotaFor(eventID, nil, itemID)},
			usage:  shared.QuotaUsage{Sold: 100000},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reads := &fakeQuotaReads{
				quotas: tt.quotas,
				usage:  map[uuid.UUID]shared.QuotaUsage{},
			}
			for _, q := range tt.quotas {
				reads.usage[q.ID] = tt.usage
			}

			avail, err := checker.CheckAvailability(context.Background(), reads, eventID, sel, testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, avail.OK)
			if !tt.wantOK {
				assert.NotEmpty(t, avail.Reason)
			}
		})
	}
}

func TestCheckOrderStillAvailable(t *testing.T) {
	checker := commands.NewAvailabilityChecker()

	newOrder := func(positions int) (*fakeQuotaReads, catalog.Quota, *builder.OrderBuilder) {
		ob := builder.NewOrderBuilder()
		itemID := uuid.New()
		for i := 0; i < positions; i++ {
			ob.WithPosition(itemID, 1000)
		}
		quota := builder.QuotaFor(ob.EventID, builder.Int64Ptr(5), itemID)
		reads := &fakeQuotaReads{
			quotas: []catalog.Quota{quota},
			usage:  map[uuid.UUID]shared.QuotaUsage{},
		}
		return reads, quota, ob
	}

	t.Run("the order's demand is checked as a group", func(t *testing.T) {
		reads, quota, b := newOrder(2)
		// 3 seats taken by others + 2 needed by this order = exactly the
		// size of 5.
		reads.usage[quota.ID] = shared.QuotaUsage{Sold: 3}

		avail, err := checker.CheckOrderStillAvailable(context.Background(), reads, b.BuildDomain(), testNow)
		require.NoError(t, err)
		assert.True(t, avail.OK)
	})

	t.Run("one seat short fails the whole order", func(t *testing.T) {
		reads, quota, b := newOrder(2)
		reads.usage[quota.ID] = shared.QuotaUsage{Sold: 4}

		avail, err := checker.CheckOrderStillAvailable(context.Background(), reads, b.BuildDomain(), testNow)
		require.NoError(t, err)
		assert.False(t, avail.OK)
	})

	t.Run("a position without quota blocks confirmation", func(t *testing.T) {
		reads, _, b := newOrder(1)
		reads.quotas = nil

		avail, err := checker.CheckOrderStillAvailable(context.Background(), reads, b.BuildDomain(), testNow)
		require.NoError(t, err)
		assert.False(t, avail.OK)
	})

	t.Run("an order without positions passes vacuously", func(t *testing.T) {
		reads, _, b := newOrder(0)

		avail, err := checker.CheckOrderStillAvailable(context.Background(), reads, b.BuildDomain(), testNow)
		require.NoError(t, err)
		assert.True(t, avail.OK)
	})
}
