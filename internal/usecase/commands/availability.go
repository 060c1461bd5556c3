package commands

import (
	"context"
	"fmt"
	"time"

	"boxoffice/internal/domain/catalog"
	"boxoffice/internal/domain/order"
	"boxoffice/internal/usecase/shared"

	"github.com/google/uuid"
)

// Availability is the outcome of a quota check. It reports, it does not
// reserve: reservation happens by persisting positions inside the same
// locked section the check ran in.
type Availability struct {
	OK     bool
	Reason string
}

func available() Availability {
	return Availability{OK: true}
}

func unavailable(format string, args ...any) Availability {
	return Availability{Reason: fmt.Sprintf(format, args...)}
}

// Selection is one item/variation/date-instance combination to check.
type Selection struct {
	ItemID         uuid.UUID
	ItemName       string
	VariationID    *uuid.UUID
	DateInstanceID *uuid.UUID
}

// AvailabilityChecker reads quota consumption. Callers must hold the event
// lock whenever they will act on the answer.
type AvailabilityChecker struct{}

func NewAvailabilityChecker() *AvailabilityChecker {
	return &AvailabilityChecker{}
}

// CheckAvailability reports whether one more position for the selection
// would still fit into every quota governing it.
func (c *AvailabilityChecker) CheckAvailability(
	ctx context.Context,
	quotas shared.QuotaReads,
	eventID uuid.UUID,
	sel Selection,
	asOf time.Time,
) (Availability, error) {
	governing, err := quotas.QuotasFor(ctx, eventID, sel.ItemID, sel.VariationID, sel.DateInstanceID)
	if err != nil {
		return Availability{}, err
	}
	if len(governing) == 0 {
		return unavailable("product %q is not assigned to a quota and cannot be sold", sel.ItemName), nil
	}
	for i := range governing {
		q := &governing[i]
		if q.Unlimited() {
			continue
		}
		usage, err := quotas.Usage(ctx, q.ID, nil, asOf)
		if err != nil {
			return Availability{}, err
		}
		if usage.Sold+usage.Reserved >= *q.Size {
			return unavailable("there is no remaining capacity in quota %q", q.Name), nil
		}
	}
	return available(), nil
}

// CheckSelectionChange reports whether a position currently occupying the
// quotas of from can move to to. Quotas governing both selections see no
// net demand from the move and are skipped, so shifting a position inside
// an already-full quota is allowed.
func (c *AvailabilityChecker) CheckSelectionChange(
	ctx context.Context,
	quotas shared.QuotaReads,
	eventID uuid.UUID,
	from, to Selection,
	asOf time.Time,
) (Availability, error) {
	held, err := quotas.QuotasFor(ctx, eventID, from.ItemID, from.VariationID, from.DateInstanceID)
	if err != nil {
		return Availability{}, err
	}
	occupied := make(map[uuid.UUID]bool, len(held))
	for i := range held {
		occupied[held[i].ID] = true
	}

	governing, err := quotas.QuotasFor(ctx, eventID, to.ItemID, to.VariationID, to.DateInstanceID)
	if err != nil {
		return Availability{}, err
	}
	if len(governing) == 0 {
		return unavailable("product %q is not assigned to a quota and cannot be sold", to.ItemName), nil
	}
	for i := range governing {
		q := &governing[i]
		if q.Unlimited() || occupied[q.ID] {
			continue
		}
		usage, err := quotas.Usage(ctx, q.ID, nil, asOf)
		if err != nil {
			return Availability{}, err
		}
		if usage.Sold+usage.Reserved >= *q.Size {
			return unavailable("there is no remaining capacity in quota %q", q.Name), nil
		}
	}
	return available(), nil
}

// CheckOrderStillAvailable verifies that every active non-add-on position
// of ord still fits its quotas, counting the order's own demand as a group
// and excluding the order's current consumption from the usage figures.
// Used when confirming a pending order or reviving an expired one.
func (c *AvailabilityChecker) CheckOrderStillAvailable(
	ctx context.Context,
	quotas shared.QuotaReads,
	ord *order.Order,
	asOf time.Time,
) (Availability, error) {
	needed := map[uuid.UUID]int64{}
	byID := map[uuid.UUID]*catalog.Quota{}

	for _, p := range ord.ActivePositions() {
		if p.IsAddon() {
			continue
		}
		governing, err := quotas.QuotasFor(ctx, ord.EventID(), p.ItemID(), p.VariationID(), p.DateInstanceID())
		if err != nil {
			return Availability{}, err
		}
		if len(governing) == 0 {
			return unavailable("position %d is no longer assigned to a quota", p.Number()), nil
		}
		for i := range governing {
			q := governing[i]
			needed[q.ID]++
			if _, ok := byID[q.ID]; !ok {
				byID[q.ID] = &governing[i]
			}
		}
	}

	orderID := ord.ID()
	for id, n := range needed {
		q := byID[id]
		if q.Unlimited() {
			continue
		}
		usage, err := quotas.Usage(ctx, id, &orderID, asOf)
		if err != nil {
			return Availability{}, err
		}
		if usage.Sold+usage.Reserved+n > *q.Size {
			return unavailable("there is no remaining capacity in quota %q", q.Name), nil
		}
	}
	return available(), nil
}
