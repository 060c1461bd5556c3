package commands

import (
	"context"
	"time"

	"boxoffice/internal/domain/order"
	"boxoffice/internal/infra"
	"boxoffice/internal/pkg/clock"
	"boxoffice/internal/pkg/errs"
	"boxoffice/internal/usecase/shared"

	"github.com/google/uuid"
)

// ExtendExpiry changes an order's payment deadline. For a pending order
// this is a plain update. For an expired order it is a revival: the event
// lock is taken and availability re-validated for every position; if any
// inventory is exhausted the revival is refused and the order stays
// expired.
type ExtendExpiry struct {
	store   shared.Store
	checker *AvailabilityChecker
	clock   clock.Clock
}

func NewExtendExpiry(store shared.Store, checker *AvailabilityChecker, clock clock.Clock) *ExtendExpiry {
	return &ExtendExpiry{
		store:   store,
		checker: checker,
		clock:   clock,
	}
}

func (e *ExtendExpiry) Extend(ctx context.Context, orderID uuid.UUID, newExpiry time.Time, actor shared.ActorRef) (*order.Order, error) {
	ord, err := e.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch ord.Status() {
	case order.StatusPending:
		return ord, e.extendPending(ctx, ord, newExpiry, actor)
	case order.StatusExpired:
		return ord, e.reviveExpired(ctx, ord, newExpiry, actor)
	default:
		return nil, ErrInvalidStatus
	}
}

// No lock and no availability check: a pending order already holds its
// inventory.
func (e *ExtendExpiry) extendPending(ctx context.Context, ord *order.Order, newExpiry time.Time, actor shared.ActorRef) error {
	return e.store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := e.clock.Now()
		if err := ord.SetExpiry(newExpiry, now); err != nil {
			return errs.Mark(err, ErrInvalidOperation)
		}
		if err := tx.Orders().Update(ctx, ord); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, shared.AuditEntry{
			EntityType: "order",
			EntityID:   ord.ID(),
			Action:     "order.expirychanged",
			Actor:      actor,
			Payload: map[string]any{
				"expires":      newExpiry,
				"state_change": false,
			},
			At: now,
		})
	})
}

func (e *ExtendExpiry) reviveExpired(ctx context.Context, ord *order.Order, newExpiry time.Time, actor shared.ActorRef) error {
	err := e.store.WithinEventLock(ctx, ord.EventID(), func(ctx context.Context, tx shared.Tx) error {
		now := e.clock.Now()
		avail, err := e.checker.CheckOrderStillAvailable(ctx, tx.Quotas(), ord, now)
		if err != nil {
			return err
		}
		if !avail.OK {
			return errs.Mark(errs.New(avail.Reason), ErrQuotaExceeded)
		}
		if err := ord.Revive(newExpiry, now); err != nil {
			return errs.Mark(err, ErrInvalidOperation)
		}
		if err := tx.Orders().Update(ctx, ord); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, shared.AuditEntry{
			EntityType: "order",
			EntityID:   ord.ID(),
			Action:     "order.expirychanged",
			Actor:      actor,
			Payload: map[string]any{
				"expires":      newExpiry,
				"state_change": true,
			},
			At: now,
		})
	})
	if err != nil {
		if infra.IsKind(err, infra.KindLockTimeout) {
			return errs.Mark(err, ErrLockTimeout)
		}
		return err
	}
	return nil
}

func (e *ExtendExpiry) loadOrder(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	ord, err := e.store.Reads().OrderByID(ctx, orderID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrOrderNotFound)
		}
		return nil, err
	}
	return ord, nil
}
