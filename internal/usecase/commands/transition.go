package commands

import (
	"context"
	"log/slog"

	"boxoffice/internal/domain/order"
	"boxoffice/internal/infra"
	"boxoffice/internal/pkg/clock"
	"boxoffice/internal/pkg/errs"
	"boxoffice/internal/usecase/shared"

	"github.com/google/uuid"
)

// OrderTransitions drives the order status state machine. Every transition
// writes exactly one audit entry and triggers at most one notification,
// whose failure never rolls the transition back.
type OrderTransitions struct {
	store    shared.Store
	notifier shared.Notifier
	checker  *AvailabilityChecker
	clock    clock.Clock
}

func NewOrderTransitions(
	store shared.Store,
	notifier shared.Notifier,
	checker *AvailabilityChecker,
	clock clock.Clock,
) *OrderTransitions {
	return &OrderTransitions{
		store:    store,
		notifier: notifier,
		checker:  checker,
		clock:    clock,
	}
}

type TransitionResult struct {
	Order               *order.Order
	NotificationWarning error
}

// MarkPaid confirms payment for a pending or expired order. Quota is
// re-validated for every position under the event lock; on exhaustion the
// order stays unpaid and the exceeded capacity is reported.
func (t *OrderTransitions) MarkPaid(ctx context.Context, orderID uuid.UUID, actor shared.ActorRef) (*TransitionResult, error) {
	ord, err := t.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord.Status() != order.StatusPending && ord.Status() != order.StatusExpired {
		return nil, ErrInvalidStatus
	}

	err = t.store.WithinEventLock(ctx, ord.EventID(), func(ctx context.Context, tx shared.Tx) error {
		now := t.clock.Now()
		avail, err := t.checker.CheckOrderStillAvailable(ctx, tx.Quotas(), ord, now)
		if err != nil {
			return err
		}
		if !avail.OK {
			return errs.Mark(errs.New(avail.Reason), ErrQuotaExceeded)
		}
		if err := ord.MarkPaid(); err != nil {
			return errs.Mark(err, ErrInvalidStatus)
		}
		if err := tx.Orders().Update(ctx, ord); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, shared.AuditEntry{
			EntityType: "order",
			EntityID:   ord.ID(),
			Action:     "order.paid",
			Actor:      actor,
			At:         now,
		})
	})
	if err != nil {
		return nil, t.mapLockErr(err)
	}

	return t.withNotification(ctx, ord, "order.paid"), nil
}

// MarkCanceled cancels a pending order, releasing its inventory.
func (t *OrderTransitions) MarkCanceled(ctx context.Context, orderID uuid.UUID, actor shared.ActorRef, sendEmail bool) (*TransitionResult, error) {
	ord, err := t.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	err = t.store.WithinEventLock(ctx, ord.EventID(), func(ctx context.Context, tx shared.Tx) error {
		if err := ord.MarkCanceled(); err != nil {
			return errs.Mark(err, ErrInvalidStatus)
		}
		if err := tx.Orders().Update(ctx, ord); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, shared.AuditEntry{
			EntityType: "order",
			EntityID:   ord.ID(),
			Action:     "order.canceled",
			Actor:      actor,
			At:         t.clock.Now(),
		})
	})
	if err != nil {
		return nil, t.mapLockErr(err)
	}

	if !sendEmail {
		return &TransitionResult{Order: ord}, nil
	}
	return t.withNotification(ctx, ord, "order.canceled"), nil
}

// MarkExpired administratively expires a pending order. No notification.
func (t *OrderTransitions) MarkExpired(ctx context.Context, orderID uuid.UUID, actor shared.ActorRef) (*TransitionResult, error) {
	ord, err := t.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := t.expire(ctx, ord, actor); err != nil {
		return nil, err
	}
	return &TransitionResult{Order: ord}, nil
}

// MarkUnpaid reverts a paid order to pending for manual payment
// reconfirmation. Quota is not re-checked.
func (t *OrderTransitions) MarkUnpaid(ctx context.Context, orderID uuid.UUID, actor shared.ActorRef) (*TransitionResult, error) {
	ord, err := t.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	err = t.store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := ord.MarkUnpaid(); err != nil {
			return errs.Mark(err, ErrInvalidStatus)
		}
		if err := tx.Orders().Update(ctx, ord); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, shared.AuditEntry{
			EntityType: "order",
			EntityID:   ord.ID(),
			Action:     "order.unpaid",
			Actor:      actor,
			At:         t.clock.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Order: ord}, nil
}

// MarkRefunded records that the payment provider refunded a paid order.
// The refund itself is executed by the provider collaborator.
func (t *OrderTransitions) MarkRefunded(ctx context.Context, orderID uuid.UUID, actor shared.ActorRef) (*TransitionResult, error) {
	ord, err := t.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	err = t.store.WithinEventLock(ctx, ord.EventID(), func(ctx context.Context, tx shared.Tx) error {
		if err := ord.MarkRefunded(); err != nil {
			return errs.Mark(err, ErrInvalidStatus)
		}
		if err := tx.Orders().Update(ctx, ord); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, shared.AuditEntry{
			EntityType: "order",
			EntityID:   ord.ID(),
			Action:     "order.refunded",
			Actor:      actor,
			At:         t.clock.Now(),
		})
	})
	if err != nil {
		return nil, t.mapLockErr(err)
	}
	return t.withNotification(ctx, ord, "order.refunded"), nil
}

// ExpireOverdue marks every pending order whose deadline has passed as
// expired. Run from the background sweep; returns the number of orders
// expired.
func (t *OrderTransitions) ExpireOverdue(ctx context.Context) (int, error) {
	now := t.clock.Now()
	ids, err := t.store.Reads().OverduePendingOrders(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		ord, err := t.loadOrder(ctx, id)
		if err != nil {
			slog.Warn("expiry sweep: order load failed", "order_id", id.String(), "error", err.Error())
			continue
		}
		if !ord.IsOverdue(now) {
			continue
		}
		if err := t.expire(ctx, ord, shared.SystemActor); err != nil {
			slog.Warn("expiry sweep: transition failed", "order", ord.Code(), "error", err.Error())
			continue
		}
		expired++
	}
	return expired, nil
}

func (t *OrderTransitions) expire(ctx context.Context, ord *order.Order, actor shared.ActorRef) error {
	err := t.store.WithinEventLock(ctx, ord.EventID(), func(ctx context.Context, tx shared.Tx) error {
		if err := ord.MarkExpired(); err != nil {
			return errs.Mark(err, ErrInvalidStatus)
		}
		if err := tx.Orders().Update(ctx, ord); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, shared.AuditEntry{
			EntityType: "order",
			EntityID:   ord.ID(),
			Action:     "order.expired",
			Actor:      actor,
			At:         t.clock.Now(),
		})
	})
	return t.mapLockErr(err)
}

func (t *OrderTransitions) loadOrder(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	ord, err := t.store.Reads().OrderByID(ctx, orderID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrOrderNotFound)
		}
		return nil, err
	}
	return ord, nil
}

func (t *OrderTransitions) mapLockErr(err error) error {
	if err == nil {
		return nil
	}
	if infra.IsKind(err, infra.KindLockTimeout) {
		return errs.Mark(err, ErrLockTimeout)
	}
	return err
}

func (t *OrderTransitions) withNotification(ctx context.Context, ord *order.Order, templateKey string) *TransitionResult {
	result := &TransitionResult{Order: ord}
	if err := t.notifier.Send(ctx, ord.ID(), ord.Email(), templateKey, map[string]any{
		"order":       ord.Code(),
		"total_cents": ord.Total().Cents(),
	}, ord.Locale()); err != nil {
		slog.Warn("order notification failed",
			"order", ord.Code(),
			"template", templateKey,
			"error", err.Error())
		result.NotificationWarning = errs.Mark(err, ErrDeliveryFailure)
	}
	return result
}
