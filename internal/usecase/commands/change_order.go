package commands

import (
	"context"
	"log/slog"
	"time"

	"boxoffice/internal/domain/catalog"
	"boxoffice/internal/domain/order"
	"boxoffice/internal/infra"
	"boxoffice/internal/pkg/clock"
	"boxoffice/internal/pkg/errs"
	"boxoffice/internal/usecase/shared"

	"github.com/google/uuid"
)

// OrderChanges creates single-use change batches against an order.
type OrderChanges struct {
	store    shared.Store
	notifier shared.Notifier
	checker  *AvailabilityChecker
	clock    clock.Clock
}

func NewOrderChanges(
	store shared.Store,
	notifier shared.Notifier,
	checker *AvailabilityChecker,
	clock clock.Clock,
) *OrderChanges {
	return &OrderChanges{
		store:    store,
		notifier: notifier,
		checker:  checker,
		clock:    clock,
	}
}

// NewBatch starts a change batch. Structural changes are only allowed while
// the order is pending or paid.
func (c *OrderChanges) NewBatch(ord *order.Order, actor shared.ActorRef) (*ChangeBatch, error) {
	if ord.Status() != order.StatusPending && ord.Status() != order.StatusPaid {
		return nil, ErrInvalidStatus
	}
	return &ChangeBatch{
		deps:  c,
		order: ord,
		actor: actor,
	}, nil
}

type batchState int

const (
	batchOpen batchState = iota
	batchCommitted
	batchAborted
)

// ChangeBatch accumulates pending operations against one order and commits
// them as a single all-or-nothing unit. Queueing does early, lock-free
// validation only; the authoritative inventory validation happens inside
// Commit under the event lock. A batch is single-use: after Commit returns,
// successful or not, it is closed for good.
type ChangeBatch struct {
	deps  *OrderChanges
	order *order.Order
	actor shared.ActorRef
	ops   []pendingOperation
	state batchState
}

type pendingOperation struct {
	kind           OperationKind
	pos            *order.Position
	item           *catalog.Item
	variationID    *uuid.UUID
	dateInstanceID *uuid.UUID
	price          order.Money
}

// AddPosition queues a new position. The returned position is not yet part
// of the order; it becomes effective at Commit. It may already be used as
// the add-on parent of a later AddPosition in the same batch.
func (b *ChangeBatch) AddPosition(
	ctx context.Context,
	itemID uuid.UUID,
	variationID *uuid.UUID,
	price order.Money,
	addonTo *order.Position,
	dateInstanceID *uuid.UUID,
) (*order.Position, error) {
	if err := b.open(); err != nil {
		return nil, err
	}
	item, err := b.lookupItem(ctx, itemID, variationID)
	if err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, errs.Mark(errs.New("price cannot be negative"), ErrInvalidOperation)
	}
	if dateInstanceID != nil {
		if _, err := b.lookupDateInstance(ctx, *dateInstanceID); err != nil {
			return nil, err
		}
	}
	if addonTo != nil && !b.ownsPosition(addonTo) {
		return nil, errs.Mark(order.ErrPositionNotFound, ErrInvalidOperation)
	}

	pos, err := order.NewPosition(itemID, variationID, dateInstanceID, price, addonTo)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidOperation)
	}
	b.ops = append(b.ops, pendingOperation{
		kind:           OpAddPosition,
		pos:            pos,
		item:           item,
		variationID:    variationID,
		dateInstanceID: dateInstanceID,
		price:          price,
	})
	return pos, nil
}

func (b *ChangeBatch) ChangeItem(ctx context.Context, pos *order.Position, newItemID uuid.UUID, newVariationID *uuid.UUID) error {
	if err := b.open(); err != nil {
		return err
	}
	if err := b.checkTarget(pos); err != nil {
		return err
	}
	item, err := b.lookupItem(ctx, newItemID, newVariationID)
	if err != nil {
		return err
	}
	b.ops = append(b.ops, pendingOperation{
		kind:        OpChangeItem,
		pos:         pos,
		item:        item,
		variationID: newVariationID,
	})
	return nil
}

func (b *ChangeBatch) ChangePrice(ctx context.Context, pos *order.Position, newPrice order.Money) error {
	if err := b.open(); err != nil {
		return err
	}
	if err := b.checkTarget(pos); err != nil {
		return err
	}
	if newPrice.IsNegative() {
		return errs.Mark(errs.New("price cannot be negative"), ErrInvalidOperation)
	}
	b.ops = append(b.ops, pendingOperation{
		kind:  OpChangePrice,
		pos:   pos,
		price: newPrice,
	})
	return nil
}

func (b *ChangeBatch) ChangeDateInstance(ctx context.Context, pos *order.Position, newDateInstanceID uuid.UUID) error {
	if err := b.open(); err != nil {
		return err
	}
	if err := b.checkTarget(pos); err != nil {
		return err
	}
	if _, err := b.lookupDateInstance(ctx, newDateInstanceID); err != nil {
		return err
	}
	item, err := b.deps.store.Reads().ItemByID(ctx, b.order.EventID(), pos.ItemID())
	if err != nil {
		return errs.Mark(err, ErrItemNotFound)
	}
	id := newDateInstanceID
	b.ops = append(b.ops, pendingOperation{
		kind:           OpChangeDateInstance,
		pos:            pos,
		item:           item,
		dateInstanceID: &id,
	})
	return nil
}

func (b *ChangeBatch) CancelPosition(ctx context.Context, pos *order.Position) error {
	if err := b.open(); err != nil {
		return err
	}
	if err := b.checkTarget(pos); err != nil {
		return err
	}
	b.ops = append(b.ops, pendingOperation{
		kind: OpCancelPosition,
		pos:  pos,
	})
	return nil
}

// ChangeResult carries the post-commit warning channel: a failed summary
// notification surfaces here, never as a commit error.
type ChangeResult struct {
	Order               *order.Order
	NotificationWarning error
}

// Commit acquires the per-event lock, re-validates every queued operation
// against current inventory (time may have passed since queueing), applies
// them in queue order, recomputes the total, and persists everything
// atomically. The first failing operation aborts the whole batch with no
// partial writes. The customer notification is sent after the lock is
// released.
func (b *ChangeBatch) Commit(ctx context.Context) (*ChangeResult, error) {
	if err := b.open(); err != nil {
		return nil, err
	}
	if len(b.ops) == 0 {
		b.state = batchCommitted
		return &ChangeResult{Order: b.order}, nil
	}

	err := b.deps.store.WithinEventLock(ctx, b.order.EventID(), func(ctx context.Context, tx shared.Tx) error {
		now := b.deps.clock.Now()
		for i := range b.ops {
			if err := b.applyOperation(ctx, tx, i, now); err != nil {
				return err
			}
		}

		b.order.RecalculateTotal()
		if err := tx.Orders().Update(ctx, b.order); err != nil {
			return err
		}

		return tx.Audit().Append(ctx, shared.AuditEntry{
			EntityType: "order",
			EntityID:   b.order.ID(),
			Action:     "order.changed",
			Actor:      b.actor,
			Payload: map[string]any{
				"operations":  len(b.ops),
				"total_cents": b.order.Total().Cents(),
			},
			At: now,
		})
	})
	if err != nil {
		b.state = batchAborted
		if infra.IsKind(err, infra.KindLockTimeout) {
			return nil, errs.Mark(err, ErrLockTimeout)
		}
		return nil, err
	}
	b.state = batchCommitted

	result := &ChangeResult{Order: b.order}
	if warnErr := b.deps.notifier.Send(ctx, b.order.ID(), b.order.Email(), "order.changed", map[string]any{
		"order":       b.order.Code(),
		"total_cents": b.order.Total().Cents(),
	}, b.order.Locale()); warnErr != nil {
		slog.Warn("order change notification failed",
			"order", b.order.Code(),
			"error", warnErr.Error())
		result.NotificationWarning = errs.Mark(warnErr, ErrDeliveryFailure)
	}
	return result, nil
}

func (b *ChangeBatch) applyOperation(ctx context.Context, tx shared.Tx, i int, now time.Time) error {
	op := &b.ops[i]

	switch op.kind {
	case OpAddPosition:
		if !op.pos.IsAddon() {
			avail, err := b.deps.checker.CheckAvailability(ctx, tx.Quotas(), b.order.EventID(), Selection{
				ItemID:         op.item.ID,
				ItemName:       op.item.Name,
				VariationID:    op.variationID,
				DateInstanceID: op.dateInstanceID,
			}, now)
			if err != nil {
				return err
			}
			if !avail.OK {
				return b.operationError(i, errs.Mark(errs.New(avail.Reason), ErrQuotaExceeded))
			}
		}
		b.order.AttachPosition(op.pos)
		if err := tx.Orders().CreatePosition(ctx, op.pos); err != nil {
			return err
		}
		return b.auditOperation(ctx, tx, op, now, map[string]any{
			"position":    op.pos.ID().String(),
			"item":        op.item.ID.String(),
			"price_cents": op.price.Cents(),
			"addon_to":    uuidPtrString(op.pos.AddonToID()),
		})

	case OpChangeItem:
		avail, err := b.deps.checker.CheckSelectionChange(ctx, tx.Quotas(), b.order.EventID(), Selection{
			ItemID:         op.pos.ItemID(),
			VariationID:    op.pos.VariationID(),
			DateInstanceID: op.pos.DateInstanceID(),
		}, Selection{
			ItemID:         op.item.ID,
			ItemName:       op.item.Name,
			VariationID:    op.variationID,
			DateInstanceID: op.pos.DateInstanceID(),
		}, now)
		if err != nil {
			return err
		}
		if !avail.OK {
			return b.operationError(i, errs.Mark(errs.New(avail.Reason), ErrQuotaExceeded))
		}
		oldItem := op.pos.ItemID()
		if err := op.pos.ChangeItem(op.item.ID, op.variationID); err != nil {
			return b.operationError(i, errs.Mark(err, ErrInvalidOperation))
		}
		if err := tx.Orders().UpdatePosition(ctx, op.pos); err != nil {
			return err
		}
		return b.auditOperation(ctx, tx, op, now, map[string]any{
			"position": op.pos.ID().String(),
			"old_item": oldItem.String(),
			"new_item": op.item.ID.String(),
		})

	case OpChangePrice:
		oldPrice := op.pos.Price()
		if err := op.pos.ChangePrice(op.price); err != nil {
			return b.operationError(i, errs.Mark(err, ErrInvalidOperation))
		}
		if err := tx.Orders().UpdatePosition(ctx, op.pos); err != nil {
			return err
		}
		return b.auditOperation(ctx, tx, op, now, map[string]any{
			"position":        op.pos.ID().String(),
			"old_price_cents": oldPrice.Cents(),
			"new_price_cents": op.price.Cents(),
		})

	case OpChangeDateInstance:
		avail, err := b.deps.checker.CheckSelectionChange(ctx, tx.Quotas(), b.order.EventID(), Selection{
			ItemID:         op.pos.ItemID(),
			VariationID:    op.pos.VariationID(),
			DateInstanceID: op.pos.DateInstanceID(),
		}, Selection{
			ItemID:         op.pos.ItemID(),
			ItemName:       op.item.Name,
			VariationID:    op.pos.VariationID(),
			DateInstanceID: op.dateInstanceID,
		}, now)
		if err != nil {
			return err
		}
		if !avail.OK {
			return b.operationError(i, errs.Mark(errs.New(avail.Reason), ErrQuotaExceeded))
		}
		oldID := op.pos.DateInstanceID()
		if err := op.pos.ChangeDateInstance(*op.dateInstanceID); err != nil {
			return b.operationError(i, errs.Mark(err, ErrInvalidOperation))
		}
		if err := tx.Orders().UpdatePosition(ctx, op.pos); err != nil {
			return err
		}
		return b.auditOperation(ctx, tx, op, now, map[string]any{
			"position":          op.pos.ID().String(),
			"old_date_instance": uuidPtrString(oldID),
			"new_date_instance": op.dateInstanceID.String(),
		})

	case OpCancelPosition:
		if err := op.pos.Cancel(); err != nil {
			return b.operationError(i, errs.Mark(err, ErrInvalidOperation))
		}
		if err := tx.Orders().UpdatePosition(ctx, op.pos); err != nil {
			return err
		}
		return b.auditOperation(ctx, tx, op, now, map[string]any{
			"position":    op.pos.ID().String(),
			"price_cents": op.pos.Price().Cents(),
		})
	}
	return b.operationError(i, ErrInvalidOperation)
}

func (b *ChangeBatch) auditOperation(ctx context.Context, tx shared.Tx, op *pendingOperation, now time.Time, payload map[string]any) error {
	return tx.Audit().Append(ctx, shared.AuditEntry{
		EntityType: "order",
		EntityID:   b.order.ID(),
		Action:     "order.changed." + string(op.kind),
		Actor:      b.actor,
		Payload:    payload,
		At:         now,
	})
}

func (b *ChangeBatch) open() error {
	if b.state != batchOpen {
		return ErrBatchClosed
	}
	return nil
}

func (b *ChangeBatch) operationError(i int, err error) error {
	op := &b.ops[i]
	var posID *uuid.UUID
	if op.pos != nil {
		id := op.pos.ID()
		posID = &id
	}
	return &OperationError{Index: i, Kind: op.kind, PositionID: posID, Err: err}
}

// ownsPosition accepts positions already persisted for this order as well
// as positions queued for addition earlier in this batch: add-on parents
// resolve against the in-memory order, not a committed identifier.
func (b *ChangeBatch) ownsPosition(pos *order.Position) bool {
	if pos.OrderID() == b.order.ID() {
		if _, ok := b.order.PositionByID(pos.ID()); ok {
			return true
		}
	}
	for i := range b.ops {
		if b.ops[i].kind == OpAddPosition && b.ops[i].pos == pos {
			return true
		}
	}
	return false
}

func (b *ChangeBatch) checkTarget(pos *order.Position) error {
	if !b.ownsPosition(pos) {
		return errs.Mark(order.ErrPositionNotFound, ErrInvalidOperation)
	}
	return nil
}

func (b *ChangeBatch) lookupItem(ctx context.Context, itemID uuid.UUID, variationID *uuid.UUID) (*catalog.Item, error) {
	item, err := b.deps.store.Reads().ItemByID(ctx, b.order.EventID(), itemID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrItemNotFound)
		}
		return nil, err
	}
	if !item.Active {
		return nil, errs.Mark(catalog.ErrItemInactive, ErrInvalidOperation)
	}
	if _, err := item.ResolveVariation(variationID); err != nil {
		return nil, errs.Mark(err, ErrInvalidOperation)
	}
	return item, nil
}

func (b *ChangeBatch) lookupDateInstance(ctx context.Context, id uuid.UUID) (*catalog.DateInstance, error) {
	di, err := b.deps.store.Reads().DateInstanceByID(ctx, b.order.EventID(), id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrDateInstanceNotFound)
		}
		return nil, err
	}
	return di, nil
}

func uuidPtrString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
