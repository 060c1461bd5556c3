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

// OrderDetails covers the non-structural order edits: comment, contact
// email, locale, and resending the order link. None of these touch
// inventory, so no event lock is involved.
type OrderDetails struct {
	store    shared.Store
	notifier shared.Notifier
	clock    clock.Clock
}

func NewOrderDetails(store shared.Store, notifier shared.Notifier, clock clock.Clock) *OrderDetails {
	return &OrderDetails{
		store:    store,
		notifier: notifier,
		clock:    clock,
	}
}

func (d *OrderDetails) UpdateComment(ctx context.Context, orderID uuid.UUID, comment string, actor shared.ActorRef) error {
	ord, err := d.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	ord.SetComment(comment)
	return d.persistWithAudit(ctx, ord, actor, "order.comment", map[string]any{
		"new_comment": comment,
	})
}

func (d *OrderDetails) ChangeContact(ctx context.Context, orderID uuid.UUID, email string, actor shared.ActorRef) error {
	ord, err := d.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	old := ord.Email()
	if err := ord.SetContact(email); err != nil {
		return errs.Mark(err, ErrInvalidOperation)
	}
	return d.persistWithAudit(ctx, ord, actor, "order.contact.changed", map[string]any{
		"old_email": old,
		"new_email": email,
	})
}

func (d *OrderDetails) ChangeLocale(ctx context.Context, orderID uuid.UUID, locale string, actor shared.ActorRef) error {
	ord, err := d.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	old := ord.Locale()
	ord.SetLocale(locale)
	return d.persistWithAudit(ctx, ord, actor, "order.locale.changed", map[string]any{
		"old_locale": old,
		"new_locale": locale,
	})
}

// ResendLink mails the customer their order link again. The audit entry is
// written first; a delivery failure is returned marked ErrDeliveryFailure
// so callers can report it without treating the order as changed.
func (d *OrderDetails) ResendLink(ctx context.Context, orderID uuid.UUID, actor shared.ActorRef) error {
	ord, err := d.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}

	err = d.store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Audit().Append(ctx, shared.AuditEntry{
			EntityType: "order",
			EntityID:   ord.ID(),
			Action:     "order.resend",
			Actor:      actor,
			At:         d.clock.Now(),
		})
	})
	if err != nil {
		return err
	}

	if err := d.notifier.Send(ctx, ord.ID(), ord.Email(), "order.link.resend", map[string]any{
		"order": ord.Code(),
	}, ord.Locale()); err != nil {
		slog.Warn("order link resend failed", "order", ord.Code(), "error", err.Error())
		return errs.Mark(err, ErrDeliveryFailure)
	}
	return nil
}

func (d *OrderDetails) persistWithAudit(ctx context.Context, ord *order.Order, actor shared.ActorRef, action string, payload map[string]any) error {
	return d.store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Orders().Update(ctx, ord); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, shared.AuditEntry{
			EntityType: "order",
			EntityID:   ord.ID(),
			Action:     action,
			Actor:      actor,
			Payload:    payload,
			At:         d.clock.Now(),
		})
	})
}

func (d *OrderDetails) loadOrder(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	ord, err := d.store.Reads().OrderByID(ctx, orderID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrOrderNotFound)
		}
		return nil, err
	}
	return ord, nil
}
