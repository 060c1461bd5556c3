package commands

import (
	"context"

	"boxoffice/internal/domain/invoice"
	"boxoffice/internal/domain/order"
	"boxoffice/internal/infra"
	"boxoffice/internal/pkg/clock"
	"boxoffice/internal/pkg/errs"
	"boxoffice/internal/usecase/shared"

	"github.com/google/uuid"
)

// InvoiceCommands implements the cancel-and-reissue protocol: issued
// invoices are immutable; correcting one voids it with a cancellation
// record and issues a replacement.
type InvoiceCommands struct {
	store shared.Store
	clock clock.Clock
}

func NewInvoiceCommands(store shared.Store, clock clock.Clock) *InvoiceCommands {
	return &InvoiceCommands{
		store: store,
		clock: clock,
	}
}

// Create issues the first invoice for an order. Refused when one already
// exists; replacement goes through Regenerate or Reissue.
func (c *InvoiceCommands) Create(ctx context.Context, orderID uuid.UUID, actor shared.ActorRef) (*invoice.Invoice, error) {
	ord, err := c.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	existing, err := c.store.Reads().InvoicesByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrInvoiceExists
	}

	inv, err := c.buildInvoice(ctx, ord, 1)
	if err != nil {
		return nil, err
	}

	err = c.store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Invoices().Create(ctx, inv); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, shared.AuditEntry{
			EntityType: "order",
			EntityID:   ord.ID(),
			Action:     "order.invoice.generated",
			Actor:      actor,
			Payload:    map[string]any{"invoice": inv.Number()},
			At:         c.clock.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Regenerate voids an invoice after the order changed and issues a new one
// reflecting the current order contents.
func (c *InvoiceCommands) Regenerate(ctx context.Context, orderID, invoiceID uuid.UUID, actor shared.ActorRef) (*invoice.Invoice, error) {
	return c.replace(ctx, orderID, invoiceID, actor, "order.invoice.regenerated")
}

// Reissue voids an invoice issued in error and issues a replacement.
func (c *InvoiceCommands) Reissue(ctx context.Context, orderID, invoiceID uuid.UUID, actor shared.ActorRef) (*invoice.Invoice, error) {
	return c.replace(ctx, orderID, invoiceID, actor, "order.invoice.reissued")
}

func (c *InvoiceCommands) replace(ctx context.Context, orderID, invoiceID uuid.UUID, actor shared.ActorRef, action string) (*invoice.Invoice, error) {
	ord, err := c.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	existing, err := c.store.Reads().InvoicesByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var old *invoice.Invoice
	for _, inv := range existing {
		if inv.ID() == invoiceID {
			old = inv
			break
		}
	}
	if old == nil {
		return nil, ErrInvoiceNotFound
	}
	if old.Canceled() {
		return nil, ErrInvoiceStateConflict
	}

	next, err := c.buildInvoice(ctx, ord, len(existing)+1)
	if err != nil {
		return nil, err
	}

	err = c.store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := c.clock.Now()

		if err := old.MarkCanceled(); err != nil {
			return errs.Mark(err, ErrInvoiceStateConflict)
		}
		if err := tx.Invoices().MarkCanceled(ctx, old.ID()); err != nil {
			return err
		}
		rec := invoice.NewCancellation(old, now)
		if err := tx.Invoices().CreateCancellation(ctx, rec); err != nil {
			return err
		}
		if err := tx.Audit().Append(ctx, shared.AuditEntry{
			EntityType: "order",
			EntityID:   ord.ID(),
			Action:     "order.invoice.canceled",
			Actor:      actor,
			Payload: map[string]any{
				"invoice":      old.Number(),
				"cancellation": rec.Number,
			},
			At: now,
		}); err != nil {
			return err
		}

		if err := tx.Invoices().Create(ctx, next); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, shared.AuditEntry{
			EntityType: "order",
			EntityID:   ord.ID(),
			Action:     action,
			Actor:      actor,
			Payload:    map[string]any{"invoice": next.Number()},
			At:         now,
		})
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (c *InvoiceCommands) buildInvoice(ctx context.Context, ord *order.Order, sequence int) (*invoice.Invoice, error) {
	positions := ord.ActivePositions()
	lines := make([]invoice.Line, 0, len(positions)+1)
	for _, p := range positions {
		item, err := c.store.Reads().ItemByID(ctx, ord.EventID(), p.ItemID())
		if err != nil {
			return nil, err
		}
		desc := item.Name
		if p.VariationID() != nil {
			if v, ok := item.VariationByID(*p.VariationID()); ok {
				desc += " - " + v.Name
			}
		}
		lines = append(lines, invoice.Line{
			Description: desc,
			PriceCents:  p.Price().Cents(),
		})
	}
	if fee := ord.PaymentFee().Cents(); fee != 0 {
		lines = append(lines, invoice.Line{
			Description: "Payment fee",
			PriceCents:  fee,
		})
	}
	return invoice.NewInvoice(ord.ID(), ord.Code(), sequence, lines, ord.Total().Cents(), ord.Locale(), c.clock.Now()), nil
}

func (c *InvoiceCommands) loadOrder(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	ord, err := c.store.Reads().OrderByID(ctx, orderID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrOrderNotFound)
		}
		return nil, err
	}
	return ord, nil
}
