package repository

import (
	"context"

	"boxoffice/internal/domain/invoice"
	"boxoffice/internal/infra"
	"boxoffice/internal/infra/db"

	"github.com/google/uuid"
)

type InvoiceRepository struct {
	db db.DBTX
}

func NewInvoiceRepository(dbtx db.DBTX) *InvoiceRepository {
	return &InvoiceRepository{db: dbtx}
}

const insertInvoiceSQL = `
INSERT INTO invoices (id, order_id, number, total_cents, locale, issued_at, canceled)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const insertInvoiceLineSQL = `
INSERT INTO invoice_lines (invoice_id, position, description, price_cents)
VALUES ($1, $2, $3, $4)`

func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	_, err := r.db.Exec(ctx, insertInvoiceSQL,
		inv.ID(), inv.OrderID(), inv.Number(), inv.TotalCents(),
		inv.Locale(), inv.IssuedAt(), inv.Canceled(),
	)
	if err != nil {
		return wrapPgErr("failed to insert invoice", err)
	}
	for i, line := range inv.Lines() {
		if _, err := r.db.Exec(ctx, insertInvoiceLineSQL,
			inv.ID(), i, line.Description, line.PriceCents,
		); err != nil {
			return wrapPgErr("failed to insert invoice line", err)
		}
	}
	return nil
}

const cancelInvoiceSQL = `
UPDATE invoices SET canceled = TRUE WHERE id = $1`

func (r *InvoiceRepository) MarkCanceled(ctx context.Context, invoiceID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, cancelInvoiceSQL, invoiceID)
	if err != nil {
		return wrapPgErr("failed to cancel invoice", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(infra.KindNotFound, "invoice not found", nil)
	}
	return nil
}

const insertCancellationSQL = `
INSERT INTO invoice_cancellations (id, invoice_id, number, issued_at)
VALUES ($1, $2, $3, $4)`

func (r *InvoiceRepository) CreateCancellation(ctx context.Context, rec invoice.CancellationRecord) error {
	_, err := r.db.Exec(ctx, insertCancellationSQL, rec.ID, rec.InvoiceID, rec.Number, rec.IssuedAt)
	if err != nil {
		return wrapPgErr("failed to insert invoice cancellation", err)
	}
	return nil
}
