package repository

import (
	"context"
	"time"

	"boxoffice/internal/domain/catalog"
	"boxoffice/internal/domain/invoice"
	"boxoffice/internal/domain/order"
	"boxoffice/internal/infra/db"
	"boxoffice/internal/infra/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// CommandReads rehydrates aggregates for the command side. These queries
// run without the event lock; anything acted upon under quota rules is
// re-validated inside the locked section.
type CommandReads struct {
	db db.DBTX
}

func NewCommandReads(dbtx db.DBTX) *CommandReads {
	return &CommandReads{db: dbtx}
}

const selectOrderSQL = `
SELECT id, event_id, code, status, total_cents, payment_fee_cents, expires,
       locale, email, payment_method, payment_manual, comment, created_at
FROM orders
WHERE `

func (r *CommandReads) OrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.scanOrder(ctx, selectOrderSQL+"id = $1", id)
}

func (r *CommandReads) OrderByCode(ctx context.Context, eventID uuid.UUID, code string) (*order.Order, error) {
	return r.scanOrder(ctx, selectOrderSQL+"event_id = $1 AND code = $2", eventID, code)
}

func (r *CommandReads) scanOrder(ctx context.Context, sql string, args ...any) (*order.Order, error) {
	var (
		id, eventID                   uuid.UUID
		code, status                  string
		totalCents, feeCents          int64
		expires, createdAt            time.Time
		locale, email, paymentMethod  string
		paymentManual                 bool
		comment                       pgtype.Text
	)
	err := r.db.QueryRow(ctx, sql, args...).Scan(
		&id, &eventID, &code, &status, &totalCents, &feeCents, &expires,
		&locale, &email, &paymentMethod, &paymentManual, &comment, &createdAt,
	)
	if err != nil {
		return nil, wrapPgErr("failed to load order", err)
	}

	positions, err := r.positionsByOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	var commentStr string
	if s := pgconv.TextPtrFromPg(comment); s != nil {
		commentStr = *s
	}

	return order.ReconstructOrder(
		id, eventID, code,
		order.Status(status),
		order.NewMoney(totalCents), order.NewMoney(feeCents),
		expires, locale, email, paymentMethod, paymentManual, commentStr,
		positions, createdAt,
	), nil
}

const selectPositionsSQL = `
SELECT id, order_id, item_id, variation_id, date_instance_id, price_cents,
       secret, addon_to_id, number, canceled
FROM order_positions
WHERE order_id = $1
ORDER BY number`

func (r *CommandReads) positionsByOrder(ctx context.Context, orderID uuid.UUID) ([]*order.Position, error) {
	rows, err := r.db.Query(ctx, selectPositionsSQL, orderID)
	if err != nil {
		return nil, wrapPgErr("failed to load positions", err)
	}
	defer rows.Close()

	var positions []*order.Position
	for rows.Next() {
		var (
			id, ordID, itemID       uuid.UUID
			variationID, addonToID  pgtype.UUID
			dateInstanceID          pgtype.UUID
			priceCents              int64
			secret                  string
			number                  int
			canceled                bool
		)
		if err := rows.Scan(&id, &ordID, &itemID, &variationID, &dateInstanceID,
			&priceCents, &secret, &addonToID, &number, &canceled); err != nil {
			return nil, wrapPgErr("failed to scan position", err)
		}
		positions = append(positions, order.ReconstructPosition(
			id, ordID, itemID,
			pgconv.UUIDPtrFromPg(variationID),
			pgconv.UUIDPtrFromPg(dateInstanceID),
			pgconv.UUIDPtrFromPg(addonToID),
			order.NewMoney(priceCents),
			secret, number, canceled,
		))
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr("failed to iterate positions", err)
	}
	return positions, nil
}

const selectItemSQL = `
SELECT id, event_id, name, default_price_cents, active
FROM items
WHERE event_id = $1 AND id = $2`

const selectVariationsSQL = `
SELECT id, item_id, name, price_cents
FROM item_variations
WHERE item_id = $1
ORDER BY name`

func (r *CommandReads) ItemByID(ctx context.Context, eventID, itemID uuid.UUID) (*catalog.Item, error) {
	var item catalog.Item
	err := r.db.QueryRow(ctx, selectItemSQL, eventID, itemID).Scan(
		&item.ID, &item.EventID, &item.Name, &item.DefaultPriceCents, &item.Active,
	)
	if err != nil {
		return nil, wrapPgErr("failed to load item", err)
	}

	rows, err := r.db.Query(ctx, selectVariationsSQL, itemID)
	if err != nil {
		return nil, wrapPgErr("failed to load variations", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			v          catalog.Variation
			priceCents pgtype.Int8
		)
		if err := rows.Scan(&v.ID, &v.ItemID, &v.Name, &priceCents); err != nil {
			return nil, wrapPgErr("failed to scan variation", err)
		}
		v.PriceCents = pgconv.Int8PtrFromPg(priceCents)
		item.Variations = append(item.Variations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr("failed to iterate variations", err)
	}
	return &item, nil
}

const selectDateInstanceSQL = `
SELECT id, event_id, name, starts_at
FROM date_instances
WHERE event_id = $1 AND id = $2`

func (r *CommandReads) DateInstanceByID(ctx context.Context, eventID, id uuid.UUID) (*catalog.DateInstance, error) {
	var di catalog.DateInstance
	err := r.db.QueryRow(ctx, selectDateInstanceSQL, eventID, id).Scan(
		&di.ID, &di.EventID, &di.Name, &di.StartsAt,
	)
	if err != nil {
		return nil, wrapPgErr("failed to load date instance", err)
	}
	return &di, nil
}

const selectInvoicesSQL = `
SELECT id, order_id, number, total_cents, locale, issued_at, canceled
FROM invoices
WHERE order_id = $1
ORDER BY issued_at`

const selectInvoiceLinesSQL = `
SELECT description, price_cents
FROM invoice_lines
WHERE invoice_id = $1
ORDER BY position`

func (r *CommandReads) InvoicesByOrder(ctx context.Context, orderID uuid.UUID) ([]*invoice.Invoice, error) {
	rows, err := r.db.Query(ctx, selectInvoicesSQL, orderID)
	if err != nil {
		return nil, wrapPgErr("failed to load invoices", err)
	}
	defer rows.Close()

	type invoiceRow struct {
		id, orderID uuid.UUID
		number      string
		totalCents  int64
		locale      string
		issuedAt    time.Time
		canceled    bool
	}
	var invoiceRows []invoiceRow
	for rows.Next() {
		var ir invoiceRow
		if err := rows.Scan(&ir.id, &ir.orderID, &ir.number, &ir.totalCents,
			&ir.locale, &ir.issuedAt, &ir.canceled); err != nil {
			return nil, wrapPgErr("failed to scan invoice", err)
		}
		invoiceRows = append(invoiceRows, ir)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr("failed to iterate invoices", err)
	}

	invoices := make([]*invoice.Invoice, 0, len(invoiceRows))
	for _, ir := range invoiceRows {
		lines, err := r.invoiceLines(ctx, ir.id)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice.ReconstructInvoice(
			ir.id, ir.orderID, ir.number, lines, ir.totalCents, ir.locale, ir.issuedAt, ir.canceled,
		))
	}
	return invoices, nil
}

func (r *CommandReads) invoiceLines(ctx context.Context, invoiceID uuid.UUID) ([]invoice.Line, error) {
	rows, err := r.db.Query(ctx, selectInvoiceLinesSQL, invoiceID)
	if err != nil {
		return nil, wrapPgErr("failed to load invoice lines", err)
	}
	defer rows.Close()

	var lines []invoice.Line
	for rows.Next() {
		var l invoice.Line
		if err := rows.Scan(&l.Description, &l.PriceCents); err != nil {
			return nil, wrapPgErr("failed to scan invoice line", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

const selectOverdueSQL = `
SELECT id
FROM orders
WHERE status = 'pending' AND expires < $1
ORDER BY expires`

func (r *CommandReads) OverduePendingOrders(ctx context.Context, asOf time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, selectOverdueSQL, asOf)
	if err != nil {
		return nil, wrapPgErr("failed to list overdue orders", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrapPgErr("failed to scan order id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
