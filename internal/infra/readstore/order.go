package readstore

import (
	"context"
	"encoding/json"
	"errors"

	"boxoffice/internal/infra"
	"boxoffice/internal/infra/db"
	"boxoffice/internal/infra/pgconv"
	"boxoffice/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderReadStore serves the query side directly from SQL views, bypassing
// the domain layer.
type OrderReadStore struct {
	db db.DBTX
}

func NewOrderReadStore(dbtx db.DBTX) *OrderReadStore {
	return &OrderReadStore{db: dbtx}
}

const orderViewSQL = `
SELECT id, event_id, code, status, total_cents, payment_fee_cents, expires,
       locale, email, payment_method, payment_manual, comment, created_at
FROM orders
WHERE `

const positionViewSQL = `
SELECT p.id, p.number, p.item_id, i.name, p.variation_id, v.name,
       p.date_instance_id, p.price_cents, p.addon_to_id, p.secret, p.canceled
FROM order_positions p
JOIN items i ON i.id = p.item_id
LEFT JOIN item_variations v ON v.id = p.variation_id
WHERE p.order_id = $1
ORDER BY p.number`

func (r *OrderReadStore) GetByID(ctx context.Context, id uuid.UUID) (*queries.OrderView, error) {
	return r.findOrder(ctx, orderViewSQL+"id = $1", id)
}

func (r *OrderReadStore) GetByCode(ctx context.Context, eventID uuid.UUID, code string) (*queries.OrderView, error) {
	return r.findOrder(ctx, orderViewSQL+"event_id = $1 AND code = $2", eventID, code)
}

func (r *OrderReadStore) findOrder(ctx context.Context, sql string, args ...any) (*queries.OrderView, error) {
	var (
		view      queries.OrderView
		comment   pgtype.Text
		expires   pgtype.Timestamptz
		createdAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, sql, args...).Scan(
		&view.ID, &view.EventID, &view.Code, &view.Status,
		&view.TotalCents, &view.PaymentFeeCents, &expires,
		&view.Locale, &view.Email, &view.PaymentMethod, &view.PaymentManual,
		&comment, &createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr(infra.KindNotFound, "order not found", err)
		}
		return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to find order", err)
	}
	if s := pgconv.TextPtrFromPg(comment); s != nil {
		view.Comment = *s
	}
	view.Expires = pgconv.TimeFromPg(expires)
	view.CreatedAt = pgconv.TimeFromPg(createdAt)

	positions, err := r.positions(ctx, view.ID)
	if err != nil {
		return nil, err
	}
	view.Positions = positions
	return &view, nil
}

func (r *OrderReadStore) positions(ctx context.Context, orderID uuid.UUID) ([]queries.PositionView, error) {
	rows, err := r.db.Query(ctx, positionViewSQL, orderID)
	if err != nil {
		return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to list positions", err)
	}
	defer rows.Close()

	var views []queries.PositionView
	for rows.Next() {
		var (
			pv                      queries.PositionView
			variationID, addonToID  pgtype.UUID
			dateInstanceID          pgtype.UUID
			variationName           pgtype.Text
		)
		if err := rows.Scan(&pv.ID, &pv.Number, &pv.ItemID, &pv.ItemName,
			&variationID, &variationName, &dateInstanceID,
			&pv.PriceCents, &addonToID, &pv.Secret, &pv.Canceled); err != nil {
			return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to scan position", err)
		}
		pv.VariationID = pgconv.UUIDPtrFromPg(variationID)
		pv.VariationName = pgconv.TextPtrFromPg(variationName)
		pv.DateInstanceID = pgconv.UUIDPtrFromPg(dateInstanceID)
		pv.AddonToID = pgconv.UUIDPtrFromPg(addonToID)
		views = append(views, pv)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to iterate positions", err)
	}
	return views, nil
}

const orderListSQL = `
SELECT id, code, status, email, total_cents, expires, created_at
FROM orders
WHERE event_id = $1 AND ($2::text IS NULL OR status = $2)
ORDER BY created_at DESC, id DESC`

func (r *OrderReadStore) ListByEvent(ctx context.Context, eventID uuid.UUID, status *string) ([]*queries.OrderListView, error) {
	rows, err := r.db.Query(ctx, orderListSQL, eventID, status)
	if err != nil {
		return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to list orders", err)
	}
	defer rows.Close()

	var views []*queries.OrderListView
	for rows.Next() {
		var (
			v                  queries.OrderListView
			expires, createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&v.ID, &v.Code, &v.Status, &v.Email, &v.TotalCents, &expires, &createdAt); err != nil {
			return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to scan order row", err)
		}
		v.Expires = pgconv.TimeFromPg(expires)
		v.CreatedAt = pgconv.TimeFromPg(createdAt)
		views = append(views, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to iterate orders", err)
	}
	return views, nil
}

const auditTrailSQL = `
SELECT id, action, actor_label, payload, created_at
FROM audit_log
WHERE entity_type = 'order' AND entity_id = $1
ORDER BY created_at, id`

func (r *OrderReadStore) AuditTrail(ctx context.Context, orderID uuid.UUID) ([]*queries.AuditEntryView, error) {
	rows, err := r.db.Query(ctx, auditTrailSQL, orderID)
	if err != nil {
		return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to load audit trail", err)
	}
	defer rows.Close()

	var views []*queries.AuditEntryView
	for rows.Next() {
		var (
			v       queries.AuditEntryView
			payload []byte
			at      pgtype.Timestamptz
		)
		if err := rows.Scan(&v.ID, &v.Action, &v.ActorLabel, &payload, &at); err != nil {
			return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to scan audit entry", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &v.Payload); err != nil {
				return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to decode audit payload", err)
			}
		}
		v.At = pgconv.TimeFromPg(at)
		views = append(views, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to iterate audit entries", err)
	}
	return views, nil
}

const emailHistorySQL = `
SELECT id, recipient, template_key, fields, locale, status, created_at
FROM notification_jobs
WHERE order_id = $1
ORDER BY created_at DESC, id`

func (r *OrderReadStore) EmailHistory(ctx context.Context, orderID uuid.UUID) ([]*queries.EmailLogView, error) {
	rows, err := r.db.Query(ctx, emailHistorySQL, orderID)
	if err != nil {
		return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to load email history", err)
	}
	defer rows.Close()

	var views []*queries.EmailLogView
	for rows.Next() {
		var (
			v         queries.EmailLogView
			fields    []byte
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&v.ID, &v.Recipient, &v.TemplateKey, &fields, &v.Locale, &v.Status, &createdAt); err != nil {
			return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to scan email log entry", err)
		}
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &v.Fields); err != nil {
				return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to decode email fields", err)
			}
		}
		v.CreatedAt = pgconv.TimeFromPg(createdAt)
		views = append(views, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(infra.KindDBFailure, "failed to iterate email log entries", err)
	}
	return views, nil
}
