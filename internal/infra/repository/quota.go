package repository

import (
	"context"
	"time"

	"boxoffice/internal/domain/catalog"
	"boxoffice/internal/infra/db"
	"boxoffice/internal/infra/pgconv"
	"boxoffice/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type QuotaReads struct {
	db db.DBTX
}

func NewQuotaReads(dbtx db.DBTX) *QuotaReads {
	return &QuotaReads{db: dbtx}
}

// Quota membership is resolved in SQL once; date-instance scoping and the
// item/variation match mirror catalog.Quota.AppliesTo.
const selectQuotasForSQL = `
SELECT DISTINCT q.id, q.event_id, q.name, q.size, q.date_instance_id
FROM quotas q
LEFT JOIN quota_items qi ON qi.quota_id = q.id
LEFT JOIN quota_variations qv ON qv.quota_id = q.id
WHERE q.event_id = $1
  AND (q.date_instance_id IS NULL OR q.date_instance_id = $4)
  AND (qi.item_id = $2 OR ($3::uuid IS NOT NULL AND qv.variation_id = $3))
ORDER BY q.name`

const selectQuotaMembersSQL = `
SELECT qi.item_id, NULL::uuid
FROM quota_items qi
WHERE qi.quota_id = $1
UNION ALL
SELECT NULL::uuid, qv.variation_id
FROM quota_variations qv
WHERE qv.quota_id = $1`

func (q *QuotaReads) QuotasFor(ctx context.Context, eventID, itemID uuid.UUID, variationID, dateInstanceID *uuid.UUID) ([]catalog.Quota, error) {
	rows, err := q.db.Query(ctx, selectQuotasForSQL,
		eventID, itemID, pgconv.PgFromUUIDPtr(variationID), pgconv.PgFromUUIDPtr(dateInstanceID),
	)
	if err != nil {
		return nil, wrapPgErr("failed to load quotas", err)
	}
	defer rows.Close()

	var quotas []catalog.Quota
	for rows.Next() {
		var (
			quota          catalog.Quota
			size           pgtype.Int8
			dateInstanceID pgtype.UUID
		)
		if err := rows.Scan(&quota.ID, &quota.EventID, &quota.Name, &size, &dateInstanceID); err != nil {
			return nil, wrapPgErr("failed to scan quota", err)
		}
		quota.Size = pgconv.Int8PtrFromPg(size)
		quota.DateInstanceID = pgconv.UUIDPtrFromPg(dateInstanceID)
		quotas = append(quotas, quota)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr("failed to iterate quotas", err)
	}

	for i := range quotas {
		if err := q.loadMembers(ctx, &quotas[i]); err != nil {
			return nil, err
		}
	}
	return quotas, nil
}

func (q *QuotaReads) loadMembers(ctx context.Context, quota *catalog.Quota) error {
	rows, err := q.db.Query(ctx, selectQuotaMembersSQL, quota.ID)
	if err != nil {
		return wrapPgErr("failed to load quota members", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID, variationID pgtype.UUID
		if err := rows.Scan(&itemID, &variationID); err != nil {
			return wrapPgErr("failed to scan quota member", err)
		}
		if id := pgconv.UUIDPtrFromPg(itemID); id != nil {
			quota.ItemIDs = append(quota.ItemIDs, *id)
		}
		if id := pgconv.UUIDPtrFromPg(variationID); id != nil {
			quota.VariationIDs = append(quota.VariationIDs, *id)
		}
	}
	return rows.Err()
}

// Sold counts live positions: not canceled, belonging to a pending or paid
// order. Reserved counts carts whose hold has not lapsed yet. Both respect
// the quota's own item/variation/date-instance scope.
const quotaSoldSQL = `
SELECT COUNT(*)
FROM order_positions p
JOIN orders o ON o.id = p.order_id
WHERE NOT p.canceled
  AND o.status IN ('pending', 'paid')
  AND ($2::uuid IS NULL OR o.id <> $2)
  AND (
    p.item_id IN (SELECT item_id FROM quota_items WHERE quota_id = $1)
    OR p.variation_id IN (SELECT variation_id FROM quota_variations WHERE quota_id = $1)
  )
  AND (
    (SELECT date_instance_id FROM quotas WHERE id = $1) IS NULL
    OR p.date_instance_id = (SELECT date_instance_id FROM quotas WHERE id = $1)
  )`

const quotaReservedSQL = `
SELECT COUNT(*)
FROM cart_reservations c
WHERE c.quota_id = $1 AND c.expires > $2`

func (q *QuotaReads) Usage(ctx context.Context, quotaID uuid.UUID, excludeOrderID *uuid.UUID, asOf time.Time) (shared.QuotaUsage, error) {
	var usage shared.QuotaUsage
	err := q.db.QueryRow(ctx, quotaSoldSQL, quotaID, pgconv.PgFromUUIDPtr(excludeOrderID)).Scan(&usage.Sold)
	if err != nil {
		return shared.QuotaUsage{}, wrapPgErr("failed to count sold positions", err)
	}
	err = q.db.QueryRow(ctx, quotaReservedSQL, quotaID, asOf).Scan(&usage.Reserved)
	if err != nil {
		return shared.QuotaUsage{}, wrapPgErr("failed to count cart reservations", err)
	}
	return usage, nil
}
