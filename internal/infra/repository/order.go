package repository

import (
	"context"
	"errors"

	"boxoffice/internal/domain/order"
	"boxoffice/internal/infra"
	"boxoffice/internal/infra/db"
	"boxoffice/internal/infra/pgconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type OrderRepository struct {
	db db.DBTX
}

func NewOrderRepository(dbtx db.DBTX) *OrderRepository {
	return &OrderRepository{db: dbtx}
}

const updateOrderSQL = `
UPDATE orders
SET status = $2,
    total_cents = $3,
    payment_fee_cents = $4,
    expires = $5,
    locale = $6,
    email = $7,
    payment_method = $8,
    payment_manual = $9,
    comment = $10
WHERE id = $1`

func (r *OrderRepository) Update(ctx context.Context, ord *order.Order) error {
	tag, err := r.db.Exec(ctx, updateOrderSQL,
		ord.ID(),
		ord.Status().String(),
		ord.Total().Cents(),
		ord.PaymentFee().Cents(),
		ord.Expires(),
		ord.Locale(),
		ord.Email(),
		ord.PaymentMethod(),
		ord.PaymentManual(),
		ord.Comment(),
	)
	if err != nil {
		return wrapPgErr("failed to update order", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(infra.KindNotFound, "order not found", nil)
	}
	return nil
}

const createPositionSQL = `
INSERT INTO order_positions (id, order_id, item_id, variation_id, date_instance_id, price_cents, secret, addon_to_id, number, canceled)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (r *OrderRepository) CreatePosition(ctx context.Context, pos *order.Position) error {
	_, err := r.db.Exec(ctx, createPositionSQL,
		pos.ID(),
		pos.OrderID(),
		pos.ItemID(),
		pgconv.PgFromUUIDPtr(pos.VariationID()),
		pgconv.PgFromUUIDPtr(pos.DateInstanceID()),
		pos.Price().Cents(),
		pos.Secret(),
		pgconv.PgFromUUIDPtr(pos.AddonToID()),
		pos.Number(),
		pos.Canceled(),
	)
	if err != nil {
		return wrapPgErr("failed to create position", err)
	}
	return nil
}

const updatePositionSQL = `
UPDATE order_positions
SET item_id = $2,
    variation_id = $3,
    date_instance_id = $4,
    price_cents = $5,
    canceled = $6
WHERE id = $1`

func (r *OrderRepository) UpdatePosition(ctx context.Context, pos *order.Position) error {
	tag, err := r.db.Exec(ctx, updatePositionSQL,
		pos.ID(),
		pos.ItemID(),
		pgconv.PgFromUUIDPtr(pos.VariationID()),
		pgconv.PgFromUUIDPtr(pos.DateInstanceID()),
		pos.Price().Cents(),
		pos.Canceled(),
	)
	if err != nil {
		return wrapPgErr("failed to update position", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(infra.KindNotFound, "position not found", nil)
	}
	return nil
}

func wrapPgErr(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return infra.WrapRepoErr(infra.KindDuplicateKey, msg, err)
		case "23503":
			return infra.WrapRepoErr(infra.KindForeignKeyViolated, msg, err)
		case "55P03":
			return infra.WrapRepoErr(infra.KindLockTimeout, msg, err)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return infra.WrapRepoErr(infra.KindNotFound, msg, err)
	}
	return infra.WrapRepoErr(infra.KindDBFailure, msg, err)
}
