package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"boxoffice/internal/infra/db"
	"boxoffice/internal/pkg/clock"
	"boxoffice/internal/pkg/errs"

	"github.com/google/uuid"
)

// OutboxNotifier enqueues customer messages as rows in notification_jobs;
// an external worker drains the table and the rows double as the order's
// email history. It is intentionally not transactional with order state:
// callers invoke it after the event lock is released, and a failed enqueue
// is reported as a warning, never a rollback.
type OutboxNotifier struct {
	db    db.DBTX
	clock clock.Clock
}

func NewOutboxNotifier(dbtx db.DBTX, clk clock.Clock) *OutboxNotifier {
	return &OutboxNotifier{db: dbtx, clock: clk}
}

const insertJobSQL = `
INSERT INTO notification_jobs (id, order_id, recipient, template_key, fields, locale, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, 'queued', $7)`

func (n *OutboxNotifier) Send(ctx context.Context, orderID uuid.UUID, recipient, templateKey string, fields map[string]any, locale string) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return errs.Wrap(err, "failed to encode notification fields")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = n.db.Exec(ctx, insertJobSQL,
		uuid.New(), orderID, recipient, templateKey, payload, locale, n.clock.Now(),
	)
	if err != nil {
		slog.Warn("failed to enqueue notification",
			"template", templateKey,
			"error", err.Error())
		return errs.Wrap(err, "failed to enqueue notification")
	}
	return nil
}
