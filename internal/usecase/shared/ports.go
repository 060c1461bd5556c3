package shared

import (
	"context"
	"time"

	"boxoffice/internal/domain/catalog"
	"boxoffice/internal/domain/invoice"
	"boxoffice/internal/domain/order"

	"github.com/google/uuid"
)

// ActorRef identifies who performed an action in audit entries. Background
// jobs use SystemActor.
type ActorRef struct {
	ID    uuid.UUID
	Label string
}

var SystemActor = ActorRef{Label: "system"}

type AuditEntry struct {
	EntityType string
	EntityID   uuid.UUID
	Action     string
	Actor      ActorRef
	Payload    map[string]any
	At         time.Time
}

// AuditLog is append-only; entries are never mutated or deleted.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// Notifier delivers a customer-facing message tied to one order. It is
// always called after the event lock is released; failures never unwind
// committed state. Sent messages form the order's email history.
type Notifier interface {
	Send(ctx context.Context, orderID uuid.UUID, recipient, templateKey string, fields map[string]any, locale string) error
}

// QuotaUsage is the consumption of one quota at a point in time: positions
// of live (pending or paid) orders plus externally reserved carts.
type QuotaUsage struct {
	Sold     int64
	Reserved int64
}

// QuotaReads must only be consulted while holding the event lock when the
// answer will be acted upon.
type QuotaReads interface {
	QuotasFor(ctx context.Context, eventID, itemID uuid.UUID, variationID, dateInstanceID *uuid.UUID) ([]catalog.Quota, error)
	Usage(ctx context.Context, quotaID uuid.UUID, excludeOrderID *uuid.UUID, asOf time.Time) (QuotaUsage, error)
}

type OrderRepository interface {
	Update(ctx context.Context, ord *order.Order) error
	CreatePosition(ctx context.Context, pos *order.Position) error
	UpdatePosition(ctx context.Context, pos *order.Position) error
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *invoice.Invoice) error
	MarkCanceled(ctx context.Context, invoiceID uuid.UUID) error
	CreateCancellation(ctx context.Context, rec invoice.CancellationRecord) error
}

// Tx exposes the repositories bound to one transaction.
type Tx interface {
	Orders() OrderRepository
	Invoices() InvoiceRepository
	Audit() AuditLog
	Quotas() QuotaReads
}

// Store is the persistence boundary. WithinEventLock serializes the
// callback against all other lock holders of the same sales event, with a
// bounded wait: callers get ErrLockTimeout-marked errors instead of
// hanging. Either form commits atomically; a returned error rolls back
// every write of the callback.
type Store interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	WithinEventLock(ctx context.Context, eventID uuid.UUID, fn func(ctx context.Context, tx Tx) error) error
	Reads() CommandReads
}

// CommandReads are lock-free reads used for early validation and for
// loading aggregates before a locked section.
type CommandReads interface {
	OrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	OrderByCode(ctx context.Context, eventID uuid.UUID, code string) (*order.Order, error)
	ItemByID(ctx context.Context, eventID, itemID uuid.UUID) (*catalog.Item, error)
	DateInstanceByID(ctx context.Context, eventID, id uuid.UUID) (*catalog.DateInstance, error)
	InvoicesByOrder(ctx context.Context, orderID uuid.UUID) ([]*invoice.Invoice, error)
	OverduePendingOrders(ctx context.Context, asOf time.Time) ([]uuid.UUID, error)
}
