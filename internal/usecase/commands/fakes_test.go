//go:build unit

package commands_test

import (
	"context"
	"time"

	"boxoffice/internal/domain/catalog"
	"boxoffice/internal/domain/invoice"
	"boxoffice/internal/domain/order"
	"boxoffice/internal/infra"
	"boxoffice/internal/usecase/shared"

	"github.com/google/uuid"
)

// The fakes below persist scalar snapshots at commit time, so tests can
// assert that a failed batch left the stored state untouched even though
// the in-memory entities were partially mutated.

type orderRow struct {
	status     order.Status
	totalCents int64
	expires    time.Time
	email      string
	locale     string
	comment    string
}

type positionRow struct {
	orderID        uuid.UUID
	itemID         uuid.UUID
	priceCents     int64
	canceled       bool
	dateInstanceID *uuid.UUID
}

type fakeStore struct {
	reads *fakeReads

	orderRows        map[uuid.UUID]orderRow
	positionRows     map[uuid.UUID]positionRow
	invoiceCanceled  map[uuid.UUID]bool
	cancellationRows []invoice.CancellationRecord
	audits           []shared.AuditEntry

	lockErr   error
	lockCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reads: &fakeReads{
			orders:        make(map[uuid.UUID]*order.Order),
			items:         make(map[uuid.UUID]*catalog.Item),
			dateInstances: make(map[uuid.UUID]*catalog.DateInstance),
			invoices:      make(map[uuid.UUID][]*invoice.Invoice),
			quotaReads:    &fakeQuotaReads{usage: make(map[uuid.UUID]shared.QuotaUsage)},
		},
		orderRows:       make(map[uuid.UUID]orderRow),
		positionRows:    make(map[uuid.UUID]positionRow),
		invoiceCanceled: make(map[uuid.UUID]bool),
	}
}

// seedOrder registers the entity for reads and snapshots its persisted row.
func (s *fakeStore) seedOrder(ord *order.Order) {
	s.reads.orders[ord.ID()] = ord
	s.orderRows[ord.ID()] = snapshotOrder(ord)
	for _, p := range ord.Positions() {
		s.positionRows[p.ID()] = snapshotPosition(p)
	}
}

func snapshotOrder(ord *order.Order) orderRow {
	return orderRow{
		status:     ord.Status(),
		totalCents: ord.Total().Cents(),
		expires:    ord.Expires(),
		email:      ord.Email(),
		locale:     ord.Locale(),
		comment:    ord.Comment(),
	}
}

func snapshotPosition(p *order.Position) positionRow {
	return positionRow{
		orderID:        p.OrderID(),
		itemID:         p.ItemID(),
		priceCents:     p.Price().Cents(),
		canceled:       p.Canceled(),
		dateInstanceID: p.DateInstanceID(),
	}
}

func (s *fakeStore) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	tx := &fakeTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *fakeStore) WithinEventLock(ctx context.Context, eventID uuid.UUID, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.lockCalls++
	if s.lockErr != nil {
		return s.lockErr
	}
	return s.Within(ctx, fn)
}

func (s *fakeStore) Reads() shared.CommandReads {
	return s.reads
}

type fakeTx struct {
	store *fakeStore

	orderUpdates   []*order.Order
	positionWrites []*order.Position
	invoiceCreates []*invoice.Invoice
	invoiceCancels []uuid.UUID
	cancellations  []invoice.CancellationRecord
	audits         []shared.AuditEntry
}

func (t *fakeTx) commit() {
	for _, ord := range t.orderUpdates {
		t.store.orderRows[ord.ID()] = snapshotOrder(ord)
	}
	for _, p := range t.positionWrites {
		t.store.positionRows[p.ID()] = snapshotPosition(p)
	}
	for _, inv := range t.invoiceCreates {
		t.store.reads.invoices[inv.OrderID()] = append(t.store.reads.invoices[inv.OrderID()], inv)
	}
	for _, id := range t.invoiceCancels {
		t.store.invoiceCanceled[id] = true
	}
	t.store.cancellationRows = append(t.store.cancellationRows, t.cancellations...)
	t.store.audits = append(t.store.audits, t.audits...)
}

func (t *fakeTx) Orders() shared.OrderRepository     { return (*fakeOrderRepo)(t) }
func (t *fakeTx) Invoices() shared.InvoiceRepository { return (*fakeInvoiceRepo)(t) }
func (t *fakeTx) Audit() shared.AuditLog             { return (*fakeAuditLog)(t) }
func (t *fakeTx) Quotas() shared.QuotaReads          { return t.store.reads.quotaReads }

type fakeOrderRepo fakeTx

func (r *fakeOrderRepo) Update(_ context.Context, ord *order.Order) error {
	r.orderUpdates = append(r.orderUpdates, ord)
	return nil
}

func (r *fakeOrderRepo) CreatePosition(_ context.Context, pos *order.Position) error {
	r.positionWrites = append(r.positionWrites, pos)
	return nil
}

func (r *fakeOrderRepo) UpdatePosition(_ context.Context, pos *order.Position) error {
	r.positionWrites = append(r.positionWrites, pos)
	return nil
}

type fakeInvoiceRepo fakeTx

func (r *fakeInvoiceRepo) Create(_ context.Context, inv *invoice.Invoice) error {
	r.invoiceCreates = append(r.invoiceCreates, inv)
	return nil
}

func (r *fakeInvoiceRepo) MarkCanceled(_ context.Context, invoiceID uuid.UUID) error {
	r.invoiceCancels = append(r.invoiceCancels, invoiceID)
	return nil
}

func (r *fakeInvoiceRepo) CreateCancellation(_ context.Context, rec invoice.CancellationRecord) error {
	r.cancellations = append(r.cancellations, rec)
	return nil
}

type fakeAuditLog fakeTx

func (l *fakeAuditLog) Append(_ context.Context, entry shared.AuditEntry) error {
	l.audits = append(l.audits, entry)
	return nil
}

type fakeReads struct {
	orders        map[uuid.UUID]*order.Order
	items         map[uuid.UUID]*catalog.Item
	dateInstances map[uuid.UUID]*catalog.DateInstance
	invoices      map[uuid.UUID][]*invoice.Invoice
	overdue       []uuid.UUID
	quotaReads    *fakeQuotaReads
}

func (r *fakeReads) OrderByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	ord, ok := r.orders[id]
	if !ok {
		return nil, infra.WrapRepoErr(infra.KindNotFound, "order not found", nil)
	}
	return ord, nil
}

func (r *fakeReads) OrderByCode(_ context.Context, eventID uuid.UUID, code string) (*order.Order, error) {
	for _, ord := range r.orders {
		if ord.EventID() == eventID && ord.Code() == code {
			return ord, nil
		}
	}
	return nil, infra.WrapRepoErr(infra.KindNotFound, "order not found", nil)
}

func (r *fakeReads) ItemByID(_ context.Context, _ uuid.UUID, itemID uuid.UUID) (*catalog.Item, error) {
	item, ok := r.items[itemID]
	if !ok {
		return nil, infra.WrapRepoErr(infra.KindNotFound, "item not found", nil)
	}
	return item, nil
}

func (r *fakeReads) DateInstanceByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*catalog.DateInstance, error) {
	di, ok := r.dateInstances[id]
	if !ok {
		return nil, infra.WrapRepoErr(infra.KindNotFound, "date instance not found", nil)
	}
	return di, nil
}

func (r *fakeReads) InvoicesByOrder(_ context.Context, orderID uuid.UUID) ([]*invoice.Invoice, error) {
	return r.invoices[orderID], nil
}

func (r *fakeReads) OverduePendingOrders(_ context.Context, _ time.Time) ([]uuid.UUID, error) {
	return r.overdue, nil
}

// fakeQuotaReads serves a static quota configuration. usage represents
// consumption by everything except the order under test, so the
// excludeOrderID parameter is honored implicitly.
type fakeQuotaReads struct {
	quotas []catalog.Quota
	usage  map[uuid.UUID]shared.QuotaUsage
}

func (q *fakeQuotaReads) QuotasFor(_ context.Context, _ uuid.UUID, itemID uuid.UUID, variationID, dateInstanceID *uuid.UUID) ([]catalog.Quota, error) {
	var matched []catalog.Quota
	for _, quota := range q.quotas {
		if quota.AppliesTo(itemID, variationID, dateInstanceID) {
			matched = append(matched, quota)
		}
	}
	return matched, nil
}

func (q *fakeQuotaReads) Usage(_ context.Context, quotaID uuid.UUID, _ *uuid.UUID, _ time.Time) (shared.QuotaUsage, error) {
	return q.usage[quotaID], nil
}

type fakeNotifier struct {
	sends []sentNotification
	err   error
}

type sentNotification struct {
	orderID     uuid.UUID
	recipient   string
	templateKey string
	fields      map[string]any
	locale      string
}

func (n *fakeNotifier) Send(_ context.Context, orderID uuid.UUID, recipient, templateKey string, fields map[string]any, locale string) error {
	if n.err != nil {
		return n.err
	}
	n.sends = append(n.sends, sentNotification{
		orderID:     orderID,
		recipient:   recipient,
		templateKey: templateKey,
		fields:      fields,
		locale:      locale,
	})
	return nil
}

func auditActions(entries []shared.AuditEntry) []string {
	actions := make([]string, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	return actions
}
