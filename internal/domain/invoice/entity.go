package invoice

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrAlreadyCanceled = errors.New("invoice is already canceled")

// Invoice is a derived artifact of an order. Once issued it is immutable;
// correcting one means canceling it and issuing a replacement.
type Invoice struct {
	id         uuid.UUID
	orderID    uuid.UUID
	number     string
	lines      []Line
	totalCents int64
	locale     string
	issuedAt   time.Time
	canceled   bool
}

type Line struct {
	Description string
	PriceCents  int64
}

func NewInvoice(orderID uuid.UUID, orderCode string, sequence int, lines []Line, totalCents int64, locale string, issuedAt time.Time) *Invoice {
	return &Invoice{
		id:         uuid.New(),
		orderID:    orderID,
		number:     fmt.Sprintf("%s-%d", orderCode, sequence),
		lines:      lines,
		totalCents: totalCents,
		locale:     locale,
		issuedAt:   issuedAt,
	}
}

func ReconstructInvoice(id, orderID uuid.UUID, number string, lines []Line, totalCents int64, locale string, issuedAt time.Time, canceled bool) *Invoice {
	return &Invoice{
		id:         id,
		orderID:    orderID,
		number:     number,
		lines:      lines,
		totalCents: totalCents,
		locale:     locale,
		issuedAt:   issuedAt,
		canceled:   canceled,
	}
}

func (i *Invoice) ID() uuid.UUID       { return i.id }
func (i *Invoice) OrderID() uuid.UUID  { return i.orderID }
func (i *Invoice) Number() string      { return i.number }
func (i *Invoice) Lines() []Line       { return i.lines }
func (i *Invoice) TotalCents() int64   { return i.totalCents }
func (i *Invoice) Locale() string      { return i.locale }
func (i *Invoice) IssuedAt() time.Time { return i.issuedAt }
func (i *Invoice) Canceled() bool      { return i.canceled }

// MarkCanceled flags the invoice as replaced. The accompanying cancellation
// record is produced by NewCancellation.
func (i *Invoice) MarkCanceled() error {
	if i.canceled {
		return ErrAlreadyCanceled
	}
	i.canceled = true
	return nil
}

// CancellationRecord documents that an issued invoice was voided. It is
// itself immutable and append-only.
type CancellationRecord struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID
	Number    string
	IssuedAt  time.Time
}

func NewCancellation(inv *Invoice, issuedAt time.Time) CancellationRecord {
	return CancellationRecord{
		ID:        uuid.New(),
		InvoiceID: inv.id,
		Number:    inv.number + "-C",
		IssuedAt:  issuedAt,
	}
}
