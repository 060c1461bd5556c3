package commands

import (
	"fmt"

	"boxoffice/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound        = errs.New("order not found")
	ErrItemNotFound         = errs.New("item not found")
	ErrDateInstanceNotFound = errs.New("date instance not found")
	ErrInvoiceNotFound      = errs.New("invoice not found")

	// ErrQuotaExceeded is not retried automatically; it is surfaced for an
	// operator decision.
	ErrQuotaExceeded = errs.New("quota exceeded")

	// ErrLockTimeout means the event lock could not be acquired within the
	// bound. Safe to retry later.
	ErrLockTimeout = errs.New("event is currently locked, please try again later")

	// ErrInvalidOperation is a caller bug: the referenced position, item or
	// value is out of domain. Never retried.
	ErrInvalidOperation = errs.New("invalid operation")

	// ErrDeliveryFailure is reported as a warning on top of an already
	// committed result; it never rolls anything back.
	ErrDeliveryFailure = errs.New("notification could not be sent")

	ErrInvoiceStateConflict = errs.New("invoice has already been canceled")
	ErrInvoiceExists        = errs.New("an invoice for this order already exists")

	ErrInvalidStatus = errs.New("order status does not allow this action")

	// ErrBatchClosed guards the single-use change batch: Commit must be
	// called at most once, successful or not.
	ErrBatchClosed = errs.New("change batch already committed or aborted")
)

type OperationKind string

const (
	OpAddPosition        OperationKind = "add"
	OpChangeItem         OperationKind = "item"
	OpChangePrice        OperationKind = "price"
	OpChangeDateInstance OperationKind = "dateinstance"
	OpCancelPosition     OperationKind = "cancel"
)

// OperationError identifies the first queued operation that made a batch
// commit fail, so callers can render the error inline next to it.
type OperationError struct {
	Index      int
	Kind       OperationKind
	PositionID *uuid.UUID
	Err        error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
