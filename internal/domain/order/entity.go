package order

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidTransition   = errors.New("status transition not allowed")
	ErrInvalidEmail        = errors.New("invalid contact email")
	ErrExpiryNotInFuture   = errors.New("expiry must be in the future")
	ErrPositionCanceled    = errors.New("position is already canceled")
	ErrPositionNotFound    = errors.New("position does not belong to this order")
	ErrAddonToAddon        = errors.New("add-on products cannot have add-ons themselves")
	ErrUnknownDateInstance = errors.New("date instance required")
)

// Order is a customer's purchase record within one sales event. Its total
// always equals the sum of non-canceled position prices plus the payment fee.
type Order struct {
	id            uuid.UUID
	eventID       uuid.UUID
	code          string
	status        Status
	total         Money
	paymentFee    Money
	expires       time.Time
	locale        string
	email         string
	paymentMethod string
	paymentManual bool
	comment       string
	positions     []*Position
	createdAt     time.Time
}

func NewOrder(
	eventID uuid.UUID,
	email string,
	locale string,
	paymentMethod string,
	paymentFee Money,
	expires time.Time,
	now time.Time,
) (*Order, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if !expires.After(now) {
		return nil, ErrExpiryNotInFuture
	}
	return &Order{
		id:            uuid.New(),
		eventID:       eventID,
		code:          NewCode(),
		status:        StatusPending,
		total:         paymentFee,
		paymentFee:    paymentFee,
		expires:       expires,
		locale:        locale,
		email:         email,
		paymentMethod: paymentMethod,
		createdAt:     now,
	}, nil
}

func ReconstructOrder(
	id, eventID uuid.UUID,
	code string,
	status Status,
	total, paymentFee Money,
	expires time.Time,
	locale, email, paymentMethod string,
	paymentManual bool,
	comment string,
	positions []*Position,
	createdAt time.Time,
) *Order {
	return &Order{
		id:            id,
		eventID:       eventID,
		code:          code,
		status:        status,
		total:         total,
		paymentFee:    paymentFee,
		expires:       expires,
		locale:        locale,
		email:         email,
		paymentMethod: paymentMethod,
		paymentManual: paymentManual,
		comment:       comment,
		positions:     positions,
		createdAt:     createdAt,
	}
}

func (o *Order) ID() uuid.UUID         { return o.id }
func (o *Order) EventID() uuid.UUID    { return o.eventID }
func (o *Order) Code() string          { return o.code }
func (o *Order) Status() Status        { return o.status }
func (o *Order) Total() Money          { return o.total }
func (o *Order) PaymentFee() Money     { return o.paymentFee }
func (o *Order) Expires() time.Time    { return o.expires }
func (o *Order) Locale() string        { return o.locale }
func (o *Order) Email() string         { return o.email }
func (o *Order) PaymentMethod() string { return o.paymentMethod }
func (o *Order) PaymentManual() bool   { return o.paymentManual }
func (o *Order) Comment() string       { return o.comment }
func (o *Order) CreatedAt() time.Time  { return o.createdAt }

func (o *Order) Positions() []*Position {
	return o.positions
}

// ActivePositions returns the non-canceled positions in order.
func (o *Order) ActivePositions() []*Position {
	active := make([]*Position, 0, len(o.positions))
	for _, p := range o.positions {
		if !p.Canceled() {
			active = append(active, p)
		}
	}
	return active
}

func (o *Order) PositionByID(id uuid.UUID) (*Position, bool) {
	for _, p := range o.positions {
		if p.id == id {
			return p, true
		}
	}
	return nil, false
}

// AttachPosition takes ownership of p, assigning it to this order and the
// next free ordering key.
func (o *Order) AttachPosition(p *Position) {
	p.orderID = o.id
	p.number = o.nextPositionNumber()
	o.positions = append(o.positions, p)
}

func (o *Order) nextPositionNumber() int {
	max := 0
	for _, p := range o.positions {
		if p.number > max {
			max = p.number
		}
	}
	return max + 1
}

// RecalculateTotal restores the total invariant after position mutations.
func (o *Order) RecalculateTotal() {
	total := o.paymentFee
	for _, p := range o.ActivePositions() {
		total = total.Add(p.price)
	}
	o.total = total
}

func (o *Order) transition(to Status) error {
	if !o.status.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	o.status = to
	return nil
}

func (o *Order) MarkPaid() error {
	return o.transition(StatusPaid)
}

func (o *Order) MarkExpired() error {
	if o.status != StatusPending {
		return ErrInvalidTransition
	}
	return o.transition(StatusExpired)
}

func (o *Order) MarkCanceled() error {
	if o.status != StatusPending {
		return ErrInvalidTransition
	}
	return o.transition(StatusCanceled)
}

// MarkUnpaid reverts a paid order to pending for manual payment
// reconfirmation. Quota is not re-checked here.
func (o *Order) MarkUnpaid() error {
	if o.status != StatusPaid {
		return ErrInvalidTransition
	}
	o.paymentManual = true
	return o.transition(StatusPending)
}

func (o *Order) MarkRefunded() error {
	if o.status != StatusPaid {
		return ErrInvalidTransition
	}
	return o.transition(StatusRefunded)
}

// Revive returns an expired order to pending with a new payment deadline.
// Callers must have re-validated inventory first.
func (o *Order) Revive(newExpiry, now time.Time) error {
	if o.status != StatusExpired {
		return ErrInvalidTransition
	}
	if !newExpiry.After(now) {
		return ErrExpiryNotInFuture
	}
	o.expires = newExpiry
	return o.transition(StatusPending)
}

func (o *Order) SetExpiry(newExpiry, now time.Time) error {
	if !newExpiry.After(now) {
		return ErrExpiryNotInFuture
	}
	o.expires = newExpiry
	return nil
}

func (o *Order) SetComment(comment string) {
	o.comment = comment
}

func (o *Order) SetContact(email string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	o.email = email
	return nil
}

func (o *Order) SetLocale(locale string) {
	o.locale = locale
}

func (o *Order) IsOverdue(now time.Time) bool {
	return o.status == StatusPending && o.expires.Before(now)
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// Position is one sellable entitlement line within an order.
type Position struct {
	id             uuid.UUID
	orderID        uuid.UUID
	itemID         uuid.UUID
	variationID    *uuid.UUID
	dateInstanceID *uuid.UUID
	price          Money
	secret         string
	addonToID      *uuid.UUID
	number         int
	canceled       bool
}

// NewPosition creates an unattached position. Add-on nesting is limited to
// one level: the parent must not itself be an add-on.
func NewPosition(
	itemID uuid.UUID,
	variationID *uuid.UUID,
	dateInstanceID *uuid.UUID,
	price Money,
	addonTo *Position,
) (*Position, error) {
	if price.IsNegative() {
		return nil, errors.New("price cannot be negative")
	}
	p := &Position{
		id:             uuid.New(),
		itemID:         itemID,
		variationID:    variationID,
		dateInstanceID: dateInstanceID,
		price:          price,
		secret:         NewPositionSecret(),
	}
	if addonTo != nil {
		if addonTo.IsAddon() {
			return nil, ErrAddonToAddon
		}
		if addonTo.canceled {
			return nil, ErrPositionCanceled
		}
		id := addonTo.id
		p.addonToID = &id
	}
	return p, nil
}

func ReconstructPosition(
	id, orderID, itemID uuid.UUID,
	variationID, dateInstanceID, addonToID *uuid.UUID,
	price Money,
	secret string,
	number int,
	canceled bool,
) *Position {
	return &Position{
		id:             id,
		orderID:        orderID,
		itemID:         itemID,
		variationID:    variationID,
		dateInstanceID: dateInstanceID,
		price:          price,
		secret:         secret,
		addonToID:      addonToID,
		number:         number,
		canceled:       canceled,
	}
}

func (p *Position) ID() uuid.UUID               { return p.id }
func (p *Position) OrderID() uuid.UUID          { return p.orderID }
func (p *Position) ItemID() uuid.UUID           { return p.itemID }
func (p *Position) VariationID() *uuid.UUID     { return p.variationID }
func (p *Position) DateInstanceID() *uuid.UUID  { return p.dateInstanceID }
func (p *Position) Price() Money                { return p.price }
func (p *Position) Secret() string              { return p.secret }
func (p *Position) AddonToID() *uuid.UUID       { return p.addonToID }
func (p *Position) Number() int                 { return p.number }
func (p *Position) Canceled() bool              { return p.canceled }

func (p *Position) IsAddon() bool {
	return p.addonToID != nil
}

func (p *Position) ChangeItem(itemID uuid.UUID, variationID *uuid.UUID) error {
	if p.canceled {
		return ErrPositionCanceled
	}
	p.itemID = itemID
	p.variationID = variationID
	return nil
}

func (p *Position) ChangePrice(price Money) error {
	if p.canceled {
		return ErrPositionCanceled
	}
	if price.IsNegative() {
		return errors.New("price cannot be negative")
	}
	p.price = price
	return nil
}

func (p *Position) ChangeDateInstance(dateInstanceID uuid.UUID) error {
	if p.canceled {
		return ErrPositionCanceled
	}
	if dateInstanceID == uuid.Nil {
		return ErrUnknownDateInstance
	}
	id := dateInstanceID
	p.dateInstanceID = &id
	return nil
}

func (p *Position) Cancel() error {
	if p.canceled {
		return ErrPositionCanceled
	}
	p.canceled = true
	return nil
}
