package queries

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type OrderView struct {
	ID              uuid.UUID
	EventID         uuid.UUID
	Code            string
	Status          string
	TotalCents      int64
	PaymentFeeCents int64
	Expires         time.Time
	Locale          string
	Email           string
	PaymentMethod   string
	PaymentManual   bool
	Comment         string
	Positions       []PositionView
	CreatedAt       time.Time
}

type PositionView struct {
	ID             uuid.UUID
	Number         int
	ItemID         uuid.UUID
	ItemName       string
	VariationID    *uuid.UUID
	VariationName  *string
	DateInstanceID *uuid.UUID
	PriceCents     int64
	AddonToID      *uuid.UUID
	Secret         string
	Canceled       bool
}

type OrderListView struct {
	ID         uuid.UUID
	Code       string
	Status     string
	Email      string
	TotalCents int64
	Expires    time.Time
	CreatedAt  time.Time
}

type AuditEntryView struct {
	ID         uuid.UUID
	Action     string
	ActorLabel string
	Payload    map[string]any
	At         time.Time
}

type EmailLogView struct {
	ID          uuid.UUID
	Recipient   string
	TemplateKey string
	Fields      map[string]any
	Locale      string
	Status      string
	CreatedAt   time.Time
}

type OrderQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*OrderView, error)
	GetByCode(ctx context.Context, eventID uuid.UUID, code string) (*OrderView, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, status *string) ([]*OrderListView, error)
	AuditTrail(ctx context.Context, orderID uuid.UUID) ([]*AuditEntryView, error)
	EmailHistory(ctx context.Context, orderID uuid.UUID) ([]*EmailLogView, error)
}
