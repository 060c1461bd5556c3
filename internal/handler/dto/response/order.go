package response

import (
	"time"

	"boxoffice/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type OrderResponse struct {
	ID              uuid.UUID          `json:"id"`
	EventID         uuid.UUID          `json:"eventId"`
	Code            string             `json:"code"`
	Status          string             `json:"status"`
	TotalCents      int64              `json:"totalCents"`
	PaymentFeeCents int64              `json:"paymentFeeCents"`
	Expires         time.Time          `json:"expires"`
	Locale          string             `json:"locale"`
	Email           string             `json:"email"`
	PaymentMethod   string             `json:"paymentMethod"`
	PaymentManual   bool               `json:"paymentManual"`
	Comment         string             `json:"comment,omitempty"`
	Positions       []PositionResponse `json:"positions"`
	CreatedAt       time.Time          `json:"createdAt"`
}

type PositionResponse struct {
	ID             uuid.UUID  `json:"id"`
	Number         int        `json:"number"`
	ItemID         uuid.UUID  `json:"itemId"`
	ItemName       string     `json:"itemName"`
	VariationID    *uuid.UUID `json:"variationId,omitempty"`
	VariationName  *string    `json:"variationName,omitempty"`
	DateInstanceID *uuid.UUID `json:"dateInstanceId,omitempty"`
	PriceCents     int64      `json:"priceCents"`
	AddonToID      *uuid.UUID `json:"addonToId,omitempty"`
	Secret         string     `json:"secret"`
	Canceled       bool       `json:"canceled"`
}

type OrderListResponse struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	Status     string    `json:"status"`
	Email      string    `json:"email"`
	TotalCents int64     `json:"totalCents"`
	Expires    time.Time `json:"expires"`
	CreatedAt  time.Time `json:"createdAt"`
}

type AuditEntryResponse struct {
	ID         uuid.UUID      `json:"id"`
	Action     string         `json:"action"`
	ActorLabel string         `json:"actorLabel"`
	Payload    map[string]any `json:"payload,omitempty"`
	At         time.Time      `json:"at"`
}

type EmailLogResponse struct {
	ID          uuid.UUID      `json:"id"`
	Recipient   string         `json:"recipient"`
	TemplateKey string         `json:"templateKey"`
	Fields      map[string]any `json:"fields,omitempty"`
	Locale      string         `json:"locale"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
}

type ChangeResultResponse struct {
	Order   *OrderResponse `json:"order"`
	Warning string         `json:"warning,omitempty"`
}

type TransitionResponse struct {
	Status  string `json:"status"`
	Warning string `json:"warning,omitempty"`
}

type ExpirySweepResponse struct {
	Expired int `json:"expired"`
}

func FromOrderView(rm *queries.OrderView) *OrderResponse {
	var resp OrderResponse
	// Field names line up one-to-one with the read model.
	if err := copier.Copy(&resp, rm); err != nil {
		return &OrderResponse{}
	}
	return &resp
}

func FromOrderListView(rm *queries.OrderListView) *OrderListResponse {
	var resp OrderListResponse
	if err := copier.Copy(&resp, rm); err != nil {
		return &OrderListResponse{}
	}
	return &resp
}

func FromAuditEntryView(rm *queries.AuditEntryView) *AuditEntryResponse {
	return &AuditEntryResponse{
		ID:         rm.ID,
		Action:     rm.Action,
		ActorLabel: rm.ActorLabel,
		Payload:    rm.Payload,
		At:         rm.At,
	}
}

func FromEmailLogView(rm *queries.EmailLogView) *EmailLogResponse {
	var resp EmailLogResponse
	if err := copier.Copy(&resp, rm); err != nil {
		return &EmailLogResponse{}
	}
	return &resp
}
