package request

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type TransitionRequest struct {
	Status    string `json:"status" binding:"required,oneof=paid canceled expired pending refunded"`
	SendEmail bool   `json:"send_email"`
}

type ExtendRequest struct {
	Expires time.Time `json:"expires" binding:"required"`
}

// ChangeRequest is a batch of position operations applied atomically.
type ChangeRequest struct {
	Operations []ChangeOperation `json:"operations" binding:"required,min=1,dive"`
}

type ChangeOperation struct {
	Op         string     `json:"op" binding:"required,oneof=add item price dateinstance cancel"`
	PositionID *uuid.UUID `json:"position_id,omitempty"`
	// AddonToIndex points at an earlier "add" operation in the same batch;
	// AddonToID points at a persisted position. At most one may be set.
	AddonToIndex   *int       `json:"addon_to_index,omitempty"`
	AddonToID      *uuid.UUID `json:"addon_to_id,omitempty"`
	ItemID         *uuid.UUID `json:"item_id,omitempty"`
	VariationID    *uuid.UUID `json:"variation_id,omitempty"`
	DateInstanceID *uuid.UUID `json:"date_instance_id,omitempty"`
	PriceCents     *int64     `json:"price_cents,omitempty"`
}

type CommentRequest struct {
	Comment string `json:"comment"`
}

type ContactRequest struct {
	Email string `json:"email" binding:"required"`
}

func (r ContactRequest) TrimmedEmail() string {
	return strings.TrimSpace(r.Email)
}

type LocaleRequest struct {
	Locale string `json:"locale" binding:"required"`
}
