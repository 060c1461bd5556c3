package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrVariationNotFound = errors.New("variation does not belong to item")
	ErrVariationRequired = errors.New("item requires a variation")
	ErrItemInactive      = errors.New("item is not active for sale")
)

// Item is a sellable product of one sales event. Read-mostly from the order
// engine's perspective: quota bookkeeping is owned by the availability
// checker, not by the catalog.
type Item struct {
	ID                uuid.UUID
	EventID           uuid.UUID
	Name              string
	DefaultPriceCents int64
	Active            bool
	Variations        []Variation
}

type Variation struct {
	ID              uuid.UUID
	ItemID          uuid.UUID
	Name            string
	PriceCents      *int64
}

func (i *Item) HasVariations() bool {
	return len(i.Variations) > 0
}

func (i *Item) VariationByID(id uuid.UUID) (*Variation, bool) {
	for idx := range i.Variations {
		if i.Variations[idx].ID == id {
			return &i.Variations[idx], true
		}
	}
	return nil, false
}

// ResolveVariation checks the item/variation pairing an operator submitted.
func (i *Item) ResolveVariation(variationID *uuid.UUID) (*Variation, error) {
	if variationID == nil {
		if i.HasVariations() {
			return nil, ErrVariationRequired
		}
		return nil, nil
	}
	v, ok := i.VariationByID(*variationID)
	if !ok {
		return nil, ErrVariationNotFound
	}
	return v, nil
}

// PriceCentsFor returns the effective list price for the given variation,
// falling back to the item default.
func (i *Item) PriceCentsFor(v *Variation) int64 {
	if v != nil && v.PriceCents != nil {
		return *v.PriceCents
	}
	return i.DefaultPriceCents
}

// DateInstance is one concrete occurrence of a recurring sales event.
type DateInstance struct {
	ID       uuid.UUID
	EventID  uuid.UUID
	Name     string
	StartsAt time.Time
}

// Quota is an inventory pool limiting how many positions may reference the
// items, variations, and date instance it is linked to. Size nil means
// unlimited.
type Quota struct {
	ID             uuid.UUID
	EventID        uuid.UUID
	Name           string
	Size           *int64
	ItemIDs        []uuid.UUID
	VariationIDs   []uuid.UUID
	DateInstanceID *uuid.UUID
}

func (q *Quota) Unlimited() bool {
	return q.Size == nil
}

// AppliesTo reports whether this quota governs the given selection. A quota
// scoped to a date instance only binds positions for that instance.
func (q *Quota) AppliesTo(itemID uuid.UUID, variationID, dateInstanceID *uuid.UUID) bool {
	if q.DateInstanceID != nil {
		if dateInstanceID == nil || *dateInstanceID != *q.DateInstanceID {
			return false
		}
	}
	if variationID != nil {
		for _, id := range q.VariationIDs {
			if id == *variationID {
				return true
			}
		}
	}
	for _, id := range q.ItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}
