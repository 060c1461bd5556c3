//go:build unit || e2e

package builder

import (
	"time"

	"boxoffice/internal/domain/catalog"
	"boxoffice/internal/domain/order"

	"github.com/google/uuid"
)

type OrderBuilder struct {
	ID              uuid.UUID
	EventID         uuid.UUID
	Code            string
	Status          order.Status
	PaymentFeeCents int64
	Expires         time.Time
	Locale          string
	Email           string
	PaymentMethod   string
	Comment         string
	Positions       []*order.Position
	CreatedAt       time.Time
}

func NewOrderBuilder() *OrderBuilder {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return &OrderBuilder{
		ID:              uuid.New(),
		EventID:         uuid.New(),
		Code:            "ABC39",
		Status:          order.StatusPending,
		PaymentFeeCents: 0,
		Expires:         now.Add(14 * 24 * time.Hour),
		Locale:          "en",
		Email:           "buyer@example.com",
		PaymentMethod:   "banktransfer",
		CreatedAt:       now,
	}
}

func (b *OrderBuilder) With(mutate func(*OrderBuilder)) *OrderBuilder {
	mutate(b)
	return b
}

func (b *OrderBuilder) WithStatus(s order.Status) *OrderBuilder {
	b.Status = s
	return b
}

func (b *OrderBuilder) WithExpires(t time.Time) *OrderBuilder {
	b.Expires = t
	return b
}

func (b *OrderBuilder) WithPaymentFee(cents int64) *OrderBuilder {
	b.PaymentFeeCents = cents
	return b
}

// WithPosition attaches a position priced in cents for the given item.
func (b *OrderBuilder) WithPosition(itemID uuid.UUID, priceCents int64) *OrderBuilder {
	pos := ReconstructPositionFor(b.ID, itemID, priceCents, len(b.Positions)+1)
	b.Positions = append(b.Positions, pos)
	return b
}

func (b *OrderBuilder) BuildDomain() *order.Order {
	ord := order.ReconstructOrder(
		b.ID, b.EventID, b.Code, b.Status,
		order.NewMoney(b.PaymentFeeCents), order.NewMoney(b.PaymentFeeCents),
		b.Expires, b.Locale, b.Email, b.PaymentMethod, false, b.Comment,
		b.Positions, b.CreatedAt,
	)
	ord.RecalculateTotal()
	return ord
}

func ReconstructPositionFor(orderID, itemID uuid.UUID, priceCents int64, number int) *order.Position {
	return order.ReconstructPosition(
		uuid.New(), orderID, itemID, nil, nil, nil,
		order.NewMoney(priceCents), order.NewPositionSecret(), number, false,
	)
}

type ItemBuilder struct {
	ID                uuid.UUID
	EventID           uuid.UUID
	Name              string
	DefaultPriceCents int64
	Active            bool
	Variations        []catalog.Variation
}

func NewItemBuilder(eventID uuid.UUID) *ItemBuilder {
	return &ItemBuilder{
		ID:                uuid.New(),
		EventID:           eventID,
		Name:              "Standard ticket",
		DefaultPriceCents: 2500,
		Active:            true,
	}
}

func (b *ItemBuilder) WithName(name string) *ItemBuilder {
	b.Name = name
	return b
}

func (b *ItemBuilder) Inactive() *ItemBuilder {
	b.Active = false
	return b
}

func (b *ItemBuilder) WithVariation(name string, priceCents *int64) *ItemBuilder {
	b.Variations = append(b.Variations, catalog.Variation{
		ID:         uuid.New(),
		ItemID:     b.ID,
		Name:       name,
		PriceCents: priceCents,
	})
	return b
}

func (b *ItemBuilder) Build() *catalog.Item {
	return &catalog.Item{
		ID:                b.ID,
		EventID:           b.EventID,
		Name:              b.Name,
		DefaultPriceCents: b.DefaultPriceCents,
		Active:            b.Active,
		Variations:        b.Variations,
	}
}

func QuotaFor(eventID uuid.UUID, size *int64, itemIDs ...uuid.UUID) catalog.Quota {
	return catalog.Quota{
		ID:      uuid.New(),
		EventID: eventID,
		Name:    "General admission",
		Size:    size,
		ItemIDs: itemIDs,
	}
}

func Int64Ptr(v int64) *int64 { return &v }
