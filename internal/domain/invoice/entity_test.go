//go:build unit

package invoice_test

import (
	"testing"
	"time"

	"boxoffice/internal/domain/invoice"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceNumbering(t *testing.T) {
	issuedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	first := invoice.NewInvoice(uuid.New(), "KX8P3", 1, nil, 2500, "en", issuedAt)
	second := invoice.NewInvoice(uuid.New(), "KX8P3", 2, nil, 2500, "en", issuedAt)

	assert.Equal(t, "KX8P3-1", first.Number())
	assert.Equal(t, "KX8P3-2", second.Number())
}

func TestMarkCanceled(t *testing.T) {
	inv := invoice.NewInvoice(uuid.New(), "KX8P3", 1, nil, 2500, "en", time.Now())

	require.NoError(t, inv.MarkCanceled())
	assert.True(t, inv.Canceled())

	assert.ErrorIs(t, inv.MarkCanceled(), invoice.ErrAlreadyCanceled)
}

func TestCancellationRecord(t *testing.T) {
	issuedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	inv := invoice.NewInvoice(uuid.New(), "KX8P3", 1, nil, 2500, "en", issuedAt)

	rec := invoice.NewCancellation(inv, issuedAt.Add(time.Hour))
	assert.Equal(t, inv.ID(), rec.InvoiceID)
	assert.Equal(t, "KX8P3-1-C", rec.Number)
	assert.True(t, rec.IssuedAt.Equal(issuedAt.Add(time.Hour)))
}
