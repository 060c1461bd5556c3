package api

import (
	"context"
	"net/http"

	"boxoffice/internal/domain/invoice"
	"boxoffice/internal/usecase/commands"
	"boxoffice/internal/usecase/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InvoiceHandler struct {
	invoices *commands.InvoiceCommands
	reads    shared.CommandReads
}

func NewInvoiceHandler(invoices *commands.InvoiceCommands, reads shared.CommandReads) *InvoiceHandler {
	return &InvoiceHandler{
		invoices: invoices,
		reads:    reads,
	}
}

type invoiceResponse struct {
	ID         string        `json:"id"`
	Number     string        `json:"number"`
	TotalCents int64         `json:"totalCents"`
	Locale     string        `json:"locale"`
	IssuedAt   string        `json:"issuedAt"`
	Canceled   bool          `json:"canceled"`
	Lines      []invoiceLine `json:"lines"`
}

type invoiceLine struct {
	Description string `json:"description"`
	PriceCents  int64  `json:"priceCents"`
}

func toInvoiceResponse(inv *invoice.Invoice) invoiceResponse {
	lines := make([]invoiceLine, len(inv.Lines()))
	for i, l := range inv.Lines() {
		lines[i] = invoiceLine{Description: l.Description, PriceCents: l.PriceCents}
	}
	return invoiceResponse{
		ID:         inv.ID().String(),
		Number:     inv.Number(),
		TotalCents: inv.TotalCents(),
		Locale:     inv.Locale(),
		IssuedAt:   inv.IssuedAt().Format("2006-01-02T15:04:05Z07:00"),
		Canceled:   inv.Canceled(),
		Lines:      lines,
	}
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	invoices, err := h.reads.InvoicesByOrder(c.Request.Context(), orderID)
	if err != nil {
		respondCommandError(c, err)
		return
	}

	response := make([]invoiceResponse, len(invoices))
	for i, inv := range invoices {
		response[i] = toInvoiceResponse(inv)
	}
	c.JSON(http.StatusOK, response)
}

func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	inv, err := h.invoices.Create(c.Request.Context(), orderID, actor)
	if err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toInvoiceResponse(inv))
}

func (h *InvoiceHandler) RegenerateInvoice(c *gin.Context) {
	h.replace(c, h.invoices.Regenerate)
}

func (h *InvoiceHandler) ReissueInvoice(c *gin.Context) {
	h.replace(c, h.invoices.Reissue)
}

type replaceFn func(ctx context.Context, orderID, invoiceID uuid.UUID, actor shared.ActorRef) (*invoice.Invoice, error)

func (h *InvoiceHandler) replace(c *gin.Context, fn replaceFn) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	invoiceID, ok := parseIDParam(c, "invoiceId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	inv, err := fn(c.Request.Context(), orderID, invoiceID, actor)
	if err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toInvoiceResponse(inv))
}
