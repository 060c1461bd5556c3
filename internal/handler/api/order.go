package api

import (
	"errors"
	"net/http"

	"boxoffice/internal/domain/order"
	reqdto "boxoffice/internal/handler/dto/request"
	resdto "boxoffice/internal/handler/dto/response"
	"boxoffice/internal/handler/middleware"
	"boxoffice/internal/usecase/commands"
	"boxoffice/internal/usecase/queries"
	"boxoffice/internal/usecase/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderHandler struct {
	orderQueries queries.OrderQueries
	transitions  *commands.OrderTransitions
	extend       *commands.ExtendExpiry
	changes      *commands.OrderChanges
	details      *commands.OrderDetails
	reads        shared.CommandReads
}

func NewOrderHandler(
	orderQueries queries.OrderQueries,
	transitions *commands.OrderTransitions,
	extend *commands.ExtendExpiry,
	changes *commands.OrderChanges,
	details *commands.OrderDetails,
	reads shared.CommandReads,
) *OrderHandler {
	return &OrderHandler{
		orderQueries: orderQueries,
		transitions:  transitions,
		extend:       extend,
		changes:      changes,
		details:      details,
		reads:        reads,
	}
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	view, err := h.orderQueries.GetByID(c.Request.Context(), id)
	if err != nil {
		respondQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromOrderView(view))
}

func (h *OrderHandler) GetOrderByCode(c *gin.Context) {
	eventID, ok := parseIDParam(c, "eventId")
	if !ok {
		return
	}

	view, err := h.orderQueries.GetByCode(c.Request.Context(), eventID, c.Param("code"))
	if err != nil {
		respondQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromOrderView(view))
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	eventID, ok := parseIDParam(c, "eventId")
	if !ok {
		return
	}

	var status *string
	if s := c.Query("status"); s != "" {
		if !order.Status(s).IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Unknown order status",
			})
			return
		}
		status = &s
	}

	views, err := h.orderQueries.ListByEvent(c.Request.Context(), eventID, status)
	if err != nil {
		respondQueryError(c, err)
		return
	}

	response := make([]*resdto.OrderListResponse, len(views))
	for i, v := range views {
		response[i] = resdto.FromOrderListView(v)
	}
	c.JSON(http.StatusOK, response)
}

func (h *OrderHandler) GetAuditTrail(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	views, err := h.orderQueries.AuditTrail(c.Request.Context(), id)
	if err != nil {
		respondQueryError(c, err)
		return
	}

	response := make([]*resdto.AuditEntryResponse, len(views))
	for i, v := range views {
		response[i] = resdto.FromAuditEntryView(v)
	}
	c.JSON(http.StatusOK, response)
}

func (h *OrderHandler) GetEmailHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	views, err := h.orderQueries.EmailHistory(c.Request.Context(), id)
	if err != nil {
		respondQueryError(c, err)
		return
	}

	response := make([]*resdto.EmailLogResponse, len(views))
	for i, v := range views {
		response[i] = resdto.FromEmailLogView(v)
	}
	c.JSON(http.StatusOK, response)
}

func (h *OrderHandler) Transition(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req reqdto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	var (
		result *commands.TransitionResult
		err    error
	)
	ctx := c.Request.Context()
	switch req.Status {
	case "paid":
		result, err = h.transitions.MarkPaid(ctx, id, actor)
	case "canceled":
		result, err = h.transitions.MarkCanceled(ctx, id, actor, req.SendEmail)
	case "expired":
		result, err = h.transitions.MarkExpired(ctx, id, actor)
	case "pending":
		result, err = h.transitions.MarkUnpaid(ctx, id, actor)
	case "refunded":
		result, err = h.transitions.MarkRefunded(ctx, id, actor)
	}
	if err != nil {
		respondCommandError(c, err)
		return
	}

	resp := resdto.TransitionResponse{Status: string(result.Order.Status())}
	if result.NotificationWarning != nil {
		resp.Warning = "Order updated, but the customer notification could not be sent"
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) Extend(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req reqdto.ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	ord, err := h.extend.Extend(c.Request.Context(), id, req.Expires, actor)
	if err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  string(ord.Status()),
		"expires": ord.Expires(),
	})
}

func (h *OrderHandler) Change(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req reqdto.ChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	ctx := c.Request.Context()
	ord, err := h.reads.OrderByID(ctx, id)
	if err != nil {
		respondCommandError(c, err)
		return
	}

	batch, err := h.changes.NewBatch(ord, actor)
	if err != nil {
		respondCommandError(c, err)
		return
	}

	// Positions created by earlier "add" operations are addressable by
	// batch index before they have a persisted identity.
	added := make(map[int]*order.Position)
	for i, op := range req.Operations {
		if err := h.queueOperation(c, batch, ord, i, op, added); err != nil {
			return
		}
	}

	result, err := batch.Commit(ctx)
	if err != nil {
		respondCommandError(c, err)
		return
	}

	view, err := h.orderQueries.GetByID(ctx, ord.ID())
	if err != nil {
		respondQueryError(c, err)
		return
	}
	resp := resdto.ChangeResultResponse{Order: resdto.FromOrderView(view)}
	if result.NotificationWarning != nil {
		resp.Warning = "Order changed, but the customer notification could not be sent"
	}
	c.JSON(http.StatusOK, resp)
}

// queueOperation validates one batch entry and queues it; on failure it has
// already written the HTTP response and returns a non-nil error.
func (h *OrderHandler) queueOperation(
	c *gin.Context,
	batch *commands.ChangeBatch,
	ord *order.Order,
	index int,
	op reqdto.ChangeOperation,
	added map[int]*order.Position,
) error {
	ctx := c.Request.Context()

	badOp := func(msg string) error {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  msg,
			"detail": gin.H{"index": index, "op": op.Op},
		})
		return errors.New(msg)
	}

	resolveTarget := func() (*order.Position, error) {
		if op.PositionID == nil {
			return nil, badOp("position_id is required for this operation")
		}
		pos, found := ord.PositionByID(*op.PositionID)
		if !found {
			return nil, badOp("position does not belong to this order")
		}
		return pos, nil
	}

	switch op.Op {
	case "add":
		if op.ItemID == nil || op.PriceCents == nil {
			return badOp("item_id and price_cents are required to add a position")
		}
		var addonTo *order.Position
		switch {
		case op.AddonToIndex != nil && op.AddonToID != nil:
			return badOp("addon_to_index and addon_to_id are mutually exclusive")
		case op.AddonToIndex != nil:
			parent, found := added[*op.AddonToIndex]
			if !found {
				return badOp("addon_to_index does not point at an earlier add operation")
			}
			addonTo = parent
		case op.AddonToID != nil:
			parent, found := ord.PositionByID(*op.AddonToID)
			if !found {
				return badOp("addon_to_id does not belong to this order")
			}
			addonTo = parent
		}
		pos, err := batch.AddPosition(ctx, *op.ItemID, op.VariationID, order.NewMoney(*op.PriceCents), addonTo, op.DateInstanceID)
		if err != nil {
			respondCommandError(c, err)
			return err
		}
		added[index] = pos
		return nil

	case "item":
		pos, err := resolveTarget()
		if err != nil {
			return err
		}
		if op.ItemID == nil {
			return badOp("item_id is required to change an item")
		}
		if err := batch.ChangeItem(ctx, pos, *op.ItemID, op.VariationID); err != nil {
			respondCommandError(c, err)
			return err
		}
		return nil

	case "price":
		pos, err := resolveTarget()
		if err != nil {
			return err
		}
		if op.PriceCents == nil {
			return badOp("price_cents is required to change a price")
		}
		if err := batch.ChangePrice(ctx, pos, order.NewMoney(*op.PriceCents)); err != nil {
			respondCommandError(c, err)
			return err
		}
		return nil

	case "dateinstance":
		pos, err := resolveTarget()
		if err != nil {
			return err
		}
		if op.DateInstanceID == nil {
			return badOp("date_instance_id is required to move a position")
		}
		if err := batch.ChangeDateInstance(ctx, pos, *op.DateInstanceID); err != nil {
			respondCommandError(c, err)
			return err
		}
		return nil

	case "cancel":
		pos, err := resolveTarget()
		if err != nil {
			return err
		}
		if err := batch.CancelPosition(ctx, pos); err != nil {
			respondCommandError(c, err)
			return err
		}
		return nil
	}
	return badOp("unknown operation")
}

func (h *OrderHandler) UpdateComment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req reqdto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	if err := h.details.UpdateComment(c.Request.Context(), id, req.Comment, actor); err != nil {
		respondCommandError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) ChangeContact(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req reqdto.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	if err := h.details.ChangeContact(c.Request.Context(), id, req.TrimmedEmail(), actor); err != nil {
		respondCommandError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) ChangeLocale(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req reqdto.LocaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	if err := h.details.ChangeLocale(c.Request.Context(), id, req.Locale, actor); err != nil {
		respondCommandError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) ResendLink(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.details.ResendLink(c.Request.Context(), id, actor); err != nil {
		respondCommandError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExpireOverdue runs the pending-order expiry sweep on demand. The same
// sweep also runs on a schedule.
func (h *OrderHandler) ExpireOverdue(c *gin.Context) {
	expired, err := h.transitions.ExpireOverdue(c.Request.Context())
	if err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.ExpirySweepResponse{Expired: expired})
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name + " format",
		})
		return uuid.Nil, false
	}
	return id, true
}

func requireActor(c *gin.Context) (shared.ActorRef, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return shared.ActorRef{}, false
	}
	return actor, true
}
