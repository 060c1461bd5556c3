//go:build unit

package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"boxoffice/internal/handler/api"
	"boxoffice/internal/infra"
	"boxoffice/internal/usecase/queries"
	"boxoffice/internal/usecase/shared"
	queriesmock "boxoffice/tests/mock/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type OrderHandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	mockCtrl    *gomock.Controller
	mockQueries *queriesmock.MockOrderQueries
	handler     *api.OrderHandler
}

func (s *OrderHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockQueries = queriesmock.NewMockOrderQueries(s.mockCtrl)
	s.handler = api.NewOrderHandler(s.mockQueries, nil, nil, nil, nil, nil)

	// Stand-in for the JWT middleware: any bearer token authenticates.
	authMiddleware := func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set("actor", shared.ActorRef{ID: uuid.New(), Label: "backoffice@example.com"})
		c.Next()
	}

	s.router.GET("/api/events/:eventId/orders", authMiddleware, s.handler.ListOrders)
	s.router.GET("/api/events/:eventId/orders/:code", authMiddleware, s.handler.GetOrderByCode)
	s.router.GET("/api/orders/:id", authMiddleware, s.handler.GetOrder)
	s.router.GET("/api/orders/:id/audit", authMiddleware, s.handler.GetAuditTrail)
	s.router.GET("/api/orders/:id/emails", authMiddleware, s.handler.GetEmailHistory)
	s.router.POST("/api/orders/:id/transition", authMiddleware, s.handler.Transition)
	s.router.POST("/api/orders/:id/extend", authMiddleware, s.handler.Extend)
	s.router.POST("/api/orders/:id/change", authMiddleware, s.handler.Change)
}

func (s *OrderHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestOrderHandlerSuite(t *testing.T) {
	suite.Run(t, new(OrderHandlerTestSuite))
}

func (s *OrderHandlerTestSuite) request(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func sampleOrderView() *queries.OrderView {
	id := uuid.New()
	return &queries.OrderView{
		ID:              id,
		EventID:         uuid.New(),
		Code:            "ABC39",
		Status:          "pending",
		TotalCents:      2530,
		PaymentFeeCents: 30,
		Expires:         time.Date(2026, 4, 16, 10, 0, 0, 0, time.UTC),
		Locale:          "en",
		Email:           "buyer@example.com",
		PaymentMethod:   "banktransfer",
		Positions: []queries.PositionView{
			{
				ID:         uuid.New(),
				Number:     1,
				ItemID:     uuid.New(),
				ItemName:   "Standard ticket",
				PriceCents: 2500,
				Secret:     "k2j4hsditem",
			},
		},
		CreatedAt: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
	}
}

func (s *OrderHandlerTestSuite) TestGetOrder() {
	view := sampleOrderView()

	s.Run("returns the order", func() {
		s.mockQueries.EXPECT().GetByID(gomock.Any(), view.ID).Return(view, nil)

		w := s.request(http.MethodGet, "/api/orders/"+view.ID.String(), "")

		s.Equal(http.StatusOK, w.Code)
		var body map[string]any
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
		s.Equal("ABC39", body["code"])
		s.Equal("pending", body["status"])
		s.Equal(float64(2530), body["totalCents"])
		s.Len(body["positions"], 1)
	})

	s.Run("unknown order is 404", func() {
		id := uuid.New()
		s.mockQueries.EXPECT().GetByID(gomock.Any(), id).
			Return(nil, infra.WrapRepoErr(infra.KindNotFound, "order not found", nil))

		w := s.request(http.MethodGet, "/api/orders/"+id.String(), "")
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("malformed id is 400", func() {
		w := s.request(http.MethodGet, "/api/orders/not-a-uuid", "")
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("missing token is 401", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/orders/"+view.ID.String(), nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *OrderHandlerTestSuite) TestGetOrderByCode() {
	view := sampleOrderView()
	s.mockQueries.EXPECT().GetByCode(gomock.Any(), view.EventID, "ABC39").Return(view, nil)

	w := s.request(http.MethodGet, "/api/events/"+view.EventID.String()+"/orders/ABC39", "")

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"code":"ABC39"`)
}

func (s *OrderHandlerTestSuite) TestListOrders() {
	eventID := uuid.New()
	views := []*queries.OrderListView{
		{ID: uuid.New(), Code: "ABC39", Status: "pending", Email: "a@example.com", TotalCents: 1000},
		{ID: uuid.New(), Code: "XMQ72", Status: "paid", Email: "b@example.com", TotalCents: 2500},
	}

	s.Run("lists every order of the event", func() {
		s.mockQueries.EXPECT().ListByEvent(gomock.Any(), eventID, gomock.Nil()).Return(views, nil)

		w := s.request(http.MethodGet, "/api/events/"+eventID.String()+"/orders", "")

		s.Equal(http.StatusOK, w.Code)
		var body []map[string]any
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
		s.Len(body, 2)
		s.Equal("XMQ72", body[1]["code"])
	})

	s.Run("filters by status", func() {
		status := "paid"
		s.mockQueries.EXPECT().
			ListByEvent(gomock.Any(), eventID, gomock.Cond(func(got *string) bool {
				return got != nil && *got == status
			})).
			Return(views[1:], nil)

		w := s.request(http.MethodGet, "/api/events/"+eventID.String()+"/orders?status=paid", "")
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("rejects an unknown status value", func() {
		w := s.request(http.MethodGet, "/api/events/"+eventID.String()+"/orders?status=haunted", "")
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *OrderHandlerTestSuite) TestGetAuditTrail() {
	orderID := uuid.New()
	entries := []*queries.AuditEntryView{
		{
			ID:         uuid.New(),
			Action:     "order.paid",
			ActorLabel: "backoffice@example.com",
			At:         time.Date(2026, 4, 3, 9, 0, 0, 0, time.UTC),
		},
	}
	s.mockQueries.EXPECT().AuditTrail(gomock.Any(), orderID).Return(entries, nil)

	w := s.request(http.MethodGet, "/api/orders/"+orderID.String()+"/audit", "")

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"action":"order.paid"`)
}

func (s *OrderHandlerTestSuite) TestGetEmailHistory() {
	orderID := uuid.New()
	entries := []*queries.EmailLogView{
		{
			ID:          uuid.New(),
			Recipient:   "buyer@example.com",
			TemplateKey: "order.paid",
			Fields:      map[string]any{"code": "ABC39"},
			Locale:      "en",
			Status:      "sent",
			CreatedAt:   time.Date(2026, 4, 3, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:          uuid.New(),
			Recipient:   "buyer@example.com",
			TemplateKey: "order.placed",
			Locale:      "en",
			Status:      "sent",
			CreatedAt:   time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC),
		},
	}
	s.mockQueries.EXPECT().EmailHistory(gomock.Any(), orderID).Return(entries, nil)

	w := s.request(http.MethodGet, "/api/orders/"+orderID.String()+"/emails", "")

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"templateKey":"order.paid"`)
	s.Contains(w.Body.String(), `"templateKey":"order.placed"`)

	s.Run("rejects a malformed order id", func() {
		w := s.request(http.MethodGet, "/api/orders/zzz/emails", "")
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *OrderHandlerTestSuite) TestTransitionValidation() {
	id := uuid.New().String()

	s.Run("rejects a malformed body", func() {
		w := s.request(http.MethodPost, "/api/orders/"+id+"/transition", `{"status":`)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("rejects an unknown target status", func() {
		w := s.request(http.MethodPost, "/api/orders/"+id+"/transition", `{"status":"teleported"}`)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("rejects a malformed order id", func() {
		w := s.request(http.MethodPost, "/api/orders/zzz/transition", `{"status":"paid"}`)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *OrderHandlerTestSuite) TestExtendValidation() {
	w := s.request(http.MethodPost, "/api/orders/"+uuid.New().String()+"/extend", `{}`)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *OrderHandlerTestSuite) TestChangeValidation() {
	id := uuid.New().String()

	s.Run("rejects an empty operation list", func() {
		w := s.request(http.MethodPost, "/api/orders/"+id+"/change", `{"operations":[]}`)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("rejects an unknown op kind", func() {
		w := s.request(http.MethodPost, "/api/orders/"+id+"/change", `{"operations":[{"op":"teleport"}]}`)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}
