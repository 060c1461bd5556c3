package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"boxoffice/internal/handler/api"
	"boxoffice/internal/handler/middleware"
	"boxoffice/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(engine *gin.Engine, cfg config.Config, orderHandler *api.OrderHandler, invoiceHandler *api.InvoiceHandler, authMiddleware *middleware.AuthMiddleware) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, orderHandler, invoiceHandler, authMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, orderHandler *api.OrderHandler, invoiceHandler *api.InvoiceHandler, authMiddleware *middleware.AuthMiddleware) {
	engine.GET("/health", healthCheck)

	apiGroup := engine.Group("/api")
	apiGroup.Use(authMiddleware.RequireAuth())
	{
		events := apiGroup.Group("/events/:eventId/orders")
		{
			addRoutes(events, []route{
				{Method: http.MethodGet, Path: "", Handler: orderHandler.ListOrders},
				{Method: http.MethodGet, Path: "/:code", Handler: orderHandler.GetOrderByCode},
			})
		}

		orders := apiGroup.Group("/orders")
		{
			addRoutes(orders, []route{
				{Method: http.MethodPost, Path: "/expire-overdue", Handler: orderHandler.ExpireOverdue},
				{Method: http.MethodGet, Path: "/:id", Handler: orderHandler.GetOrder},
				{Method: http.MethodGet, Path: "/:id/audit", Handler: orderHandler.GetAuditTrail},
				{Method: http.MethodGet, Path: "/:id/emails", Handler: orderHandler.GetEmailHistory},
				{Method: http.MethodPost, Path: "/:id/transition", Handler: orderHandler.Transition},
				{Method: http.MethodPost, Path: "/:id/extend", Handler: orderHandler.Extend},
				{Method: http.MethodPost, Path: "/:id/change", Handler: orderHandler.Change},
				{Method: http.MethodPost, Path: "/:id/comment", Handler: orderHandler.UpdateComment},
				{Method: http.MethodPost, Path: "/:id/contact", Handler: orderHandler.ChangeContact},
				{Method: http.MethodPost, Path: "/:id/locale", Handler: orderHandler.ChangeLocale},
				{Method: http.MethodPost, Path: "/:id/resend", Handler: orderHandler.ResendLink},
				{Method: http.MethodGet, Path: "/:id/invoices", Handler: invoiceHandler.ListInvoices},
				{Method: http.MethodPost, Path: "/:id/invoices", Handler: invoiceHandler.CreateInvoice},
				{Method: http.MethodPost, Path: "/:id/invoices/:invoiceId/regenerate", Handler: invoiceHandler.RegenerateInvoice},
				{Method: http.MethodPost, Path: "/:id/invoices/:invoiceId/reissue", Handler: invoiceHandler.ReissueInvoice},
			})
		}
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
