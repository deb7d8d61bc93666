package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/nishant-jng/shopify-backend-sub000/prometheus"
)

// Handlers groups the route handlers. Search and Profiles are optional.
type Handlers struct {
	PO       *POHandler
	Alerts   *AlertHandler
	Invoices *InvoiceHandler
	Search   *SearchHandler
	Profiles *ProfileHandler
}

// Auth holds the route guards. A nil Firebase guard disables the my-* routes.
type Auth struct {
	Admin    echo.MiddlewareFunc
	Firebase echo.MiddlewareFunc
}

// RegisterRoutes mounts every endpoint on e
func RegisterRoutes(e *echo.Echo, h Handlers, auth Auth) {
	e.GET("/", HealthCheck)
	e.GET("/health", HealthCheck)
	e.GET("/metrics", prometheus.HandlerFunc())

	e.POST("/upload-po", h.PO.UploadPO)
	e.POST("/upload-buyer-po", h.PO.UploadBuyerPO)
	e.PUT("/update-buyer-po/:poId", h.PO.UpdateBuyerPO)
	e.POST("/upload-buyer-pi/:poId", h.PO.UploadPI)
	e.POST("/upload-pi/:poId", h.PO.UploadPI)
	e.POST("/delete-po/:poId", h.PO.DeletePO)
	e.GET("/my-buyer-pos", h.PO.MyBuyerPOs)
	e.GET("/merchant-pos", h.PO.MerchantPOs)
	e.GET("/pos/:poId", h.PO.GetPO)

	e.GET("/alerts", h.Alerts.List)
	e.POST("/alerts/:id/read", h.Alerts.MarkRead)
	e.POST("/alerts-all-read", h.Alerts.MarkAllRead)
	if auth.Firebase != nil {
		e.GET("/my-alerts", h.Alerts.MyAlerts, auth.Firebase)
		e.POST("/alerts/mark-all-read", h.Alerts.MyMarkAllRead, auth.Firebase)
	}

	e.GET("/next-invoice-number", h.Invoices.NextInvoiceNumber)
	e.POST("/generate-invoice", h.Invoices.Generate)
	e.GET("/invoices", h.Invoices.List)
	if auth.Admin != nil {
		e.PUT("/invoice-series/:buyerId", h.Invoices.ConfigureSeries, auth.Admin)
	}

	if h.Search != nil {
		e.POST("/ai-search", h.Search.Search)
	}
	if p := h.Profiles; p != nil {
		e.GET("/customer-profile/:customerId", p.GetProfile)
		e.PUT("/customer-profile/:customerId", p.UpdateProfile)

		e.GET("/wishlist/:customerId", listItems("wishlist", p.svc.ListWishlist))
		e.POST("/wishlist/:customerId", addItem("wishlist", p.svc.AddToWishlist))
		e.DELETE("/wishlist/:customerId/:productId", removeItem("wishlist", p.svc.RemoveFromWishlist))

		e.GET("/favorites/:customerId", listItems("favorites", p.svc.ListFavorites))
		e.POST("/favorites/:customerId", addItem("favorites", p.svc.AddToFavorites))
		e.DELETE("/favorites/:customerId/:productId", removeItem("favorites", p.svc.RemoveFromFavorites))
	}
}
