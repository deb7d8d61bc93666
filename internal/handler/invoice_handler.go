package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/nishant-jng/shopify-backend-sub000/internal/invoice"
	"github.com/nishant-jng/shopify-backend-sub000/internal/middleware"
	"github.com/nishant-jng/shopify-backend-sub000/internal/workflow"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/logger"
)

type InvoiceHandler struct {
	svc       *workflow.InvoiceService
	allocator *invoice.Allocator
}

func NewInvoiceHandler(svc *workflow.InvoiceService, allocator *invoice.Allocator) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, allocator: allocator}
}

func (h *InvoiceHandler) NextInvoiceNumber(c echo.Context) error {
	peek, err := h.svc.PeekNext(c.Request().Context(), c.QueryParam("buyerId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, peek)
}

func (h *InvoiceHandler) Generate(c echo.Context) error {
	var req workflow.GenerateInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	out, err := h.svc.Generate(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"invoiceId":     out.InvoiceID,
		"invoiceNumber": out.InvoiceNumber,
		"downloadUrl":   out.DownloadURL,
	})
}

func (h *InvoiceHandler) List(c echo.Context) error {
	invoices, err := h.svc.List(c.Request().Context(), c.QueryParam("buyerId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "invoices": invoices, "count": len(invoices)})
}

type seriesRequest struct {
	Prefix        string `json:"prefix"`
	FinancialYear string `json:"financialYear"`
	CurrentNumber int    `json:"currentNumber"`
	Initialized   *bool  `json:"initialized"`
}

// ConfigureSeries creates or overwrites a buyer's invoice series
func (h *InvoiceHandler) ConfigureSeries(c echo.Context) error {
	var req seriesRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	initialized := true
	if req.Initialized != nil {
		initialized = *req.Initialized
	}
	series, err := h.allocator.Configure(c.Request().Context(), invoice.SeriesSettings{
		BuyerID:       c.Param("buyerId"),
		Prefix:        req.Prefix,
		FinancialYear: req.FinancialYear,
		CurrentNumber: req.CurrentNumber,
		Initialized:   initialized,
	})
	if err != nil {
		return respondError(c, err)
	}

	log := logger.FromContext(c)
	if claims, ok := middleware.AdminClaims(c); ok {
		log = log.With(zap.String("operator", claims.Email))
	}
	log.Info("Invoice series configured", zap.String("buyer_id", series.BuyerID), zap.Int("current_number", series.CurrentNumber))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "series": series})
}
