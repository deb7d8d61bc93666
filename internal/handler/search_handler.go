package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nishant-jng/shopify-backend-sub000/internal/search"
)

type SearchHandler struct {
	svc *search.Service
}

func NewSearchHandler(svc *search.Service) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (h *SearchHandler) Search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	res, err := h.svc.Search(c.Request().Context(), req.Query, req.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"query":    res.Query,
		"products": res.Products,
		"count":    len(res.Products),
		"reason":   res.Reason,
	})
}
