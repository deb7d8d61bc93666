package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nishant-jng/shopify-backend-sub000/internal/profile"
)

type ProfileHandler struct {
	svc *profile.Service
}

func NewProfileHandler(svc *profile.Service) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

func (h *ProfileHandler) GetProfile(c echo.Context) error {
	p, err := h.svc.GetProfile(c.Request().Context(), c.Param("customerId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "profile": p})
}

func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	var req profile.Update
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	res, err := h.svc.UpdateProfile(c.Request().Context(), c.Param("customerId"), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":         true,
		"profile":         res.Profile,
		"metafieldSynced": res.MetafieldSynced,
		"syncError":       res.SyncError,
	})
}

type itemRequest struct {
	ProductID string `json:"productId" form:"productId"`
}

type listFunc func(ctx context.Context, customerID string) ([]string, error)
type itemFunc func(ctx context.Context, customerID, productID string) ([]string, error)

func respondItems(c echo.Context, key string, items []string, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, key: items, "count": len(items)})
}

func listItems(key string, fn listFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		items, err := fn(c.Request().Context(), c.Param("customerId"))
		return respondItems(c, key, items, err)
	}
}

func addItem(key string, fn itemFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req itemRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, err)
		}
		items, err := fn(c.Request().Context(), c.Param("customerId"), req.ProductID)
		return respondItems(c, key, items, err)
	}
}

func removeItem(key string, fn itemFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		items, err := fn(c.Request().Context(), c.Param("customerId"), c.Param("productId"))
		return respondItems(c, key, items, err)
	}
}
