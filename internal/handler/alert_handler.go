package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nishant-jng/shopify-backend-sub000/internal/alert"
	"github.com/nishant-jng/shopify-backend-sub000/internal/middleware"
)

type AlertHandler struct {
	svc *alert.Service
}

func NewAlertHandler(svc *alert.Service) *AlertHandler {
	return &AlertHandler{svc: svc}
}

func unreadOnly(c echo.Context) bool {
	v, _ := strconv.ParseBool(c.QueryParam("unread"))
	return v
}

// List returns alerts for ?userId=
func (h *AlertHandler) List(c echo.Context) error {
	return h.list(c, c.QueryParam("userId"))
}

// MyAlerts returns alerts for the signed-in member
func (h *AlertHandler) MyAlerts(c echo.Context) error {
	member, ok := middleware.Member(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	return h.list(c, member.ID)
}

func (h *AlertHandler) list(c echo.Context, recipientID string) error {
	alerts, err := h.svc.List(c.Request().Context(), recipientID, unreadOnly(c))
	if err != nil {
		return respondError(c, err)
	}
	unread := 0
	for _, a := range alerts {
		if !a.IsRead {
			unread++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"alerts":      alerts,
		"count":       len(alerts),
		"unreadCount": unread,
	})
}

func (h *AlertHandler) MarkRead(c echo.Context) error {
	if err := h.svc.MarkRead(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

type markAllReadRequest struct {
	UserID string `json:"userId" form:"userId"`
}

// MarkAllRead marks every alert of body.userId read
func (h *AlertHandler) MarkAllRead(c echo.Context) error {
	var req markAllReadRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	return h.markAll(c, req.UserID)
}

func (h *AlertHandler) MyMarkAllRead(c echo.Context) error {
	member, ok := middleware.Member(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	return h.markAll(c, member.ID)
}

func (h *AlertHandler) markAll(c echo.Context, recipientID string) error {
	n, err := h.svc.MarkAllRead(c.Request().Context(), recipientID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "updated": n})
}
