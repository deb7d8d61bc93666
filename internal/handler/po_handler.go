package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/nishant-jng/shopify-backend-sub000/internal/workflow"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/apperror"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/logger"
)

// POHandler serves purchase order and PI uploads
type POHandler struct {
	svc            *workflow.PurchaseOrderService
	maxUploadBytes int64
}

func NewPOHandler(svc *workflow.PurchaseOrderService, maxUploadBytes int64) *POHandler {
	return &POHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// UploadPO handles the legacy free-text buyer upload
func (h *POHandler) UploadPO(c echo.Context) error {
	var req workflow.LegacyPORequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	file, err := readFile(c, "poFile", h.maxUploadBytes)
	if err != nil {
		return respondError(c, err)
	}
	req.File = file

	res, err := h.svc.CreateLegacy(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"poId":       res.PO.ID,
		"alertsSent": res.AlertsSent,
	})
}

// UploadBuyerPO handles uploads between linked organizations
func (h *POHandler) UploadBuyerPO(c echo.Context) error {
	var req workflow.RelationalPORequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	file, err := readFile(c, "poFile", h.maxUploadBytes)
	if err != nil {
		return respondError(c, err)
	}
	req.File = file

	res, err := h.svc.CreateRelational(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	logger.FromContext(c).Info("Buyer PO uploaded", zap.String("po_id", res.PO.ID), zap.Int("alerts", res.AlertsSent))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"poId":    res.PO.ID,
	})
}

func (h *POHandler) UpdateBuyerPO(c echo.Context) error {
	var req workflow.UpdatePORequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	file, err := readFile(c, "poFile", h.maxUploadBytes)
	if err != nil {
		return respondError(c, err)
	}
	req.File = file

	po, err := h.svc.Update(c.Request().Context(), c.Param("poId"), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"po":      h.svc.View(po),
	})
}

// UploadPI attaches a proforma invoice; serves both PI routes
func (h *POHandler) UploadPI(c echo.Context) error {
	var req workflow.PIRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	file, err := readFile(c, "piFile", h.maxUploadBytes)
	if err != nil {
		return respondError(c, err)
	}
	req.File = file

	po, err := h.svc.AttachPI(c.Request().Context(), c.Param("poId"), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"poId":     po.ID,
		"poNumber": po.PONumber,
	})
}

func (h *POHandler) DeletePO(c echo.Context) error {
	var req workflow.DeletePORequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), c.Param("poId"), req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *POHandler) MyBuyerPOs(c echo.Context) error {
	pos, err := h.svc.ListForCustomer(c.Request().Context(), c.QueryParam("shopifyCustomerId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "pos": pos, "count": len(pos)})
}

func (h *POHandler) MerchantPOs(c echo.Context) error {
	pos, err := h.svc.ListForMerchant(c.Request().Context(), c.QueryParam("memberId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "pos": pos, "count": len(pos)})
}

func (h *POHandler) GetPO(c echo.Context) error {
	poID := c.Param("poId")
	if poID == "" {
		return respondError(c, apperror.MissingFields("poId"))
	}
	po, err := h.svc.Get(c.Request().Context(), poID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "po": po})
}
