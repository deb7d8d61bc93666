package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nishant-jng/shopify-backend-sub000/pkg/config"
)

// HealthCheck handles the health check endpoint
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": config.ServiceName,
	})
}
