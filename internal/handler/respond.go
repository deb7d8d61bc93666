// Package handler exposes the portal over HTTP.
package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/nishant-jng/shopify-backend-sub000/internal/workflow"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/apperror"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/logger"
)

// respondError writes {error, details?} with the status for err's kind
func respondError(c echo.Context, err error) error {
	log := logger.FromContext(c)
	status := apperror.HTTPStatus(err)

	body := echo.Map{"error": err.Error()}
	if appErr, ok := apperror.As(err); ok {
		body["error"] = appErr.Message
		if appErr.Details != nil {
			body["details"] = appErr.Details
		}
	}
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.Int("status", status), zap.Error(err))
		if _, ok := apperror.As(err); !ok {
			body["error"] = "internal server error"
		}
	} else {
		log.Warn("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, err error) error {
	logger.FromContext(c).Warn("Invalid request data", zap.Error(err))
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
}

// readFile loads a multipart file into memory. A missing file returns nil.
func readFile(c echo.Context, field string, maxBytes int64) (*workflow.FileUpload, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Validation("invalid multipart form").WithDetails(map[string]any{"fields": []string{field}})
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, apperror.Validation("file too large").WithDetails(map[string]any{"field": field, "maxBytes": maxBytes})
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperror.Validation("unreadable file").WithDetails(map[string]any{"fields": []string{field}})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperror.Validation("unreadable file").WithDetails(map[string]any{"fields": []string{field}})
	}
	return &workflow.FileUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}
