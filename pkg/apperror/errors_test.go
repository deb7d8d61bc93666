package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad"), http.StatusBadRequest},
		{"conflict", Conflict("dup"), http.StatusBadRequest},
		{"configuration", Configuration("series"), http.StatusBadRequest},
		{"not found", NotFound("po"), http.StatusNotFound},
		{"dependency", Dependency("db", errors.New("boom")), http.StatusInternalServerError},
		{"upstream passthrough", Upstream(http.StatusTooManyRequests, "shopify", nil), http.StatusTooManyRequests},
		{"wrapped", fmt.Errorf("ctx: %w", NotFound("po")), http.StatusNotFound},
		{"plain error", errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDependencyUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Dependency("failed to upload file", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if !IsKind(err, KindDependency) {
		t.Error("IsKind(err, KindDependency) = false, want true")
	}
	if err.Error() != "failed to upload file: connection reset" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestMissingFields(t *testing.T) {
	err := MissingFields("buyerName", "quantity")
	details, ok := err.Details.(map[string]any)
	if !ok {
		t.Fatalf("Details type = %T, want map", err.Details)
	}
	fields, _ := details["fields"].([]string)
	if len(fields) != 2 || fields[0] != "buyerName" || fields[1] != "quantity" {
		t.Errorf("fields = %v", fields)
	}
}
