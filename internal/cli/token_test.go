package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nishant-jng/shopify-backend-sub000/pkg/config"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/jwtutil"
)

func TestTokenCmd(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "cli-test-key")

	var out bytes.Buffer
	cmd := TokenCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--email", "ops@example.com", "--name", "Ops", "--role", "merchant"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	token := strings.TrimSpace(out.String())
	claims, err := jwtutil.New(&config.JWTConfig{SigningKey: "cli-test-key", ExpirationHours: 1}).ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Email != "ops@example.com" || claims.Role != jwtutil.RoleMerchant {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenCmd_UnknownRole(t *testing.T) {
	cmd := TokenCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--email", "ops@example.com", "--role", "root"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "unknown role") {
		t.Fatalf("err = %v, want unknown role", err)
	}
}

func TestSeriesCmd_RequiresBuyer(t *testing.T) {
	cmd := SeriesCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"next"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an argument error")
	}
}
