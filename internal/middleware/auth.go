package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/nishant-jng/shopify-backend-sub000/pkg/jwtutil"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/logger"
	"github.com/nishant-jng/shopify-backend-sub000/prometheus"
)

// Context keys set by the auth middlewares
const (
	ContextAdminClaims = "admin_claims"
	ContextMember      = "member"
)

// AdminAuth verifies a back-office JWT and requires one of roles
func AdminAuth(jwt *jwtutil.JWTUtil, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			tokenString, ok := bearerToken(c)
			if !ok {
				log.Warn("Missing authorization token")
				prometheus.AuthCounter.WithLabelValues("admin_jwt", "missing").Inc()
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			claims, err := jwt.ValidateToken(tokenString)
			if err != nil {
				log.Warn("Invalid token", zap.Error(err))
				prometheus.AuthCounter.WithLabelValues("admin_jwt", "invalid").Inc()
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			if len(roles) > 0 && !hasRole(claims.Role, roles) {
				log.Warn("Role not allowed", zap.String("email", claims.Email), zap.String("role", claims.Role))
				prometheus.AuthCounter.WithLabelValues("admin_jwt", "forbidden").Inc()
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
			}

			prometheus.AuthCounter.WithLabelValues("admin_jwt", "success").Inc()
			c.Set(ContextAdminClaims, claims)
			logger.Set(c, log.With(zap.String("email", claims.Email), zap.String("role", claims.Role)))
			return next(c)
		}
	}
}

// AdminClaims returns the claims stored by AdminAuth
func AdminClaims(c echo.Context) (*jwtutil.AdminClaims, bool) {
	claims, ok := c.Get(ContextAdminClaims).(*jwtutil.AdminClaims)
	return claims, ok
}

func bearerToken(c echo.Context) (string, bool) {
	header := strings.TrimSpace(c.Request().Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		header = strings.TrimSpace(header[7:])
	}
	return header, header != ""
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if strings.EqualFold(role, r) {
			return true
		}
	}
	return false
}
