package middleware

import (
	"context"
	"errors"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/internal/repository"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/logger"
	"github.com/nishant-jng/shopify-backend-sub000/prometheus"
)

// TokenVerifier is satisfied by *auth.Client
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type memberLookup interface {
	FindMemberByFirebaseUID(ctx context.Context, uid string) (*model.Member, error)
}

// FirebaseAuth verifies a Firebase ID token and loads the member it belongs to
func FirebaseAuth(verifier TokenVerifier, members memberLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)
			ctx := c.Request().Context()

			idToken, ok := bearerToken(c)
			if !ok {
				prometheus.AuthCounter.WithLabelValues("firebase", "missing").Inc()
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			token, err := verifier.VerifyIDToken(ctx, idToken)
			if err != nil {
				log.Warn("Invalid Firebase ID token", zap.Error(err))
				prometheus.AuthCounter.WithLabelValues("firebase", "invalid").Inc()
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			member, err := members.FindMemberByFirebaseUID(ctx, token.UID)
			if errors.Is(err, repository.ErrNotFound) {
				log.Warn("No member for Firebase user", zap.String("uid", token.UID))
				prometheus.AuthCounter.WithLabelValues("firebase", "unknown_member").Inc()
				return c.JSON(http.StatusForbidden, echo.Map{"error": "member not found"})
			}
			if err != nil {
				log.Error("Failed to resolve member", zap.String("uid", token.UID), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve member"})
			}

			prometheus.AuthCounter.WithLabelValues("firebase", "success").Inc()
			c.Set(ContextMember, member)
			logger.Set(c, log.With(zap.String("member_id", member.ID), zap.String("uid", token.UID)))
			return next(c)
		}
	}
}

// Member returns the member stored by FirebaseAuth
func Member(c echo.Context) (*model.Member, bool) {
	m, ok := c.Get(ContextMember).(*model.Member)
	return m, ok
}
