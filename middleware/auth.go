package middleware

import (
	"strings"

	apperrors "github.com/yashrajoria/storefront-backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ContextEmailKey holds the authenticated email in the gin context.
const ContextEmailKey = "email"

// TokenVerifier resolves a bearer token to the email it was issued for.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// RequireAuth rejects requests without a valid "Authorization: Bearer <token>"
// header before the handler runs.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			apperrors.ErrorResponse(c, apperrors.ErrUnauthenticated)
			return
		}

		scheme, token, _ := strings.Cut(header, " ")
		if !strings.EqualFold(scheme, "Bearer") {
			apperrors.ErrorResponse(c, apperrors.ErrInvalidToken)
			return
		}

		email, err := verifier.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			apperrors.ErrorResponse(c, err)
			return
		}

		c.Set(ContextEmailKey, email)
		c.Next()
	}
}

// GetEmail returns the email stored by RequireAuth.
func GetEmail(c *gin.Context) (string, bool) {
	email := c.GetString(ContextEmailKey)
	return email, email != ""
}
