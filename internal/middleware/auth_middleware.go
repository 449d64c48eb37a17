package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/service"
)

type contextKey string

const userIDKey contextKey = "user_id"

// TokenValidator is the part of the session token issuer the filter needs.
type TokenValidator interface {
	Validate(token string) service.TokenValidation
}

type AuthMiddleware struct {
	tokens TokenValidator
	logger *logrus.Logger
}

func NewAuthMiddleware(tokens TokenValidator, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		logger: logger,
	}
}

// BearerToken returns the token from "Authorization: Bearer <token>", or ""
// when the header is absent or uses another scheme.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth rejects requests without a token with 401 and requests with a
// bad or expired token with 403. The principal's status is not checked here.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}

		v := m.tokens.Validate(token)
		if v.Expired {
			writeMessage(w, http.StatusForbidden, "Access Denied. Expired token.")
			return
		}
		if !v.Valid {
			m.logger.WithField("path", r.URL.Path).Debug("Rejected invalid token")
			writeMessage(w, http.StatusForbidden, "Access Denied. Invalid or expired token.")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, v.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// WithUserID is used by tests that exercise handlers behind RequireAuth.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}
