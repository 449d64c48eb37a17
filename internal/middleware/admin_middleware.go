package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/models"
	"github.com/yoday/yoday/internal/service"
)

const (
	AdminSessionCookie = "admin_session"

	adminSessionKey contextKey = "admin_session"
)

type AdminSessionLoader interface {
	Session(ctx context.Context, id string) (*models.AdminSession, error)
}

type AdminMiddleware struct {
	sessions AdminSessionLoader
	logger   *logrus.Logger
}

func NewAdminMiddleware(sessions AdminSessionLoader, logger *logrus.Logger) *AdminMiddleware {
	return &AdminMiddleware{sessions: sessions, logger: logger}
}

// RequireAdmin resolves the admin_session cookie to a live server-side
// session.
func (m *AdminMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(AdminSessionCookie)
		if err != nil || cookie.Value == "" {
			writeMessage(w, http.StatusUnauthorized, "Admin login required")
			return
		}

		session, err := m.sessions.Session(r.Context(), cookie.Value)
		if errors.Is(err, service.ErrNotFound) {
			writeMessage(w, http.StatusUnauthorized, "Admin login required")
			return
		}
		if err != nil {
			m.logger.WithError(err).Error("Failed to resolve admin session")
			writeMessage(w, http.StatusInternalServerError, "Something went wrong on our side. Please try again later.")
			return
		}

		ctx := context.WithValue(r.Context(), adminSessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func AdminSessionFromContext(ctx context.Context) (*models.AdminSession, bool) {
	session, ok := ctx.Value(adminSessionKey).(*models.AdminSession)
	return session, ok
}
