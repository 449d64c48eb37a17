package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/models"
	"github.com/yoday/yoday/internal/repository"
)

// AdminService runs the console login: an emailed OTP, verified by the same
// engine as the app flow, exchanged for a server-side session.
type AdminService struct {
	admins     repository.AdminStore
	sessions   repository.AdminSessionStore
	otp        *OTPService
	sessionTTL time.Duration
	logger     *logrus.Logger
	now        func() time.Time
}

func NewAdminService(
	admins repository.AdminStore,
	sessions repository.AdminSessionStore,
	otp *OTPService,
	sessionTTL time.Duration,
	logger *logrus.Logger,
) *AdminService {
	return &AdminService{
		admins:     admins,
		sessions:   sessions,
		otp:        otp,
		sessionTTL: sessionTTL,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AdminService) activeAdmin(ctx context.Context, email string) (*models.Admin, error) {
	admin, err := s.admins.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to look up admin")
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !admin.IsActive() {
		return nil, ErrNotFound
	}
	return admin, nil
}

func (s *AdminService) RequestOTP(ctx context.Context, email string) (*Challenge, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, invalid("email is required")
	}
	if _, err := s.activeAdmin(ctx, email); err != nil {
		return nil, err
	}
	return s.otp.IssueChallenge(ctx, email, "")
}

// VerifyOTP consumes the challenge and opens a session for the admin.
func (s *AdminService) VerifyOTP(ctx context.Context, transactionID, email, code string) (*models.AdminSession, error) {
	transactionID = strings.TrimSpace(transactionID)
	email = normalizeEmail(email)
	switch {
	case transactionID == "":
		return nil, invalid("transaction_id is required")
	case email == "":
		return nil, invalid("email is required")
	case code == "":
		return nil, invalid("otp is required")
	}

	// An unknown address fails before the code is looked at.
	admin, err := s.activeAdmin(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.otp.VerifyChallenge(ctx, transactionID, email, code); err != nil {
		return nil, err
	}

	now := s.now()
	session := &models.AdminSession{
		ID:        uuid.New().String(),
		Admin:     *admin,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Store(ctx, session); err != nil {
		s.logger.WithError(err).Error("Failed to store admin session")
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	s.logger.WithField("admin_id", admin.ID).Info("Admin logged in")
	return session, nil
}

func (s *AdminService) Session(ctx context.Context, id string) (*models.AdminSession, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	session, err := s.sessions.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to load admin session")
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return session, nil
}

func (s *AdminService) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		s.logger.WithError(err).Error("Failed to delete admin session")
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return nil
}
