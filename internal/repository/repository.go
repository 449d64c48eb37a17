package repository

import (
	"context"
	"errors"

	"github.com/yoday/yoday/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	// ErrNotPending is returned by MarkVerified when the guarded update
	// matched no PENDING row.
	ErrNotPending = errors.New("otp challenge is not pending")
)

// UserStore is the identity store for app users. Lookups only ever return
// principals that have not been soft deleted.
type UserStore interface {
	FindByMobile(ctx context.Context, mobileNumber string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByFacebookID(ctx context.Context, facebookID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFacebookLogin(ctx context.Context, facebookID, token string, device models.DeviceInfo) (*models.User, error)
	SoftDelete(ctx context.Context, id string) error
}

type AdminStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
}

type ProfileStore interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
}

// OTPLedger is the append-only log of issued challenges.
type OTPLedger interface {
	Insert(ctx context.Context, challenge *models.OTPChallenge) error
	// FindPending only matches PENDING rows issued for purpose.
	FindPending(ctx context.Context, purpose, transactionID, mobileNumber string) (*models.OTPChallenge, error)
	// MarkVerified moves the challenge to VERIFIED with a single write that
	// only applies while it is still PENDING and issued for purpose.
	MarkVerified(ctx context.Context, purpose, transactionID, mobileNumber string) error
}

type AdminSessionStore interface {
	Store(ctx context.Context, session *models.AdminSession) error
	Get(ctx context.Context, id string) (*models.AdminSession, error)
	Delete(ctx context.Context, id string) error
}

// Stores bundles one backend's implementations.
type Stores struct {
	Users    UserStore
	Admins   AdminStore
	Profiles ProfileStore
	OTP      OTPLedger
}
