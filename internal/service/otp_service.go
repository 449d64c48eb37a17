package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/config"
	"github.com/yoday/yoday/internal/delivery"
	"github.com/yoday/yoday/internal/models"
	"github.com/yoday/yoday/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpMin   = 100000
	otpRange = 900000
)

// OTPService issues and verifies one-time codes against the ledger. One
// instance serves one flow; the admin email flow builds its own with a
// longer expiry and an email gateway.
type OTPService struct {
	ledger  repository.OTPLedger
	gateway delivery.Gateway
	cfg     config.OTPConfig
	logger  *logrus.Logger
	now     func() time.Time
}

func NewOTPService(ledger repository.OTPLedger, gateway delivery.Gateway, cfg config.OTPConfig, logger *logrus.Logger) *OTPService {
	return &OTPService{
		ledger:  ledger,
		gateway: gateway,
		cfg:     cfg,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Challenge is what the client gets back from a successful issue. Handle
// is the normalized address the code was sent to.
type Challenge struct {
	TransactionID string
	Handle        string
}

func (s *OTPService) bypass(handle string) bool {
	return s.cfg.TestBypass && handle == s.cfg.TestNumber
}

// IssueChallenge persists a new PENDING challenge for handle and delivers
// the code. A delivery failure leaves the row in place; it will expire
// unverified.
func (s *OTPService) IssueChallenge(ctx context.Context, handle, countryCode string) (*Challenge, error) {
	code := s.cfg.TestCode
	bypass := s.bypass(handle)
	if !bypass {
		var err error
		code, err = GenerateCode()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to generate OTP: %v", ErrInternal, err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to hash OTP: %v", ErrInternal, err)
	}

	challenge := &models.OTPChallenge{
		TransactionID: uuid.New().String(),
		MobileNumber:  handle,
		CountryCode:   countryCode,
		Purpose:       s.cfg.Purpose,
		CodeHash:      string(hash),
		Status:        models.OTPStatusPending,
		Attempts:      0,
		CreatedAt:     s.now(),
	}
	if err := s.ledger.Insert(ctx, challenge); err != nil {
		s.logger.WithError(err).Error("Failed to insert OTP challenge")
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	log := s.logger.WithField("transaction_id", challenge.TransactionID)
	if bypass {
		log.Info("OTP delivery skipped for test number")
		return &Challenge{TransactionID: challenge.TransactionID, Handle: handle}, nil
	}

	if err := s.gateway.Send(ctx, delivery.Message{To: handle, Code: code}); err != nil {
		log.WithError(err).Warn("OTP delivery failed")
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	log.Info("OTP issued")
	return &Challenge{TransactionID: challenge.TransactionID, Handle: handle}, nil
}

// VerifyChallenge checks code against the pending challenge and moves it to
// VERIFIED. Only one caller can ever succeed for a given transaction, and
// challenges issued by an engine with another purpose are never found.
func (s *OTPService) VerifyChallenge(ctx context.Context, transactionID, handle, code string) error {
	challenge, err := s.ledger.FindPending(ctx, s.cfg.Purpose, transactionID, handle)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrChallengeNotFound
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to look up OTP challenge")
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if challenge.ExpiredAt(s.now(), s.cfg.Expiry) {
		return ErrChallengeExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(code)); err != nil {
		return ErrCodeMismatch
	}

	err = s.ledger.MarkVerified(ctx, s.cfg.Purpose, transactionID, handle)
	if errors.Is(err, repository.ErrNotPending) {
		return ErrChallengeNotFound
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to mark OTP verified")
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return nil
}

// GenerateCode draws a six digit code uniformly from [100000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpRange))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+otpMin), nil
}
