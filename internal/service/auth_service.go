package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/models"
	"github.com/yoday/yoday/internal/repository"
)

const (
	DefaultCountryCode = "+91"
	profileTypeUser    = "user"
)

// AuthService drives the app login flows: register or login by mobile
// number, resend, verify, Facebook login, refresh and account deletion.
type AuthService struct {
	users    repository.UserStore
	profiles repository.ProfileStore
	otp      *OTPService
	tokens   *JWTService
	facebook FacebookProvider
	logger   *logrus.Logger
}

func NewAuthService(
	users repository.UserStore,
	profiles repository.ProfileStore,
	otp *OTPService,
	tokens *JWTService,
	facebook FacebookProvider,
	logger *logrus.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		profiles: profiles,
		otp:      otp,
		tokens:   tokens,
		facebook: facebook,
		logger:   logger,
	}
}

type RegisterInput struct {
	MobileNumber string
	CountryCode  string
}

func (in *RegisterInput) normalize() error {
	in.MobileNumber = strings.TrimSpace(in.MobileNumber)
	in.CountryCode = strings.TrimSpace(in.CountryCode)
	if in.MobileNumber == "" {
		return invalid("Mobile number is required")
	}
	if in.CountryCode == "" {
		in.CountryCode = DefaultCountryCode
	}
	return nil
}

type OTPResult struct {
	NewRegistration bool
	TransactionID   string
	Message         string
}

type VerifyInput struct {
	TransactionID string
	MobileNumber  string
	OTP           string
}

type SessionResult struct {
	UserID        string
	Token         string
	UpdateProfile bool
	Profile       *models.Profile
}

type FacebookInput struct {
	AccessToken string
	Device      models.DeviceInfo
}

// Register logs in an existing principal or creates one, then issues an
// OTP. Both paths return the same shape.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*OTPResult, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	newRegistration := false
	_, err := s.users.FindByMobile(ctx, in.MobileNumber)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		newRegistration, err = s.createMobileUser(ctx, in)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, s.internal(err, "Failed to look up user by mobile")
	}

	return s.issue(ctx, in, newRegistration)
}

// createMobileUser reports false when a concurrent request registered the
// same number first.
func (s *AuthService) createMobileUser(ctx context.Context, in RegisterInput) (bool, error) {
	user := &models.User{
		ID:           uuid.New().String(),
		MobileNumber: in.MobileNumber,
		CountryCode:  in.CountryCode,
		LoginMethod:  models.LoginMethodMobile,
		Status:       models.UserStatusActive,
		UserType:     models.UserTypeUser,
	}
	err := s.users.Create(ctx, user)
	if errors.Is(err, repository.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, s.internal(err, "Failed to register user")
	}
	s.logger.WithField("user_id", user.ID).Info("User registered")
	return true, nil
}

// ResendOTP issues a brand new challenge for an existing principal.
func (s *AuthService) ResendOTP(ctx context.Context, in RegisterInput) (*OTPResult, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	_, err := s.users.FindByMobile(ctx, in.MobileNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.internal(err, "Failed to look up user by mobile")
	}

	return s.issue(ctx, in, false)
}

func (s *AuthService) issue(ctx context.Context, in RegisterInput, newRegistration bool) (*OTPResult, error) {
	challenge, err := s.otp.IssueChallenge(ctx, in.MobileNumber, in.CountryCode)
	if err != nil {
		return nil, err
	}
	return &OTPResult{
		NewRegistration: newRegistration,
		TransactionID:   challenge.TransactionID,
		Message:         fmt.Sprintf("Welcome! An OTP has been sent to %s-%s for verification.", in.CountryCode, in.MobileNumber),
	}, nil
}

func (s *AuthService) VerifyOTP(ctx context.Context, in VerifyInput) (*SessionResult, error) {
	in.TransactionID = strings.TrimSpace(in.TransactionID)
	in.MobileNumber = strings.TrimSpace(in.MobileNumber)
	switch {
	case in.TransactionID == "":
		return nil, invalid("transaction_id is required")
	case in.MobileNumber == "":
		return nil, invalid("mobile_number is required")
	case in.OTP == "":
		return nil, invalid("otp is required")
	}

	if err := s.otp.VerifyChallenge(ctx, in.TransactionID, in.MobileNumber, in.OTP); err != nil {
		return nil, err
	}

	user, err := s.users.FindByMobile(ctx, in.MobileNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.internal(err, "Failed to look up user by mobile")
	}

	return s.session(ctx, user.ID)
}

// FacebookLogin trusts the provider's view of the access token and skips
// the OTP engine entirely.
func (s *AuthService) FacebookLogin(ctx context.Context, in FacebookInput) (*SessionResult, error) {
	in.AccessToken = strings.TrimSpace(in.AccessToken)
	if in.AccessToken == "" {
		return nil, invalid("Facebook access token is required")
	}
	if err := in.Device.Validate(); err != nil {
		return nil, invalid(err.Error())
	}

	fbUser, err := s.facebook.Me(ctx, in.AccessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByFacebookID(ctx, fbUser.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user = &models.User{
			ID:            uuid.New().String(),
			EmailID:       fbUser.Email,
			FacebookID:    fbUser.ID,
			FacebookToken: in.AccessToken,
			LoginMethod:   models.LoginMethodFacebook,
			Status:        models.UserStatusActive,
			UserType:      models.UserTypeUser,
			Device:        in.Device,
		}
		err = s.users.Create(ctx, user)
		if errors.Is(err, repository.ErrAlreadyExists) {
			user, err = s.users.UpdateFacebookLogin(ctx, fbUser.ID, in.AccessToken, in.Device)
			if err != nil {
				return nil, s.internal(err, "Failed to update Facebook user")
			}
			break
		}
		if err != nil {
			return nil, s.internal(err, "Failed to register Facebook user")
		}
		s.logger.WithField("user_id", user.ID).Info("Facebook user registered")
	case err != nil:
		return nil, s.internal(err, "Failed to look up Facebook user")
	default:
		user, err = s.users.UpdateFacebookLogin(ctx, fbUser.ID, in.AccessToken, in.Device)
		if err != nil {
			return nil, s.internal(err, "Failed to update Facebook user")
		}
	}

	if err := s.ensureProfile(ctx, user.ID, fbUser); err != nil {
		return nil, err
	}
	return s.session(ctx, user.ID)
}

func (s *AuthService) ensureProfile(ctx context.Context, userID string, fbUser *FacebookUser) error {
	_, err := s.profiles.FindByID(ctx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return s.internal(err, "Failed to look up profile")
	}

	err = s.profiles.Create(ctx, &models.Profile{
		ID:     userID,
		Name:   fbUser.Name,
		Email:  fbUser.Email,
		Avatar: fbUser.PictureURL(),
		Type:   profileTypeUser,
	})
	if err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
		return s.internal(err, "Failed to create profile")
	}
	return nil
}

func (s *AuthService) session(ctx context.Context, userID string) (*SessionResult, error) {
	token, _, err := s.tokens.Mint(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	profile, err := s.profiles.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		profile = nil
	} else if err != nil {
		return nil, s.internal(err, "Failed to look up profile")
	}

	return &SessionResult{
		UserID:        userID,
		Token:         token,
		UpdateProfile: profile == nil,
		Profile:       profile,
	}, nil
}

func (s *AuthService) Refresh(ctx context.Context, token string) (string, string, error) {
	return s.tokens.Refresh(ctx, token)
}

// CurrentUser loads the principal behind an authenticated request.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.internal(err, "Failed to look up user")
	}
	return user, nil
}

// DeleteAccount soft deletes the principal. Outstanding tokens keep
// passing the auth filter until they expire but can no longer be refreshed.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	err := s.users.SoftDelete(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return s.internal(err, "Failed to delete user")
	}
	s.logger.WithField("user_id", userID).Info("User account deleted")
	return nil
}

func (s *AuthService) internal(err error, msg string) error {
	s.logger.WithError(err).Error(msg)
	return fmt.Errorf("%w: %v", ErrInternal, err)
}
