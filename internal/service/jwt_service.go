package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/config"
	"github.com/yoday/yoday/internal/repository"
)

// JWTService mints and validates the stateless session tokens handed to app
// users. Tokens are never stored; rotating the secret invalidates all of
// them.
type JWTService struct {
	secretKey []byte
	expiry    time.Duration
	users     repository.UserStore
	logger    *logrus.Logger
	now       func() time.Time
}

const minSecretKeyBytes = 32

func NewJWTService(cfg config.JWTConfig, users repository.UserStore, logger *logrus.Logger) (*JWTService, error) {
	secretKey := []byte(cfg.SecretKey)
	if len(secretKey) < minSecretKeyBytes {
		return nil, fmt.Errorf("secret key must be at least %d bytes", minSecretKeyBytes)
	}

	return &JWTService{
		secretKey: secretKey,
		expiry:    cfg.Expiry,
		users:     users,
		logger:    logger,
		now:       time.Now,
	}, nil
}

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenValidation is the classified outcome of checking a token. Expired is
// only set for tokens whose signature checked out.
type TokenValidation struct {
	Valid   bool
	Expired bool
	UserID  string
}

func (s *JWTService) Mint(userID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign session token")
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *JWTService) Validate(tokenString string) TokenValidation {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenValidation{Expired: true, UserID: claims.UserID}
		}
		s.logger.WithError(err).Debug("Token validation failed")
		return TokenValidation{}
	}
	if !token.Valid || claims.UserID == "" {
		return TokenValidation{}
	}
	return TokenValidation{Valid: true, UserID: claims.UserID}
}

// Refresh mints a replacement for a token that is still valid. Expired
// tokens are rejected outright; the principal must still be active.
func (s *JWTService) Refresh(ctx context.Context, tokenString string) (string, string, error) {
	v := s.Validate(tokenString)
	if v.Expired {
		return "", "", ErrTokenExpired
	}
	if !v.Valid {
		return "", "", ErrTokenInvalid
	}

	user, err := s.users.FindByID(ctx, v.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !user.IsActive() {
		return "", "", ErrNotFound
	}

	token, _, err := s.Mint(user.ID)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return token, user.ID, nil
}

// GenerateSecretKey returns a random HS256 key encoded for JWT_SECRET. It
// backs `server -gen-secret`.
func GenerateSecretKey() (string, error) {
	key := make([]byte, minSecretKeyBytes)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to read random key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(key), nil
}
