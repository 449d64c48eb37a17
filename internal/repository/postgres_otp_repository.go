package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/models"
)

type PostgresOTPRepository struct {
	db     PgxQuerier
	logger *logrus.Logger
}

func NewPostgresOTPRepository(db PgxQuerier, logger *logrus.Logger) *PostgresOTPRepository {
	return &PostgresOTPRepository{db: db, logger: logger}
}

func (r *PostgresOTPRepository) Insert(ctx context.Context, challenge *models.OTPChallenge) error {
	_, err := r.db.Exec(ctx, `INSERT INTO otp_log (
		transaction_id, mobile_number, country_code, purpose, otp_hash, status, n_attempts, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		challenge.TransactionID, challenge.MobileNumber, challenge.CountryCode, challenge.Purpose,
		challenge.CodeHash, challenge.Status, challenge.Attempts, challenge.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		r.logger.WithError(err).Error("Failed to insert OTP log")
		return fmt.Errorf("failed to store OTP: %w", err)
	}
	return nil
}

func (r *PostgresOTPRepository) FindPending(ctx context.Context, purpose, transactionID, mobileNumber string) (*models.OTPChallenge, error) {
	if !isUUID(transactionID) {
		return nil, ErrNotFound
	}
	var c models.OTPChallenge
	err := r.db.QueryRow(ctx, `SELECT transaction_id::text, mobile_number, country_code, purpose, otp_hash, status, n_attempts, created_at
		FROM otp_log
		WHERE transaction_id = $1 AND mobile_number = $2 AND purpose = $3 AND status = $4`,
		transactionID, mobileNumber, purpose, models.OTPStatusPending).
		Scan(&c.TransactionID, &c.MobileNumber, &c.CountryCode, &c.Purpose, &c.CodeHash, &c.Status, &c.Attempts, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to query OTP log")
		return nil, fmt.Errorf("failed to get OTP: %w", err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (r *PostgresOTPRepository) MarkVerified(ctx context.Context, purpose, transactionID, mobileNumber string) error {
	if !isUUID(transactionID) {
		return ErrNotPending
	}
	cmd, err := r.db.Exec(ctx, `UPDATE otp_log SET status = $4
		WHERE transaction_id = $1 AND mobile_number = $2 AND purpose = $3 AND status = $5`,
		transactionID, mobileNumber, purpose, models.OTPStatusVerified, models.OTPStatusPending)
	if err != nil {
		r.logger.WithError(err).Error("Failed to mark OTP verified")
		return fmt.Errorf("failed to mark OTP verified: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}
