package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/models"
)

// PgxQuerier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

// isUUID guards uuid columns: a malformed id can never match a row, and
// sending it would surface as a driver error instead of a miss.
func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// NewPostgresStores wires every store onto one pool.
func NewPostgresStores(db PgxQuerier, logger *logrus.Logger) Stores {
	return Stores{
		Users:    NewPostgresUserRepository(db, logger),
		Admins:   NewPostgresAdminRepository(db, logger),
		Profiles: NewPostgresProfileRepository(db, logger),
		OTP:      NewPostgresOTPRepository(db, logger),
	}
}

type PostgresUserRepository struct {
	db     PgxQuerier
	logger *logrus.Logger
}

func NewPostgresUserRepository(db PgxQuerier, logger *logrus.Logger) *PostgresUserRepository {
	return &PostgresUserRepository{db: db, logger: logger}
}

const userColumns = `id::text, COALESCE(mobile_number, ''), COALESCE(country_code, ''), COALESCE(email_id, ''),
	COALESCE(facebook_id, ''), COALESCE(facebook_token, ''), login_method, status, user_type, is_deleted,
	COALESCE(app_version, ''), COALESCE(push_token, ''), COALESCE(device_os, ''), COALESCE(os_version, ''),
	COALESCE(device_model, ''), COALESCE(device_name, ''), COALESCE(user_agent, ''), COALESCE(device_id, ''),
	created_at, modified_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	d := &u.Device
	err := row.Scan(&u.ID, &u.MobileNumber, &u.CountryCode, &u.EmailID,
		&u.FacebookID, &u.FacebookToken, &u.LoginMethod, &u.Status, &u.UserType, &u.IsDeleted,
		&d.AppVersion, &d.PushToken, &d.DeviceOS, &d.OSVersion,
		&d.DeviceModel, &d.DeviceName, &d.UserAgent, &d.DeviceID,
		&u.CreatedAt, &u.ModifiedAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.ModifiedAt = u.ModifiedAt.UTC()
	return &u, nil
}

func (r *PostgresUserRepository) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` AND is_deleted = FALSE`, arg)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to query user")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) FindByMobile(ctx context.Context, mobileNumber string) (*models.User, error) {
	return r.findOne(ctx, "mobile_number = $1", mobileNumber)
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, "id = $1", id)
}

func (r *PostgresUserRepository) FindByFacebookID(ctx context.Context, facebookID string) (*models.User, error) {
	return r.findOne(ctx, "facebook_id = $1", facebookID)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.ModifiedAt = now
	d := user.Device

	_, err := r.db.Exec(ctx, `INSERT INTO users (
		id, mobile_number, country_code, email_id, facebook_id, facebook_token, login_method, status, user_type, is_deleted,
		app_version, push_token, device_os, os_version, device_model, device_name, user_agent, device_id,
		created_at, modified_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,FALSE,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		user.ID, nullable(user.MobileNumber), nullable(user.CountryCode), nullable(user.EmailID),
		nullable(user.FacebookID), nullable(user.FacebookToken), user.LoginMethod, user.Status, user.UserType,
		nullable(d.AppVersion), nullable(d.PushToken), nullable(d.DeviceOS), nullable(d.OSVersion),
		nullable(d.DeviceModel), nullable(d.DeviceName), nullable(d.UserAgent), nullable(d.DeviceID),
		user.CreatedAt, user.ModifiedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		r.logger.WithError(err).Error("Failed to insert user")
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) UpdateFacebookLogin(ctx context.Context, facebookID, token string, device models.DeviceInfo) (*models.User, error) {
	row := r.db.QueryRow(ctx, `UPDATE users SET
		facebook_token = $1,
		device_os = $2,
		os_version = $3,
		device_model = $4,
		device_name = $5,
		user_agent = $6,
		app_version = $7,
		push_token = $8,
		device_id = $9,
		modified_at = NOW()
	WHERE facebook_id = $10 AND is_deleted = FALSE
	RETURNING `+userColumns,
		token, nullable(device.DeviceOS), nullable(device.OSVersion), nullable(device.DeviceModel),
		nullable(device.DeviceName), nullable(device.UserAgent), nullable(device.AppVersion),
		nullable(device.PushToken), nullable(device.DeviceID), facebookID)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to update facebook user")
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) SoftDelete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET
		is_deleted = TRUE,
		status = $2,
		mobile_number = CASE
			WHEN mobile_number IS NULL OR mobile_number = '' THEN 'deleted-user-' || id::text
			ELSE 'deleted-' || mobile_number
		END,
		modified_at = NOW()
	WHERE id = $1 AND is_deleted = FALSE`, id, models.UserStatusDeleted)
	if err != nil {
		r.logger.WithError(err).Error("Failed to soft delete user")
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type PostgresAdminRepository struct {
	db     PgxQuerier
	logger *logrus.Logger
}

func NewPostgresAdminRepository(db PgxQuerier, logger *logrus.Logger) *PostgresAdminRepository {
	return &PostgresAdminRepository{db: db, logger: logger}
}

func (r *PostgresAdminRepository) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	err := r.db.QueryRow(ctx, `SELECT id::text, email, COALESCE(name, ''), COALESCE(role, ''), status FROM admins WHERE email = $1`, email).
		Scan(&a.ID, &a.Email, &a.Name, &a.Role, &a.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to query admin")
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return &a, nil
}

type PostgresProfileRepository struct {
	db     PgxQuerier
	logger *logrus.Logger
}

func NewPostgresProfileRepository(db PgxQuerier, logger *logrus.Logger) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db, logger: logger}
}

func (r *PostgresProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	var p models.Profile
	err := r.db.QueryRow(ctx, `SELECT id::text, COALESCE(name, ''), COALESCE(email, ''), COALESCE(avatar, ''),
		COALESCE(mobile_number, ''), COALESCE(type, ''), created_at
		FROM user_profiles WHERE id = $1 AND is_deleted = FALSE`, id).
		Scan(&p.ID, &p.Name, &p.Email, &p.Avatar, &p.MobileNumber, &p.Type, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to query profile")
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (r *PostgresProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	profile.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `INSERT INTO user_profiles (id, name, email, avatar, mobile_number, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		profile.ID, nullable(profile.Name), nullable(profile.Email), nullable(profile.Avatar),
		profile.MobileNumber, profile.Type, profile.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		r.logger.WithError(err).Error("Failed to insert profile")
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}
