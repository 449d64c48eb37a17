package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/models"
)

// RedisAdminSessionRepository keeps admin console sessions as JSON values
// that expire with the session.
type RedisAdminSessionRepository struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisAdminSessionRepository(client *redis.Client, logger *logrus.Logger) *RedisAdminSessionRepository {
	return &RedisAdminSessionRepository{
		client: client,
		logger: logger,
	}
}

func adminSessionKey(id string) string {
	return fmt.Sprintf("admin_session:%s", id)
}

func (r *RedisAdminSessionRepository) Store(ctx context.Context, session *models.AdminSession) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("admin session already expired")
	}

	dataJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal admin session: %w", err)
	}

	if err := r.client.Set(ctx, adminSessionKey(session.ID), dataJSON, ttl).Err(); err != nil {
		r.logger.WithError(err).Error("Failed to store admin session")
		return fmt.Errorf("failed to store admin session: %w", err)
	}
	return nil
}

func (r *RedisAdminSessionRepository) Get(ctx context.Context, id string) (*models.AdminSession, error) {
	dataJSON, err := r.client.Get(ctx, adminSessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin session: %w", err)
	}

	var session models.AdminSession
	if err := json.Unmarshal([]byte(dataJSON), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal admin session: %w", err)
	}
	return &session, nil
}

// Delete is idempotent; deleting a missing session is not an error.
func (r *RedisAdminSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, adminSessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete admin session: %w", err)
	}
	return nil
}
