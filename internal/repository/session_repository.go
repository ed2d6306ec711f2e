package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joegr/ReTurni/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sessionKeyPrefix = "session:"

// SessionRepository stores sessions as JSON records in Redis under a
// sliding TTL. Reading a session extends it; deleting it severs every
// token bound to it.
type SessionRepository struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewSessionRepository(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// Create stores a new session keyed by a fresh opaque ID.
func (r *SessionRepository) Create(ctx context.Context, subjectID string, attrs map[string]string) (*models.Session, error) {
	now := time.Now().UTC()
	session := &models.Session{
		ID:           uuid.NewString(),
		SubjectID:    subjectID,
		CreatedAt:    now,
		LastActivity: now,
		Attributes:   attrs,
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.rdb.Set(ctx, sessionKeyPrefix+session.ID, data, r.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

// Get returns the session and slides its expiry forward by the full
// TTL. A missing or expired session returns nil without error.
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	key := sessionKeyPrefix + id

	data, err := r.rdb.GetEx(ctx, key, r.ttl).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	// Refresh the activity stamp. SetXX with KeepTTL cannot resurrect a
	// session deleted between the read and this write.
	session.LastActivity = time.Now().UTC()
	if updated, err := json.Marshal(&session); err == nil {
		if err := r.rdb.SetXX(ctx, key, updated, redis.KeepTTL).Err(); err != nil {
			r.logger.Debug("failed to update session activity", zap.String("session_id", id), zap.Error(err))
		}
	}

	return &session, nil
}

// Delete removes the session. Deleting an absent session is not an
// error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
