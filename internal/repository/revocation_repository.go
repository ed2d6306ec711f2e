package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const revocationKeyPrefix = "blacklist:"

// RevocationRepository tracks revoked token IDs. Each entry lives only
// as long as the token it blocks would have, so the blacklist cannot
// grow without bound.
type RevocationRepository struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRevocationRepository(rdb *redis.Client, logger *zap.Logger) *RevocationRepository {
	return &RevocationRepository{
		rdb:    rdb,
		logger: logger,
	}
}

// Revoke blacklists a token ID for the given remaining lifetime. A
// non-positive lifetime means the token is already expired and there
// is nothing to block.
func (r *RevocationRepository) Revoke(ctx context.Context, tokenID string, remaining time.Duration) error {
	if remaining <= 0 {
		r.logger.Debug("skipping revocation of expired token", zap.String("token_id", tokenID))
		return nil
	}
	if err := r.rdb.Set(ctx, revocationKeyPrefix+tokenID, "1", remaining).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token ID is blacklisted. Store errors
// are returned to the caller, which decides the failure policy.
func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revocationKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return n > 0, nil
}
