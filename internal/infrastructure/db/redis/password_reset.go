package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

const resetPrefix = "password_reset:"

// PasswordResetStore keeps one reset token hash per email as a hash that
// expires with the token.
// Key format: password_reset:<email>
type PasswordResetStore struct {
	client redis.UniversalClient
}

func NewPasswordResetStore(client redis.UniversalClient) *PasswordResetStore {
	return &PasswordResetStore{client: client}
}

// Put replaces any outstanding token for the email.
func (s *PasswordResetStore) Put(ctx context.Context, rec ports.PasswordResetRecord, ttl time.Duration) error {
	key := resetPrefix + rec.Email
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, "token", rec.TokenHash, "created_at", strconv.FormatInt(rec.CreatedAt.UnixNano(), 10))
	pipe.PExpire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return nil
}

func (s *PasswordResetStore) Get(ctx context.Context, email string) (*ports.PasswordResetRecord, error) {
	vals, err := s.client.HGetAll(ctx, resetPrefix+email).Result()
	if err != nil {
		return nil, fmt.Errorf("load reset token: %w", err)
	}
	hash, ok := vals["token"]
	if !ok {
		return nil, domain.ErrInvalidResetToken
	}
	nanos, err := strconv.ParseInt(vals["created_at"], 10, 64)
	if err != nil {
		return nil, domain.ErrInvalidResetToken
	}
	return &ports.PasswordResetRecord{
		Email:     email,
		TokenHash: hash,
		CreatedAt: time.Unix(0, nanos).UTC(),
	}, nil
}

func (s *PasswordResetStore) Delete(ctx context.Context, email string) error {
	return s.client.Del(ctx, resetPrefix+email).Err()
}
