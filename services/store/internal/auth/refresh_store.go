package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrInvalidRefreshToken 없거나 이미 사용된 리프레시 토큰
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// RefreshStore 불투명 리프레시 토큰 저장소. Consume 은 1회용이다.
type RefreshStore interface {
	Issue(ctx context.Context, accountID int64) (string, error)
	Consume(ctx context.Context, token string) (int64, error)
}

type redisRefreshStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRefreshStore Redis 리프레시 토큰 저장소 생성
func NewRefreshStore(client redis.UniversalClient, prefix string, ttl time.Duration) RefreshStore {
	return &redisRefreshStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *redisRefreshStore) key(token string) string {
	return s.prefix + ":refresh:" + token
}

func (s *redisRefreshStore) Issue(ctx context.Context, accountID int64) (string, error) {
	token := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	if err := s.client.Set(ctx, s.key(token), accountID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return token, nil
}

func (s *redisRefreshStore) Consume(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrInvalidRefreshToken
	}
	value, err := s.client.GetDel(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrInvalidRefreshToken
	}
	if err != nil {
		return 0, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	accountID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, ErrInvalidRefreshToken
	}
	return accountID, nil
}
