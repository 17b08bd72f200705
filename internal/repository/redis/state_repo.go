package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "github.com/yourusername/hosting-api/internal/pkg/errors"
)

const stateKeyPrefix = "oauth:state:"

// OAuthStateRepo реализует repository.OAuthStateRepository поверх Redis.
// State-токены одноразовые: чтение выполняется через GETDEL, поэтому
// повторное использование state невозможно даже при гонке колбэков.
type OAuthStateRepo struct {
	client redis.UniversalClient
}

// NewOAuthStateRepo создает новый репозиторий state-токенов
func NewOAuthStateRepo(client redis.UniversalClient) (*OAuthStateRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for OAuthStateRepo")
	}
	return &OAuthStateRepo{client: client}, nil
}

// Save сохраняет state с привязанным именем провайдера и TTL
func (r *OAuthStateRepo) Save(ctx context.Context, state, provider string, ttl time.Duration) error {
	if state == "" || provider == "" {
		return fmt.Errorf("%w: state and provider are required", apperrors.ErrValidation)
	}
	if err := r.client.Set(ctx, stateKeyPrefix+state, provider, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// Consume атомарно читает и удаляет state, возвращая имя провайдера
func (r *OAuthStateRepo) Consume(ctx context.Context, state string) (string, error) {
	provider, err := r.client.GetDel(ctx, stateKeyPrefix+state).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperrors.ErrNotFound
		}
		return "", fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return provider, nil
}
