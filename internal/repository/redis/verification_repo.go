package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/hosting-api/internal/domain/repository"
	apperrors "github.com/yourusername/hosting-api/internal/pkg/errors"
)

const verificationKeyPrefix = "email:verify:"

// EmailVerificationRepo хранит коды подтверждения email в Redis.
// Коды эфемерные, TTL совпадает со сроком действия кода.
type EmailVerificationRepo struct {
	client redis.UniversalClient
}

// NewEmailVerificationRepo создает новый репозиторий кодов подтверждения
func NewEmailVerificationRepo(client redis.UniversalClient) (*EmailVerificationRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for EmailVerificationRepo")
	}
	return &EmailVerificationRepo{client: client}, nil
}

func verificationKey(userID uint) string {
	return fmt.Sprintf("%s%d", verificationKeyPrefix, userID)
}

// Save сохраняет код пользователя с TTL, перезаписывая предыдущий
func (r *EmailVerificationRepo) Save(ctx context.Context, userID uint, code repository.VerificationCode, ttl time.Duration) error {
	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to marshal verification code: %w", err)
	}
	if err := r.client.Set(ctx, verificationKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save verification code: %w", err)
	}
	return nil
}

// Get возвращает активный код пользователя
func (r *EmailVerificationRepo) Get(ctx context.Context, userID uint) (*repository.VerificationCode, error) {
	data, err := r.client.Get(ctx, verificationKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get verification code: %w", err)
	}
	var code repository.VerificationCode
	if err := json.Unmarshal(data, &code); err != nil {
		return nil, fmt.Errorf("failed to unmarshal verification code: %w", err)
	}
	return &code, nil
}

// DecrementAttempts уменьшает счётчик оставшихся попыток, сохраняя TTL ключа
func (r *EmailVerificationRepo) DecrementAttempts(ctx context.Context, userID uint) error {
	key := verificationKey(userID)

	code, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	code.AttemptsLeft--

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		// Ключ уже истёк между Get и TTL
		return apperrors.ErrNotFound
	}

	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to marshal verification code: %w", err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to decrement verification attempts: %w", err)
	}
	return nil
}

// Delete удаляет код пользователя
func (r *EmailVerificationRepo) Delete(ctx context.Context, userID uint) error {
	if err := r.client.Del(ctx, verificationKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete verification code: %w", err)
	}
	return nil
}
