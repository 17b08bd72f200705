package repository

import (
	"context"
	"time"
)

// VerificationCode — выданный код подтверждения email (хранится хеш, не сам код).
type VerificationCode struct {
	CodeHash     string    `json:"code_hash"`
	AttemptsLeft int       `json:"attempts_left"`
	IssuedAt     time.Time `json:"issued_at"`
}

// EmailVerificationRepository хранит эфемерные коды подтверждения email.
type EmailVerificationRepository interface {
	// Save сохраняет код для пользователя с TTL, перезаписывая предыдущий
	Save(ctx context.Context, userID uint, code VerificationCode, ttl time.Duration) error

	// Get возвращает активный код пользователя (apperrors.ErrNotFound, если нет)
	Get(ctx context.Context, userID uint) (*VerificationCode, error)

	// DecrementAttempts уменьшает счётчик оставшихся попыток
	DecrementAttempts(ctx context.Context, userID uint) error

	// Delete удаляет код (после успешного подтверждения или исчерпания попыток)
	Delete(ctx context.Context, userID uint) error
}
