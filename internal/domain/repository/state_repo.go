package repository

import (
	"context"
	"time"
)

// OAuthStateRepository хранит одноразовые state-токены OAuth-потока.
// Токен живёт ограниченное время и потребляется ровно один раз.
type OAuthStateRepository interface {
	// Save сохраняет state с привязанным именем провайдера и TTL
	Save(ctx context.Context, state, provider string, ttl time.Duration) error

	// Consume атомарно читает и удаляет state; возвращает имя провайдера.
	// Неизвестный или уже использованный state — apperrors.ErrNotFound.
	Consume(ctx context.Context, state string) (string, error)
}
