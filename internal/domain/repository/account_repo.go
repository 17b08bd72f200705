package repository

import (
	"context"

	"github.com/yourusername/hosting-api/internal/domain/entity"
)

// AccountRepository определяет методы для работы с внешними привязками.
type AccountRepository interface {
	// GetByProvider возвращает привязку по паре (provider, providerAccountID)
	GetByProvider(ctx context.Context, provider, providerAccountID string) (*entity.Account, error)

	// LinkToUser создаёт привязку для уже существующего пользователя.
	// Нарушение уникальности пары возвращается как apperrors.ErrConflict.
	LinkToUser(ctx context.Context, account *entity.Account) error

	// UpdateTokens перезаписывает токены провайдера; другие поля не трогает
	UpdateTokens(ctx context.Context, accountID uint, accessToken, refreshToken string) error

	// ListByUser возвращает все привязки пользователя
	ListByUser(ctx context.Context, userID uint) ([]entity.Account, error)
}
