package repository

import (
	"context"

	"github.com/yourusername/hosting-api/internal/domain/entity"
)

// UserRepository определяет методы для работы с хранилищем пользователей.
// Уникальность email обеспечивается ограничением в хранилище, а не
// блокировками на уровне приложения.
type UserRepository interface {
	// GetByID возвращает пользователя по ID (apperrors.ErrNotFound, если строки нет)
	GetByID(ctx context.Context, id uint) (*entity.User, error)

	// GetByEmail возвращает пользователя по email (сравнение точное, как в хранилище)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)

	// CreateWithAccount атомарно создаёт нового пользователя вместе с его
	// первой внешней привязкой. Нарушение уникальности email или пары
	// (provider, provider_account_id) возвращается как apperrors.ErrConflict.
	CreateWithAccount(ctx context.Context, user *entity.User, account *entity.Account) error

	// UpdateRole меняет роль пользователя
	UpdateRole(ctx context.Context, userID uint, role string) error

	// SetEmailVerified проставляет отметку о подтверждении email
	SetEmailVerified(ctx context.Context, userID uint) error

	// List возвращает пользователей с пагинацией и общим количеством
	List(ctx context.Context, limit, offset int) ([]entity.User, int64, error)
}
