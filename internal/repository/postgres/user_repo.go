package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/hosting-api/internal/domain/entity"
	apperrors "github.com/yourusername/hosting-api/internal/pkg/errors"
)

// UserRepo реализует repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo создает новый репозиторий пользователей
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetByID возвращает пользователя по ID
func (r *UserRepo) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", translateError(err))
	}
	return &user, nil
}

// GetByEmail возвращает пользователя по email (точное совпадение, как в хранилище)
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", translateError(err))
	}
	return &user, nil
}

// CreateWithAccount атомарно создаёт пользователя вместе с его первой
// внешней привязкой. Уникальные ограничения БД — единственный механизм
// защиты от гонки двух одновременных первых входов.
func (r *UserRepo) CreateWithAccount(ctx context.Context, user *entity.User, account *entity.Account) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		account.UserID = user.ID
		return tx.Create(account).Error
	})
	if err != nil {
		translated := translateError(err)
		if errors.Is(translated, apperrors.ErrConflict) {
			log.Printf("[UserRepo] Конфликт уникальности при создании пользователя email=%s provider=%s", user.Email, account.Provider)
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create user with account: %w", translated)
	}
	return nil
}

// UpdateRole меняет роль пользователя
func (r *UserRepo) UpdateRole(ctx context.Context, userID uint, role string) error {
	result := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"role": role, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to update user role: %w", translateError(result.Error))
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	log.Printf("[UserRepo] Роль пользователя ID=%d изменена на %q", userID, role)
	return nil
}

// SetEmailVerified проставляет отметку о подтверждении email
func (r *UserRepo) SetEmailVerified(ctx context.Context, userID uint) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"email_verified_at": &now, "updated_at": now})
	if result.Error != nil {
		return fmt.Errorf("failed to set email verified: %w", translateError(result.Error))
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List возвращает пользователей с пагинацией и общим количеством
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]entity.User, int64, error) {
	var users []entity.User
	var total int64

	if err := r.db.WithContext(ctx).Model(&entity.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", translateError(err))
	}

	err := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", translateError(err))
	}
	return users, total, nil
}
