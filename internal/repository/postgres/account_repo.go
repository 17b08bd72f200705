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

// AccountRepo реализует repository.AccountRepository
type AccountRepo struct {
	db *gorm.DB
}

// NewAccountRepo создает новый репозиторий внешних привязок
func NewAccountRepo(db *gorm.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// GetByProvider возвращает привязку по паре (provider, providerAccountID)
func (r *AccountRepo) GetByProvider(ctx context.Context, provider, providerAccountID string) (*entity.Account, error) {
	var account entity.Account
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_account_id = ?", provider, providerAccountID).
		First(&account).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get account by provider: %w", translateError(err))
	}
	return &account, nil
}

// LinkToUser создаёт привязку для уже существующего пользователя
func (r *AccountRepo) LinkToUser(ctx context.Context, account *entity.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		translated := translateError(err)
		if errors.Is(translated, apperrors.ErrConflict) {
			log.Printf("[AccountRepo] Конфликт уникальности при привязке provider=%s к пользователю ID=%d", account.Provider, account.UserID)
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to link account: %w", translated)
	}
	return nil
}

// UpdateTokens перезаписывает токены провайдера для существующей привязки.
// Профиль владельца не затрагивается.
func (r *AccountRepo) UpdateTokens(ctx context.Context, accountID uint, accessToken, refreshToken string) error {
	result := r.db.WithContext(ctx).Model(&entity.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"access_token":  accessToken,
			"refresh_token": refreshToken,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update account tokens: %w", translateError(result.Error))
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListByUser возвращает все привязки пользователя
func (r *AccountRepo) ListByUser(ctx context.Context, userID uint) ([]entity.Account, error) {
	var accounts []entity.Account
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for user: %w", translateError(err))
	}
	return accounts, nil
}
