package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/hosting-api/internal/domain/entity"
	"github.com/yourusername/hosting-api/internal/domain/repository"
	apperrors "github.com/yourusername/hosting-api/internal/pkg/errors"
	"github.com/yourusername/hosting-api/internal/provider"
)

// Сколько раз резолвер перечитывает хранилище после проигранной гонки
// вставки. Каждая итерация либо находит строку победителя, либо пытается
// вставить свою; уникальные индексы гарантируют сходимость.
const maxLinkingAttempts = 3

// AccountLinkingService детерминированно отображает внешний OAuth-профиль
// ровно на одного внутреннего пользователя. Инварианты уникальности
// обеспечивает само хранилище: конфликт вставки означает, что параллельный
// callback выиграл гонку, и резолвер просто перечитывает его результат.
type AccountLinkingService struct {
	userRepo    repository.UserRepository
	accountRepo repository.AccountRepository
}

// NewAccountLinkingService создает новый резолвер связывания аккаунтов
func NewAccountLinkingService(
	userRepo repository.UserRepository,
	accountRepo repository.AccountRepository,
) (*AccountLinkingService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AccountLinkingService")
	}
	if accountRepo == nil {
		return nil, fmt.Errorf("AccountRepository is required for AccountLinkingService")
	}
	return &AccountLinkingService{
		userRepo:    userRepo,
		accountRepo: accountRepo,
	}, nil
}

// Resolve возвращает внутреннего пользователя для внешнего профиля,
// создавая или привязывая строки по мере необходимости.
//
// Порядок на каждый callback:
//  1. профиль без email — терминальный отказ, ничего не создаётся;
//  2. аккаунт (provider, provider_account_id) уже есть — обновить только
//     токены и вернуть владельца ("возвращающийся пользователь");
//  3. email уже занят — привязать новый аккаунт к существующему
//     пользователю, не трогая его профиль, роль и статус верификации;
//  4. иначе — создать пользователя вместе с первым аккаунтом атомарно.
func (s *AccountLinkingService) Resolve(ctx context.Context, profile *provider.ExternalProfile) (*entity.User, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: nil profile", apperrors.ErrValidation)
	}
	if strings.TrimSpace(profile.Provider) == "" || strings.TrimSpace(profile.ProviderAccountID) == "" {
		return nil, fmt.Errorf("%w: profile missing provider identity", apperrors.ErrValidation)
	}
	if strings.TrimSpace(profile.Email) == "" {
		log.Printf("[AccountLinking] Провайдер %s не выдал email для внешнего ID=%s",
			profile.Provider, profile.ProviderAccountID)
		return nil, ErrOAuthProfileIncomplete
	}

	var lastErr error
	for attempt := 0; attempt < maxLinkingAttempts; attempt++ {
		user, err := s.resolveOnce(ctx, profile)
		if err == nil {
			return user, nil
		}
		// Проигранная гонка вставки: строку создал параллельный callback,
		// перечитываем и сходимся на его пользователе
		if errors.Is(err, apperrors.ErrConflict) {
			log.Printf("[AccountLinking] Конфликт вставки для %s/%s (попытка %d), перечитываем",
				profile.Provider, profile.ProviderAccountID, attempt+1)
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("account linking did not converge after %d attempts: %w", maxLinkingAttempts, lastErr)
}

func (s *AccountLinkingService) resolveOnce(ctx context.Context, profile *provider.ExternalProfile) (*entity.User, error) {
	// Шаг 2: возвращающийся пользователь
	account, err := s.accountRepo.GetByProvider(ctx, profile.Provider, profile.ProviderAccountID)
	if err == nil {
		if err := s.accountRepo.UpdateTokens(ctx, account.ID, profile.AccessToken, profile.RefreshToken); err != nil {
			return nil, fmt.Errorf("failed to update account tokens: %w", err)
		}
		user, err := s.userRepo.GetByID(ctx, account.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load account owner: %w", err)
		}
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	// Шаг 3: привязка к существующему пользователю по email.
	// Профиль, роль и email_verified_at существующего пользователя
	// внешний вход никогда не перезаписывает.
	user, err := s.userRepo.GetByEmail(ctx, profile.Email)
	if err == nil {
		newAccount := &entity.Account{
			UserID:            user.ID,
			Provider:          profile.Provider,
			ProviderAccountID: profile.ProviderAccountID,
			AccessToken:       profile.AccessToken,
			RefreshToken:      profile.RefreshToken,
		}
		if err := s.accountRepo.LinkToUser(ctx, newAccount); err != nil {
			return nil, err
		}
		log.Printf("[AccountLinking] Привязан %s/%s к пользователю ID=%d",
			profile.Provider, profile.ProviderAccountID, user.ID)
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	// Шаг 4: bootstrap — новый пользователь вместе с первым аккаунтом.
	// email_verified_at остаётся NULL: внешний вход не означает
	// подтверждения почты у нас.
	newUser := &entity.User{
		Email:     profile.Email,
		Name:      profile.DisplayName,
		AvatarURL: profile.AvatarURL,
		Role:      entity.RoleUser,
	}
	newAccount := &entity.Account{
		Provider:          profile.Provider,
		ProviderAccountID: profile.ProviderAccountID,
		AccessToken:       profile.AccessToken,
		RefreshToken:      profile.RefreshToken,
	}
	if err := s.userRepo.CreateWithAccount(ctx, newUser, newAccount); err != nil {
		return nil, err
	}
	log.Printf("[AccountLinking] Создан пользователь ID=%d для %s/%s",
		newUser.ID, profile.Provider, profile.ProviderAccountID)
	return newUser, nil
}
