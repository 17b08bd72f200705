package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/hosting-api/internal/domain/entity"
	"github.com/yourusername/hosting-api/internal/domain/repository"
	apperrors "github.com/yourusername/hosting-api/internal/pkg/errors"
)

// UserService предоставляет операции над пользователями для панели
type UserService struct {
	userRepo    repository.UserRepository
	accountRepo repository.AccountRepository
}

// NewUserService создает новый сервис пользователей
func NewUserService(userRepo repository.UserRepository, accountRepo repository.AccountRepository) (*UserService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for UserService")
	}
	if accountRepo == nil {
		return nil, fmt.Errorf("AccountRepository is required for UserService")
	}
	return &UserService{
		userRepo:    userRepo,
		accountRepo: accountRepo,
	}, nil
}

// GetByID возвращает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetWithAccounts возвращает пользователя вместе с привязанными внешними
// аккаунтами (для саппорта и страницы профиля)
func (s *UserService) GetWithAccounts(ctx context.Context, id uint) (*entity.User, []entity.Account, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	accounts, err := s.accountRepo.ListByUser(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return user, accounts, nil
}

// List возвращает страницу пользователей и общее количество
func (s *UserService) List(ctx context.Context, page, pageSize int) ([]entity.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	return s.userRepo.List(ctx, pageSize, offset)
}

// ChangeRole меняет роль пользователя. Благодаря тому, что guard перечитывает
// пользователя на каждом запросе, смена роли действует со следующего запроса.
func (s *UserService) ChangeRole(ctx context.Context, userID uint, role string) (*entity.User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !entity.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, role)
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}
	log.Printf("[UserService] Роль пользователя ID=%d изменена на %s", userID, role)
	return s.userRepo.GetByID(ctx, userID)
}
