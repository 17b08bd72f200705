package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/hosting-api/internal/domain/entity"
	apperrors "github.com/yourusername/hosting-api/internal/pkg/errors"
	"github.com/yourusername/hosting-api/internal/provider"
)

// ============================================================================
// Моки репозиториев
// ============================================================================

// MockUserRepository реализует repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) CreateWithAccount(ctx context.Context, user *entity.User, account *entity.Account) error {
	args := m.Called(ctx, user, account)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, userID uint, role string) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func (m *MockUserRepository) SetEmailVerified(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]entity.User, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.User), args.Get(1).(int64), args.Error(2)
}

// MockAccountRepository реализует repository.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByProvider(ctx context.Context, provider, providerAccountID string) (*entity.Account, error) {
	args := m.Called(ctx, provider, providerAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Account), args.Error(1)
}

func (m *MockAccountRepository) LinkToUser(ctx context.Context, account *entity.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateTokens(ctx context.Context, accountID uint, accessToken, refreshToken string) error {
	args := m.Called(ctx, accountID, accessToken, refreshToken)
	return args.Error(0)
}

func (m *MockAccountRepository) ListByUser(ctx context.Context, userID uint) ([]entity.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Account), args.Error(1)
}

func newTestResolver(t *testing.T, userRepo *MockUserRepository, accountRepo *MockAccountRepository) *AccountLinkingService {
	t.Helper()
	svc, err := NewAccountLinkingService(userRepo, accountRepo)
	require.NoError(t, err)
	return svc
}

func testProfile() *provider.ExternalProfile {
	return &provider.ExternalProfile{
		Provider:          "google",
		ProviderAccountID: "ext-123",
		Email:             "user@example.com",
		DisplayName:       "Test User",
		AvatarURL:         "https://example.com/a.png",
		AccessToken:       "new-access",
		RefreshToken:      "new-refresh",
	}
}

// ============================================================================
// Тесты резолвера
// ============================================================================

func TestResolve_NoEmail_Terminal(t *testing.T) {
	// Arrange
	userRepo := new(MockUserRepository)
	accountRepo := new(MockAccountRepository)
	svc := newTestResolver(t, userRepo, accountRepo)

	profile := testProfile()
	profile.Email = ""

	// Act
	user, err := svc.Resolve(context.Background(), profile)

	// Assert: ничего не создаётся, хранилище не трогается
	assert.ErrorIs(t, err, ErrOAuthProfileIncomplete)
	assert.Nil(t, user)
	accountRepo.AssertNotCalled(t, "GetByProvider")
	userRepo.AssertNotCalled(t, "CreateWithAccount")
}

func TestResolve_ReturningUser_UpdatesOnlyTokens(t *testing.T) {
	// Arrange
	userRepo := new(MockUserRepository)
	accountRepo := new(MockAccountRepository)
	svc := newTestResolver(t, userRepo, accountRepo)

	owner := &entity.User{ID: 10, Email: "user@example.com", Name: "Original Name", Role: entity.RoleAdmin}
	existing := &entity.Account{ID: 5, UserID: 10, Provider: "google", ProviderAccountID: "ext-123"}

	accountRepo.On("GetByProvider", mock.Anything, "google", "ext-123").Return(existing, nil)
	accountRepo.On("UpdateTokens", mock.Anything, uint(5), "new-access", "new-refresh").Return(nil)
	userRepo.On("GetByID", mock.Anything, uint(10)).Return(owner, nil)

	// Act
	user, err := svc.Resolve(context.Background(), testProfile())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(10), user.ID)
	assert.Equal(t, "Original Name", user.Name, "Возвращающийся вход не трогает профиль")
	assert.Equal(t, entity.RoleAdmin, user.Role)
	userRepo.AssertNotCalled(t, "CreateWithAccount")
	accountRepo.AssertNotCalled(t, "LinkToUser")
	accountRepo.AssertExpectations(t)
}

func TestResolve_LinkingPath_ExistingEmail(t *testing.T) {
	// Arrange
	userRepo := new(MockUserRepository)
	accountRepo := new(MockAccountRepository)
	svc := newTestResolver(t, userRepo, accountRepo)

	existing := &entity.User{ID: 10, Email: "user@example.com", Name: "Kept", Role: entity.RoleSupport}

	accountRepo.On("GetByProvider", mock.Anything, "google", "ext-123").Return(nil, apperrors.ErrNotFound)
	userRepo.On("GetByEmail", mock.Anything, "user@example.com").Return(existing, nil)
	accountRepo.On("LinkToUser", mock.Anything, mock.MatchedBy(func(a *entity.Account) bool {
		return a.UserID == 10 && a.Provider == "google" && a.ProviderAccountID == "ext-123" &&
			a.AccessToken == "new-access" && a.RefreshToken == "new-refresh"
	})).Return(nil)

	// Act
	user, err := svc.Resolve(context.Background(), testProfile())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(10), user.ID)
	assert.Equal(t, "Kept", user.Name, "Привязка не перезаписывает профиль")
	assert.Equal(t, entity.RoleSupport, user.Role, "Привязка не понижает роль")
	userRepo.AssertNotCalled(t, "CreateWithAccount")
	accountRepo.AssertExpectations(t)
}

func TestResolve_BootstrapPath_NewUser(t *testing.T) {
	// Arrange
	userRepo := new(MockUserRepository)
	accountRepo := new(MockAccountRepository)
	svc := newTestResolver(t, userRepo, accountRepo)

	accountRepo.On("GetByProvider", mock.Anything, "google", "ext-123").Return(nil, apperrors.ErrNotFound)
	userRepo.On("GetByEmail", mock.Anything, "user@example.com").Return(nil, apperrors.ErrNotFound)
	userRepo.On("CreateWithAccount", mock.Anything,
		mock.MatchedBy(func(u *entity.User) bool {
			// Внешний вход не означает подтверждения почты
			return u.Email == "user@example.com" && u.Role == entity.RoleUser && u.EmailVerifiedAt == nil
		}),
		mock.MatchedBy(func(a *entity.Account) bool {
			return a.Provider == "google" && a.ProviderAccountID == "ext-123"
		}),
	).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*entity.User).ID = 77
	})

	// Act
	user, err := svc.Resolve(context.Background(), testProfile())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(77), user.ID)
	assert.Equal(t, "Test User", user.Name)
	userRepo.AssertExpectations(t)
}

func TestResolve_BootstrapConflict_ConvergesToWinner(t *testing.T) {
	// Arrange: bootstrap проигрывает гонку, перечитывание находит победителя
	userRepo := new(MockUserRepository)
	accountRepo := new(MockAccountRepository)
	svc := newTestResolver(t, userRepo, accountRepo)

	winnerUser := &entity.User{ID: 99, Email: "user@example.com"}
	winnerAccount := &entity.Account{ID: 50, UserID: 99, Provider: "google", ProviderAccountID: "ext-123"}

	accountRepo.On("GetByProvider", mock.Anything, "google", "ext-123").Return(nil, apperrors.ErrNotFound).Once()
	userRepo.On("GetByEmail", mock.Anything, "user@example.com").Return(nil, apperrors.ErrNotFound).Once()
	userRepo.On("CreateWithAccount", mock.Anything, mock.Anything, mock.Anything).Return(apperrors.ErrConflict).Once()

	// Вторая итерация: строка победителя уже видна
	accountRepo.On("GetByProvider", mock.Anything, "google", "ext-123").Return(winnerAccount, nil).Once()
	accountRepo.On("UpdateTokens", mock.Anything, uint(50), "new-access", "new-refresh").Return(nil).Once()
	userRepo.On("GetByID", mock.Anything, uint(99)).Return(winnerUser, nil).Once()

	// Act
	user, err := svc.Resolve(context.Background(), testProfile())

	// Assert: конфликт никогда не доходит до вызывающего кода
	require.NoError(t, err)
	assert.Equal(t, uint(99), user.ID)
	userRepo.AssertExpectations(t)
	accountRepo.AssertExpectations(t)
}

func TestResolve_LinkingConflict_ConvergesToWinner(t *testing.T) {
	// Arrange: LinkToUser проигрывает гонку за (provider, provider_account_id)
	userRepo := new(MockUserRepository)
	accountRepo := new(MockAccountRepository)
	svc := newTestResolver(t, userRepo, accountRepo)

	existing := &entity.User{ID: 10, Email: "user@example.com"}
	winnerAccount := &entity.Account{ID: 51, UserID: 10, Provider: "google", ProviderAccountID: "ext-123"}

	accountRepo.On("GetByProvider", mock.Anything, "google", "ext-123").Return(nil, apperrors.ErrNotFound).Once()
	userRepo.On("GetByEmail", mock.Anything, "user@example.com").Return(existing, nil).Once()
	accountRepo.On("LinkToUser", mock.Anything, mock.Anything).Return(apperrors.ErrConflict).Once()

	accountRepo.On("GetByProvider", mock.Anything, "google", "ext-123").Return(winnerAccount, nil).Once()
	accountRepo.On("UpdateTokens", mock.Anything, uint(51), "new-access", "new-refresh").Return(nil).Once()
	userRepo.On("GetByID", mock.Anything, uint(10)).Return(existing, nil).Once()

	// Act
	user, err := svc.Resolve(context.Background(), testProfile())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(10), user.ID)
	accountRepo.AssertExpectations(t)
}

func TestResolve_StoreUnavailable_Propagates(t *testing.T) {
	userRepo := new(MockUserRepository)
	accountRepo := new(MockAccountRepository)
	svc := newTestResolver(t, userRepo, accountRepo)

	accountRepo.On("GetByProvider", mock.Anything, "google", "ext-123").Return(nil, apperrors.ErrUnavailable)

	user, err := svc.Resolve(context.Background(), testProfile())
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Nil(t, user)
}
