package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/hosting-api/internal/domain/entity"
	"github.com/yourusername/hosting-api/internal/domain/repository"
	apperrors "github.com/yourusername/hosting-api/internal/pkg/errors"
)

// MockVerificationCodeRepo реализует repository.EmailVerificationRepository
type MockVerificationCodeRepo struct {
	mock.Mock
}

func (m *MockVerificationCodeRepo) Save(ctx context.Context, userID uint, code repository.VerificationCode, ttl time.Duration) error {
	args := m.Called(ctx, userID, code, ttl)
	return args.Error(0)
}

func (m *MockVerificationCodeRepo) Get(ctx context.Context, userID uint) (*repository.VerificationCode, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.VerificationCode), args.Error(1)
}

func (m *MockVerificationCodeRepo) DecrementAttempts(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockVerificationCodeRepo) Delete(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// CapturingEmailService запоминает отправленный код
type CapturingEmailService struct {
	LastEmail string
	LastCode  string
	Sent      int
}

func (s *CapturingEmailService) SendVerificationCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	s.LastEmail = toEmail
	s.LastCode = code
	s.Sent++
	return nil
}

const testPepper = "test-pepper"

func hashTestCode(code string) string {
	sum := sha256.Sum256([]byte(code + testPepper))
	return hex.EncodeToString(sum[:])
}

func newVerificationEnv(t *testing.T) (*EmailVerificationService, *MockUserRepository, *MockVerificationCodeRepo, *CapturingEmailService) {
	t.Helper()
	userRepo := new(MockUserRepository)
	codeRepo := new(MockVerificationCodeRepo)
	emailService := &CapturingEmailService{}

	svc, err := NewEmailVerificationService(
		userRepo, codeRepo, emailService,
		15*time.Minute, time.Minute, 5, testPepper,
	)
	require.NoError(t, err)
	return svc, userRepo, codeRepo, emailService
}

func TestSendCode_IssuesAndSends(t *testing.T) {
	// Arrange
	svc, userRepo, codeRepo, emailService := newVerificationEnv(t)
	userRepo.On("GetByID", mock.Anything, uint(7)).
		Return(&entity.User{ID: 7, Email: "user@example.com"}, nil)
	codeRepo.On("Get", mock.Anything, uint(7)).Return(nil, apperrors.ErrNotFound)
	codeRepo.On("Save", mock.Anything, uint(7), mock.MatchedBy(func(c repository.VerificationCode) bool {
		return c.AttemptsLeft == 5 && c.CodeHash != ""
	}), 15*time.Minute).Return(nil)

	// Act
	err := svc.SendCode(context.Background(), 7)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, emailService.Sent)
	assert.Equal(t, "user@example.com", emailService.LastEmail)
	assert.Len(t, emailService.LastCode, 6, "Код всегда шестизначный")
	codeRepo.AssertExpectations(t)
}

func TestSendCode_AlreadyVerified_Noop(t *testing.T) {
	svc, userRepo, codeRepo, emailService := newVerificationEnv(t)
	verifiedAt := time.Now()
	userRepo.On("GetByID", mock.Anything, uint(7)).
		Return(&entity.User{ID: 7, Email: "user@example.com", EmailVerifiedAt: &verifiedAt}, nil)

	err := svc.SendCode(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, 0, emailService.Sent)
	codeRepo.AssertNotCalled(t, "Save")
}

func TestSendCode_CooldownRejected(t *testing.T) {
	svc, userRepo, codeRepo, emailService := newVerificationEnv(t)
	userRepo.On("GetByID", mock.Anything, uint(7)).
		Return(&entity.User{ID: 7, Email: "user@example.com"}, nil)
	codeRepo.On("Get", mock.Anything, uint(7)).Return(&repository.VerificationCode{
		CodeHash:     "h",
		AttemptsLeft: 5,
		IssuedAt:     time.Now().Add(-10 * time.Second),
	}, nil)

	err := svc.SendCode(context.Background(), 7)

	assert.ErrorIs(t, err, ErrVerificationResendCooldown)
	assert.Equal(t, 0, emailService.Sent)
	codeRepo.AssertNotCalled(t, "Save")
}

func TestConfirmCode_Success(t *testing.T) {
	// Arrange
	svc, userRepo, codeRepo, _ := newVerificationEnv(t)
	userRepo.On("GetByID", mock.Anything, uint(7)).
		Return(&entity.User{ID: 7, Email: "user@example.com"}, nil)
	codeRepo.On("Get", mock.Anything, uint(7)).Return(&repository.VerificationCode{
		CodeHash:     hashTestCode("123456"),
		AttemptsLeft: 5,
		IssuedAt:     time.Now().Add(-2 * time.Minute),
	}, nil)
	userRepo.On("SetEmailVerified", mock.Anything, uint(7)).Return(nil)
	codeRepo.On("Delete", mock.Anything, uint(7)).Return(nil)

	// Act
	err := svc.ConfirmCode(context.Background(), 7, "123456")

	// Assert
	require.NoError(t, err)
	userRepo.AssertCalled(t, "SetEmailVerified", mock.Anything, uint(7))
	codeRepo.AssertCalled(t, "Delete", mock.Anything, uint(7))
}

func TestConfirmCode_WrongCode_DecrementsAttempts(t *testing.T) {
	svc, userRepo, codeRepo, _ := newVerificationEnv(t)
	userRepo.On("GetByID", mock.Anything, uint(7)).
		Return(&entity.User{ID: 7, Email: "user@example.com"}, nil)
	codeRepo.On("Get", mock.Anything, uint(7)).Return(&repository.VerificationCode{
		CodeHash:     hashTestCode("123456"),
		AttemptsLeft: 5,
		IssuedAt:     time.Now(),
	}, nil)
	codeRepo.On("DecrementAttempts", mock.Anything, uint(7)).Return(nil)

	err := svc.ConfirmCode(context.Background(), 7, "654321")

	assert.ErrorIs(t, err, ErrInvalidVerificationCode)
	userRepo.AssertNotCalled(t, "SetEmailVerified")
	codeRepo.AssertCalled(t, "DecrementAttempts", mock.Anything, uint(7))
}

func TestConfirmCode_LastAttemptExhausted(t *testing.T) {
	svc, userRepo, codeRepo, _ := newVerificationEnv(t)
	userRepo.On("GetByID", mock.Anything, uint(7)).
		Return(&entity.User{ID: 7, Email: "user@example.com"}, nil)
	codeRepo.On("Get", mock.Anything, uint(7)).Return(&repository.VerificationCode{
		CodeHash:     hashTestCode("123456"),
		AttemptsLeft: 1,
		IssuedAt:     time.Now(),
	}, nil)
	codeRepo.On("Delete", mock.Anything, uint(7)).Return(nil)

	err := svc.ConfirmCode(context.Background(), 7, "000000")

	assert.ErrorIs(t, err, ErrVerificationAttemptsExceeded)
	userRepo.AssertNotCalled(t, "SetEmailVerified")
	codeRepo.AssertCalled(t, "Delete", mock.Anything, uint(7))
}

func TestConfirmCode_ExpiredOrMissing(t *testing.T) {
	svc, userRepo, codeRepo, _ := newVerificationEnv(t)
	userRepo.On("GetByID", mock.Anything, uint(7)).
		Return(&entity.User{ID: 7, Email: "user@example.com"}, nil)
	codeRepo.On("Get", mock.Anything, uint(7)).Return(nil, apperrors.ErrNotFound)

	err := svc.ConfirmCode(context.Background(), 7, "123456")

	assert.ErrorIs(t, err, ErrVerificationExpired)
}

func TestConfirmCode_EmptyCode(t *testing.T) {
	svc, _, _, _ := newVerificationEnv(t)

	err := svc.ConfirmCode(context.Background(), 7, "  ")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
