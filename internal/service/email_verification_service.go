package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/hosting-api/internal/domain/repository"
	apperrors "github.com/yourusername/hosting-api/internal/pkg/errors"
)

// EmailVerificationService выдаёт и проверяет коды подтверждения email.
// Коды живут в Redis (они эфемерные), в БД попадает только итоговый
// email_verified_at.
type EmailVerificationService struct {
	userRepo       repository.UserRepository
	codeRepo       repository.EmailVerificationRepository
	emailService   EmailService
	codeTTL        time.Duration
	resendCooldown time.Duration
	maxAttempts    int
	codePepper     string
}

// NewEmailVerificationService создает сервис подтверждения email
func NewEmailVerificationService(
	userRepo repository.UserRepository,
	codeRepo repository.EmailVerificationRepository,
	emailService EmailService,
	codeTTL time.Duration,
	resendCooldown time.Duration,
	maxAttempts int,
	codePepper string,
) (*EmailVerificationService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for EmailVerificationService")
	}
	if codeRepo == nil {
		return nil, fmt.Errorf("EmailVerificationRepository is required for EmailVerificationService")
	}
	if emailService == nil {
		return nil, fmt.Errorf("EmailService is required for EmailVerificationService")
	}
	if codeTTL <= 0 {
		codeTTL = 15 * time.Minute
	}
	if resendCooldown <= 0 {
		resendCooldown = 60 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	return &EmailVerificationService{
		userRepo:       userRepo,
		codeRepo:       codeRepo,
		emailService:   emailService,
		codeTTL:        codeTTL,
		resendCooldown: resendCooldown,
		maxAttempts:    maxAttempts,
		codePepper:     codePepper,
	}, nil
}

// SendCode выдаёт новый код и отправляет его на email пользователя.
// Уже подтверждённый email — no-op. Повторная выдача раньше cooldown
// отклоняется.
func (s *EmailVerificationService) SendCode(ctx context.Context, userID uint) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerifiedAt != nil {
		return nil
	}

	now := time.Now()
	existing, err := s.codeRepo.Get(ctx, userID)
	if err == nil && existing != nil {
		if now.Before(existing.IssuedAt.Add(s.resendCooldown)) {
			return fmt.Errorf("%w: please wait before requesting a new code", ErrVerificationResendCooldown)
		}
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	code, err := generateVerificationCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	record := repository.VerificationCode{
		CodeHash:     s.hashCode(code),
		AttemptsLeft: s.maxAttempts,
		IssuedAt:     now,
	}
	if err := s.codeRepo.Save(ctx, userID, record, s.codeTTL); err != nil {
		return err
	}

	idempotencyKey := fmt.Sprintf("email-verify:%d:%s", user.ID, uuid.NewString())
	if err := s.emailService.SendVerificationCode(ctx, user.Email, code, idempotencyKey); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	log.Printf("[EmailVerification] Код отправлен пользователю ID=%d", user.ID)
	return nil
}

// ConfirmCode проверяет код и помечает email подтверждённым
func (s *EmailVerificationService) ConfirmCode(ctx context.Context, userID uint, code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: empty verification code", apperrors.ErrValidation)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerifiedAt != nil {
		return nil
	}

	record, err := s.codeRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Кода нет либо TTL истёк — для клиента это одно и то же
			return ErrVerificationExpired
		}
		return err
	}
	if record.AttemptsLeft <= 0 {
		return ErrVerificationAttemptsExceeded
	}

	expected := s.hashCode(strings.TrimSpace(code))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(record.CodeHash)) != 1 {
		if record.AttemptsLeft-1 <= 0 {
			_ = s.codeRepo.Delete(ctx, userID)
			return ErrVerificationAttemptsExceeded
		}
		if err := s.codeRepo.DecrementAttempts(ctx, userID); err != nil {
			log.Printf("[EmailVerification] Не удалось уменьшить счётчик попыток для ID=%d: %v", userID, err)
		}
		return ErrInvalidVerificationCode
	}

	if err := s.userRepo.SetEmailVerified(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark user email verified: %w", err)
	}
	_ = s.codeRepo.Delete(ctx, userID)
	log.Printf("[EmailVerification] Email подтверждён для пользователя ID=%d", userID)
	return nil
}

func (s *EmailVerificationService) hashCode(code string) string {
	sum := sha256.Sum256([]byte(code + s.codePepper))
	return hex.EncodeToString(sum[:])
}

func generateVerificationCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
