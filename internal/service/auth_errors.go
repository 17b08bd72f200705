package service

import "errors"

// Auth flow specific errors used by handlers for stable error_type mapping.
var (
	// ErrOAuthProfileIncomplete — провайдер не выдал email (нет скоупа или
	// нет подтверждённого адреса). Терминальная ошибка: callback обязан
	// редиректить на страницу неуспешного входа.
	ErrOAuthProfileIncomplete = errors.New("oauth_profile_incomplete")

	ErrInvalidVerificationCode      = errors.New("invalid_verification_code")
	ErrVerificationExpired          = errors.New("verification_expired")
	ErrVerificationAttemptsExceeded = errors.New("verification_attempts_exceeded")
	ErrVerificationResendCooldown   = errors.New("verification_resend_cooldown")
)
