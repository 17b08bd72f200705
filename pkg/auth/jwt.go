package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidCredential возвращается на ЛЮБУЮ неуспешную проверку токена.
// Подделка, истечение срока и мусор на входе намеренно неразличимы для
// вызывающего кода: всё, что не доказуемо свежее и подлинное, отклоняется
// одинаково. Детали причины попадают только в лог.
var ErrInvalidCredential = errors.New("invalid credential")

// SessionClaims содержит пользовательские поля сессионного токена
type SessionClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService подписывает и проверяет сессионные токены.
// Секрет подписи — явное состояние конструктора, неизменяемое на время
// жизни процесса; ротация выполняется заменой экземпляра.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService создает новый сервис токенов и возвращает ошибку при проблемах
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required for TokenService")
	}
	if issuer == "" {
		issuer = "hosting-api"
	}
	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
	}, nil
}

// Issue создает подписанный токен, несущий {user_id, email, exp}.
// Один и тот же формат используется для короткоживущего access-токена
// и долгоживущего refresh-токена — различается только ttl.
func (s *TokenService) Issue(userID uint, email string, ttl time.Duration) (string, error) {
	if userID == 0 {
		return "", fmt.Errorf("cannot issue credential for zero user id")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("cannot issue credential with non-positive ttl")
	}

	now := time.Now()
	claims := &SessionClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		log.Printf("[TokenService] Ошибка подписи токена для пользователя ID=%d: %v", userID, err)
		return "", err
	}
	return tokenString, nil
}

// Verify проверяет подпись и срок действия токена. Никогда не паникует и
// не возвращает ошибки парсера наружу: любой дефект сворачивается в
// ErrInvalidCredential.
func (s *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidCredential
	}

	claims := &SessionClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		// Причину оставляем в логе для диагностики, наружу — единый исход
		log.Printf("[TokenService] Отклонён токен: %v", err)
		return nil, ErrInvalidCredential
	}
	if token == nil || !token.Valid {
		return nil, ErrInvalidCredential
	}
	if claims.UserID == 0 {
		log.Printf("[TokenService] Отклонён токен без user_id")
		return nil, ErrInvalidCredential
	}
	return claims, nil
}
