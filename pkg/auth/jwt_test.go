package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService("test-signing-secret", "hosting-api-test")
	require.NoError(t, err)
	return svc
}

func TestNewTokenService_EmptySecret(t *testing.T) {
	svc, err := NewTokenService("", "issuer")
	assert.Error(t, err)
	assert.Nil(t, svc)
}

func TestTokenService_IssueVerify_RoundTrip(t *testing.T) {
	// Arrange
	svc := newTestService(t)

	// Act
	token, err := svc.Issue(42, "user@example.com", time.Minute)
	require.NoError(t, err)
	claims, err := svc.Verify(token)

	// Assert
	require.NoError(t, err, "Свежий токен должен проходить проверку")
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestTokenService_Issue_InvalidInput(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Issue(0, "user@example.com", time.Minute)
	assert.Error(t, err, "Нулевой user id не допускается")

	_, err = svc.Issue(42, "user@example.com", 0)
	assert.Error(t, err, "Неположительный ttl не допускается")
}

func TestTokenService_Verify_Expired(t *testing.T) {
	// Arrange
	svc := newTestService(t)
	token, err := svc.Issue(42, "user@example.com", -time.Minute)
	require.NoError(t, err)

	// Act
	claims, err := svc.Verify(token)

	// Assert: истечение неотличимо от подделки
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.Nil(t, claims)
}

func TestTokenService_Verify_Tampered(t *testing.T) {
	svc := newTestService(t)
	token, err := svc.Issue(42, "user@example.com", time.Minute)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"

	claims, err := svc.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.Nil(t, claims)
}

func TestTokenService_Verify_Garbage(t *testing.T) {
	svc := newTestService(t)

	for _, input := range []string{"", "garbage", "a.b.c", "это не токен"} {
		claims, err := svc.Verify(input)
		assert.ErrorIs(t, err, ErrInvalidCredential, "Мусор на входе: %q", input)
		assert.Nil(t, claims)
	}
}

func TestTokenService_Verify_WrongSecret(t *testing.T) {
	svc := newTestService(t)
	other, err := NewTokenService("another-secret", "hosting-api-test")
	require.NoError(t, err)

	token, err := other.Issue(42, "user@example.com", time.Minute)
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.Nil(t, claims)
}

func TestTokenService_Verify_WrongAlgorithm(t *testing.T) {
	// Токен с alg=none должен отклоняться парсером по списку допустимых методов
	svc := newTestService(t)

	claims := &SessionClaims{
		UserID: 42,
		Email:  "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	parsed, err := svc.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.Nil(t, parsed)
}
