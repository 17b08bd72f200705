package manager

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/hosting-api/internal/domain/entity"
	"github.com/yourusername/hosting-api/pkg/auth"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	tokenService, err := auth.NewTokenService("test-signing-secret", "hosting-api-test")
	require.NoError(t, err)
	m, err := NewTokenManager(tokenService)
	require.NoError(t, err)
	return m
}

func TestNewTokenManager_NilService(t *testing.T) {
	m, err := NewTokenManager(nil)
	assert.Error(t, err)
	assert.Nil(t, m)
}

func TestExtractCredential_Absent(t *testing.T) {
	m := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	token, ok := m.ExtractCredential(req)
	assert.False(t, ok, "Отсутствие кандидата — не ошибка, а false")
	assert.Empty(t, token)
}

func TestExtractCredential_CookieOnly(t *testing.T) {
	m := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "cookie-token"})

	token, ok := m.ExtractCredential(req)
	assert.True(t, ok)
	assert.Equal(t, "cookie-token", token)
}

func TestExtractCredential_HeaderOnly(t *testing.T) {
	m := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer header-token")

	token, ok := m.ExtractCredential(req)
	assert.True(t, ok)
	assert.Equal(t, "header-token", token)
}

func TestExtractCredential_CookieTakesPrecedence(t *testing.T) {
	m := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")

	token, ok := m.ExtractCredential(req)
	assert.True(t, ok)
	assert.Equal(t, "cookie-token", token, "Кука имеет приоритет над заголовком")
}

func TestExtractCredential_MalformedHeader(t *testing.T) {
	m := newTestManager(t)

	for _, header := range []string{"Bearer", "Bearer ", "Basic abc", "token-without-scheme"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)

		token, ok := m.ExtractCredential(req)
		assert.False(t, ok, "Заголовок %q не должен давать кандидата", header)
		assert.Empty(t, token)
	}
}

func TestExtractCredential_BearerCaseInsensitive(t *testing.T) {
	m := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer header-token")

	token, ok := m.ExtractCredential(req)
	assert.True(t, ok)
	assert.Equal(t, "header-token", token)
}

func TestIssueSession_PairProperties(t *testing.T) {
	m := newTestManager(t)
	m.SetTokenExpiry(10*time.Minute, 240*time.Hour)
	user := &entity.User{ID: 7, Email: "owner@example.com"}

	pair, err := m.IssueSession(user)
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken, "Access и refresh — независимые токены")
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int((10 * time.Minute).Seconds()), pair.ExpiresIn)
	assert.Equal(t, uint(7), pair.UserID)
}

func TestSetSessionCookies_Attributes(t *testing.T) {
	m := newTestManager(t)
	m.SetProductionMode(false)
	user := &entity.User{ID: 7, Email: "owner@example.com"}

	pair, err := m.IssueSession(user)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.SetSessionCookies(rec, pair)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)

	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}

	access := byName[AccessTokenCookie]
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
	assert.Equal(t, "/", access.Path)
	assert.False(t, access.Secure, "В dev-режиме Secure выключен")

	refresh := byName[RefreshTokenCookie]
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)
	assert.Greater(t, refresh.MaxAge, access.MaxAge, "Refresh-кука живёт дольше")
}

func TestSetCookieDomain_AppliedToSessionCookies(t *testing.T) {
	m := newTestManager(t)
	m.SetCookieDomain("panel.example.com")
	user := &entity.User{ID: 7, Email: "owner@example.com"}

	pair, err := m.IssueSession(user)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.SetSessionCookies(rec, pair)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Equal(t, "panel.example.com", c.Domain, "Кука %s должна нести настроенный Domain", c.Name)
	}
}

func TestClearSessionCookies(t *testing.T) {
	m := newTestManager(t)
	rec := httptest.NewRecorder()

	m.ClearSessionCookies(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Empty(t, c.Value)
		assert.Equal(t, -1, c.MaxAge, "Кука %s должна быть погашена", c.Name)
	}
}
