package manager

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/hosting-api/internal/domain/entity"
	"github.com/yourusername/hosting-api/pkg/auth"
)

// Константы для настройки токенов
const (
	// Имя cookie для access-токена
	AccessTokenCookie = "accessToken"
	// Имя cookie для refresh-токена
	RefreshTokenCookie = "refreshToken"

	// Время жизни access-токена по умолчанию
	DefaultAccessTokenLifetime = 15 * time.Minute
	// Время жизни refresh-токена по умолчанию
	DefaultRefreshTokenLifetime = 30 * 24 * time.Hour
)

// TokenPair — пара сессионных токенов. Refresh-токен не обменивается на
// новый access-токен: это независимая долгоживущая копия того же payload,
// живущая только в пределах собственной cookie.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"-"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	UserID       uint   `json:"user_id"`
}

// TokenManager выпускает пары сессионных токенов и управляет их доставкой
// через куки. Сессии stateless: на сервере ничего не хранится.
type TokenManager struct {
	tokenService       *auth.TokenService
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	// Настройки для Cookie
	cookiePath     string
	cookieDomain   string
	cookieSecure   bool
	cookieHTTPOnly bool
	cookieSameSite http.SameSite
}

// NewTokenManager создает новый менеджер токенов
func NewTokenManager(tokenService *auth.TokenService) (*TokenManager, error) {
	if tokenService == nil {
		return nil, fmt.Errorf("TokenService is required for TokenManager")
	}
	return &TokenManager{
		tokenService:       tokenService,
		accessTokenExpiry:  DefaultAccessTokenLifetime,
		refreshTokenExpiry: DefaultRefreshTokenLifetime,
		cookiePath:         "/",
		cookieDomain:       "",
		cookieSecure:       true,
		cookieHTTPOnly:     true,
		cookieSameSite:     http.SameSiteLaxMode,
	}, nil
}

// SetTokenExpiry устанавливает время жизни access и refresh токенов
func (m *TokenManager) SetTokenExpiry(access, refresh time.Duration) {
	if access > 0 {
		m.accessTokenExpiry = access
	} else {
		log.Printf("[TokenManager] Warning: Invalid access token expiry provided: %v. Using: %v", access, m.accessTokenExpiry)
	}
	if refresh > 0 {
		m.refreshTokenExpiry = refresh
	} else {
		log.Printf("[TokenManager] Warning: Invalid refresh token expiry provided: %v. Using: %v", refresh, m.refreshTokenExpiry)
	}
}

// SetProductionMode включает Secure для кук (true в production)
func (m *TokenManager) SetProductionMode(isProduction bool) {
	m.cookieSecure = isProduction
	log.Printf("[TokenManager] Production mode set to: %v, Cookie Secure set to: %v", isProduction, m.cookieSecure)
}

// SetCookieDomain задаёт атрибут Domain сессионных кук. Пустое значение
// оставляет host-only куки (обычный случай для панели на том же домене).
func (m *TokenManager) SetCookieDomain(domain string) {
	m.cookieDomain = domain
	if domain != "" {
		log.Printf("[TokenManager] Cookie Domain set to: %s", domain)
	}
}

// IssueSession выпускает пару токенов для разрешённого пользователя
func (m *TokenManager) IssueSession(user *entity.User) (*TokenPair, error) {
	accessToken, err := m.tokenService.Issue(user.ID, user.Email, m.accessTokenExpiry)
	if err != nil {
		return nil, err
	}
	refreshToken, err := m.tokenService.Issue(user.ID, user.Email, m.refreshTokenExpiry)
	if err != nil {
		return nil, err
	}
	log.Printf("[TokenManager] Выпущена пара токенов для пользователя ID=%d", user.ID)
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(m.accessTokenExpiry.Seconds()),
		UserID:       user.ID,
	}, nil
}

// ExtractCredential возвращает кандидата на сессионный токен из запроса:
// сначала кука accessToken, затем заголовок Authorization: Bearer.
// Отсутствие кандидата — не ошибка, а второй результат false.
func (m *TokenManager) ExtractCredential(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// SetSessionCookies устанавливает обе сессионные куки
func (m *TokenManager) SetSessionCookies(w http.ResponseWriter, pair *TokenPair) {
	m.setCookie(w, AccessTokenCookie, pair.AccessToken, int(m.accessTokenExpiry.Seconds()))
	m.setCookie(w, RefreshTokenCookie, pair.RefreshToken, int(m.refreshTokenExpiry.Seconds()))
}

// ClearSessionCookies удаляет обе сессионные куки (logout)
func (m *TokenManager) ClearSessionCookies(w http.ResponseWriter) {
	m.setCookie(w, AccessTokenCookie, "", -1)
	m.setCookie(w, RefreshTokenCookie, "", -1)
}

func (m *TokenManager) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     m.cookiePath,
		Domain:   m.cookieDomain,
		HttpOnly: m.cookieHTTPOnly,
		Secure:   m.cookieSecure,
		SameSite: m.cookieSameSite,
		MaxAge:   maxAge,
	})
}
