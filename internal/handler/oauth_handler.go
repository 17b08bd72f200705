package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/hosting-api/internal/domain/repository"
	apperrors "github.com/yourusername/hosting-api/internal/pkg/errors"
	"github.com/yourusername/hosting-api/internal/provider"
	"github.com/yourusername/hosting-api/internal/service"
	"github.com/yourusername/hosting-api/pkg/auth/manager"
)

// Время жизни state-токена: столько даём пользователю на экран согласия
const oauthStateTTL = 10 * time.Minute

// Коды ошибок, уносимые в редирект на страницу логина
const (
	loginErrorProfileIncomplete = "profile_incomplete"
	loginErrorInvalidState      = "invalid_state"
	loginErrorProviderError     = "provider_error"
	loginErrorServerError       = "server_error"
)

// OAuthHandler обрабатывает OAuth-вход: редирект к провайдеру и callback
type OAuthHandler struct {
	providers      *provider.Registry
	stateRepo      repository.OAuthStateRepository
	linkingService *service.AccountLinkingService
	tokenManager   *manager.TokenManager
	frontendURL    string
}

// NewOAuthHandler создает новый обработчик OAuth-входа
func NewOAuthHandler(
	providers *provider.Registry,
	stateRepo repository.OAuthStateRepository,
	linkingService *service.AccountLinkingService,
	tokenManager *manager.TokenManager,
	frontendURL string,
) *OAuthHandler {
	return &OAuthHandler{
		providers:      providers,
		stateRepo:      stateRepo,
		linkingService: linkingService,
		tokenManager:   tokenManager,
		frontendURL:    frontendURL,
	}
}

// Login начинает OAuth-поток: генерирует одноразовый state, сохраняет его
// в Redis и редиректит на страницу авторизации провайдера.
// GET /api/auth/:provider/login
func (h *OAuthHandler) Login(c *gin.Context) {
	providerName := c.Param("provider")
	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown oauth provider", "error_type": "not_found"})
		return
	}

	state := uuid.NewString()
	if err := h.stateRepo.Save(c.Request.Context(), state, p.Name(), oauthStateTTL); err != nil {
		log.Printf("[OAuthHandler] Не удалось сохранить state для %s: %v", p.Name(), err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "login temporarily unavailable", "error_type": "unavailable"})
		return
	}

	c.Redirect(http.StatusFound, p.AuthCodeURL(state))
}

// Callback завершает OAuth-поток: потребляет state, обменивает code на
// профиль, резолвит пользователя, выпускает сессионные куки и редиректит
// на фронтенд. Любой отказ уходит редиректом на страницу логина с кодом
// ошибки, а не сырой ошибкой.
// GET /api/auth/:provider/callback
func (h *OAuthHandler) Callback(c *gin.Context) {
	providerName := c.Param("provider")
	p, err := h.providers.Get(providerName)
	if err != nil {
		h.redirectLoginError(c, loginErrorInvalidState)
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		log.Printf("[OAuthHandler] Провайдер %s вернул отказ: %s", p.Name(), errParam)
		h.redirectLoginError(c, loginErrorProviderError)
		return
	}

	state := c.Query("state")
	if state == "" {
		h.redirectLoginError(c, loginErrorInvalidState)
		return
	}
	storedProvider, err := h.stateRepo.Consume(c.Request.Context(), state)
	if err != nil || storedProvider != p.Name() {
		log.Printf("[OAuthHandler] Неизвестный или чужой state для %s: %v", p.Name(), err)
		h.redirectLoginError(c, loginErrorInvalidState)
		return
	}

	profile, err := p.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		log.Printf("[OAuthHandler] Обмен кода у %s не удался: %v", p.Name(), err)
		h.redirectLoginError(c, loginErrorProviderError)
		return
	}

	user, err := h.linkingService.Resolve(c.Request.Context(), profile)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOAuthProfileIncomplete):
			h.redirectLoginError(c, loginErrorProfileIncomplete)
		case errors.Is(err, apperrors.ErrUnavailable):
			h.redirectLoginError(c, loginErrorServerError)
		default:
			log.Printf("[OAuthHandler] Резолв профиля %s/%s не удался: %v",
				profile.Provider, profile.ProviderAccountID, err)
			h.redirectLoginError(c, loginErrorServerError)
		}
		return
	}

	pair, err := h.tokenManager.IssueSession(user)
	if err != nil {
		log.Printf("[OAuthHandler] Не удалось выпустить сессию для ID=%d: %v", user.ID, err)
		h.redirectLoginError(c, loginErrorServerError)
		return
	}
	h.tokenManager.SetSessionCookies(c.Writer, pair)

	log.Printf("[OAuthHandler] Пользователь ID=%d вошёл через %s", user.ID, p.Name())
	c.Redirect(http.StatusFound, h.frontendURL+"/dashboard")
}

// Logout удаляет сессионные куки. Сессии stateless, на сервере гасить нечего.
// POST /api/auth/logout
func (h *OAuthHandler) Logout(c *gin.Context) {
	h.tokenManager.ClearSessionCookies(c.Writer)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *OAuthHandler) redirectLoginError(c *gin.Context, code string) {
	c.Redirect(http.StatusFound, h.frontendURL+"/login?error="+code)
}
