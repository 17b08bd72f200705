package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/hosting-api/internal/domain/entity"
	"github.com/yourusername/hosting-api/internal/domain/repository"
	apperrors "github.com/yourusername/hosting-api/internal/pkg/errors"
	"github.com/yourusername/hosting-api/pkg/auth"
	"github.com/yourusername/hosting-api/pkg/auth/manager"
)

// Ключи контекста, устанавливаемые guard'ами
const (
	ContextUserKey   = "user"
	ContextUserIDKey = "user_id"
	ContextEmailKey  = "email"
	ContextRoleKey   = "role"
)

// AuthMiddleware — семейство guard'ов для защищённых маршрутов. Каждый
// режим самодостаточен: извлечение токена, проверка подписи и свежая
// загрузка пользователя из хранилища на каждый запрос. Кеша нет намеренно:
// смена роли или удаление аккаунта действует со следующего же запроса.
type AuthMiddleware struct {
	tokenService *auth.TokenService
	tokenManager *manager.TokenManager
	userRepo     repository.UserRepository
}

// NewAuthMiddleware создает новый middleware аутентификации
func NewAuthMiddleware(tokenService *auth.TokenService, tokenManager *manager.TokenManager, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		tokenManager: tokenManager,
		userRepo:     userRepo,
	}
}

// authenticate выполняет общую часть всех guard'ов: кука/заголовок →
// проверка токена → загрузка пользователя. Возвращает nil и пишет отказ
// в ответ, если запрос не прошёл.
func (m *AuthMiddleware) authenticate(c *gin.Context) *entity.User {
	credential, ok := m.tokenManager.ExtractCredential(c.Request)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "error_type": "auth_required"})
		c.Abort()
		return nil
	}

	claims, err := m.tokenService.Verify(credential)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token", "error_type": "token_invalid"})
		c.Abort()
		return nil
	}

	// Из токена доверяем только user_id как ключу поиска; роль и профиль
	// всегда берутся из хранилища
	user, err := m.userRepo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		// Сбой хранилища — не решение об авторизации: 503, а не 401
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[AuthMiddleware] Хранилище недоступно при загрузке пользователя ID=%d: %v", claims.UserID, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable", "error_type": "unavailable"})
			c.Abort()
			return nil
		}
		log.Printf("[AuthMiddleware] Пользователь ID=%d из валидного токена не найден: %v", claims.UserID, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found", "error_type": "user_not_found"})
		c.Abort()
		return nil
	}

	c.Set(ContextUserKey, user)
	c.Set(ContextUserIDKey, user.ID)
	c.Set(ContextEmailKey, user.Email)
	c.Set(ContextRoleKey, user.Role)
	return user
}

// RequireAuth пропускает только аутентифицированных пользователей
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := m.authenticate(c); user != nil {
			c.Next()
		}
	}
}

// AdminOnly пропускает только администраторов
func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := m.authenticate(c)
		if user == nil {
			return
		}
		if !user.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required", "error_type": "forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// SupportOrAdmin пропускает сотрудников поддержки и администраторов
func (m *AuthMiddleware) SupportOrAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := m.authenticate(c)
		if user == nil {
			return
		}
		if !user.IsSupportOrAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "support or admin access required", "error_type": "forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth пропускает запрос в любом случае; пользователь попадает
// в контекст только если credential валиден и строка в БД жива. Любой
// дефект — тихий проход как аноним, без отказа.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		credential, ok := m.tokenManager.ExtractCredential(c.Request)
		if !ok {
			c.Next()
			return
		}
		claims, err := m.tokenService.Verify(credential)
		if err != nil {
			c.Next()
			return
		}
		user, err := m.userRepo.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.Next()
			return
		}
		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextEmailKey, user.Email)
		c.Set(ContextRoleKey, user.Role)
		c.Next()
	}
}

// CurrentUser возвращает пользователя, положенного guard'ом в контекст
func CurrentUser(c *gin.Context) (*entity.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*entity.User)
	return user, ok
}
