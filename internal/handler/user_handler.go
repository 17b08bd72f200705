package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/hosting-api/internal/handler/dto"
	"github.com/yourusername/hosting-api/internal/middleware"
	apperrors "github.com/yourusername/hosting-api/internal/pkg/errors"
	"github.com/yourusername/hosting-api/internal/service"
)

// UserHandler обрабатывает запросы пользователей, саппорта и админки
type UserHandler struct {
	userService         *service.UserService
	verificationService *service.EmailVerificationService
}

// NewUserHandler создает новый обработчик пользователей
func NewUserHandler(userService *service.UserService, verificationService *service.EmailVerificationService) *UserHandler {
	return &UserHandler{
		userService:         userService,
		verificationService: verificationService,
	}
}

// ChangeRoleRequest представляет запрос на смену роли
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ConfirmEmailRequest представляет запрос на подтверждение кода
type ConfirmEmailRequest struct {
	Code string `json:"code" binding:"required,len=6"`
}

// GetMe возвращает текущего пользователя с привязанными аккаунтами
// GET /api/users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "error_type": "auth_required"})
		return
	}

	user, accounts, err := h.userService.GetWithAccounts(c.Request.Context(), current.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     dto.NewUserDTO(user),
		"accounts": dto.NewLinkedAccountDTOs(accounts),
	})
}

// Session — анонимно-безопасная проба сессии (optional guard)
// GET /api/session
func (h *UserHandler) Session(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	userDTO := dto.NewUserDTO(user)
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": userDTO})
}

// SendVerificationCode отправляет код подтверждения на email текущего пользователя
// POST /api/users/me/verify-email
func (h *UserHandler) SendVerificationCode(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "error_type": "auth_required"})
		return
	}

	if err := h.verificationService.SendCode(c.Request.Context(), current.ID); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
}

// ConfirmVerificationCode подтверждает email по коду
// POST /api/users/me/verify-email/confirm
func (h *UserHandler) ConfirmVerificationCode(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "error_type": "auth_required"})
		return
	}

	var req ConfirmEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	if err := h.verificationService.ConfirmCode(c.Request.Context(), current.ID, req.Code); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}

// ListUsers возвращает страницу пользователей (админка)
// GET /api/admin/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	users, total, err := h.userService.List(c.Request.Context(), page, pageSize)
	if err != nil {
		h.handleError(c, err)
		return
	}

	userDTOs := make([]dto.UserDTO, 0, len(users))
	for i := range users {
		userDTOs = append(userDTOs, dto.NewUserDTO(&users[i]))
	}
	c.JSON(http.StatusOK, dto.UserListDTO{
		Users:    userDTOs,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// ChangeRole меняет роль пользователя (админка)
// PUT /api/admin/users/:id/role
func (h *UserHandler) ChangeRole(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id", "error_type": "validation_error"})
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	user, err := h.userService.ChangeRole(c.Request.Context(), uint(userID), req.Role)
	if err != nil {
		h.handleError(c, err)
		return
	}

	log.Printf("[UserHandler] Роль пользователя ID=%d изменена на %s", user.ID, user.Role)
	c.JSON(http.StatusOK, gin.H{"user": dto.NewUserDTO(user)})
}

// GetUser возвращает пользователя по ID (саппорт, контекст тикета)
// GET /api/support/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id", "error_type": "validation_error"})
		return
	}

	user, accounts, err := h.userService.GetWithAccounts(c.Request.Context(), uint(userID))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     dto.NewUserDTO(user),
		"accounts": dto.NewLinkedAccountDTOs(accounts),
	})
}

// handleError переводит ошибки сервисов в HTTP-ответы со стабильным error_type
func (h *UserHandler) handleError(c *gin.Context, err error) {
	log.Printf("[UserHandler] Error: %v", err)

	switch {
	case errors.Is(err, service.ErrVerificationResendCooldown):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "please wait before requesting a new code", "error_type": "verification_resend_cooldown"})
	case errors.Is(err, service.ErrVerificationExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "verification code expired", "error_type": "verification_expired"})
	case errors.Is(err, service.ErrVerificationAttemptsExceeded):
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many attempts, request a new code", "error_type": "verification_attempts_exceeded"})
	case errors.Is(err, service.ErrInvalidVerificationCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid verification code", "error_type": "invalid_verification_code"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found", "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "data conflict", "error_type": "conflict"})
	case errors.Is(err, apperrors.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable", "error_type": "unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "error_type": "internal_server_error"})
	}
}
