package dto

import (
	"time"

	"github.com/yourusername/hosting-api/internal/domain/entity"
)

// UserDTO представляет пользователя в ответах API
type UserDTO struct {
	ID            uint       `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name,omitempty"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	VerifiedAt    *time.Time `json:"email_verified_at,omitempty"`
}

// LinkedAccountDTO представляет привязанный внешний аккаунт.
// Токены провайдера наружу не отдаются никогда.
type LinkedAccountDTO struct {
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"provider_account_id"`
	LinkedAt          time.Time `json:"linked_at"`
}

// UserListDTO представляет страницу пользователей для админки
type UserListDTO struct {
	Users    []UserDTO `json:"users"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// NewUserDTO конвертирует entity.User в DTO
func NewUserDTO(user *entity.User) UserDTO {
	return UserDTO{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		AvatarURL:     user.AvatarURL,
		Role:          user.Role,
		EmailVerified: user.EmailVerifiedAt != nil,
		CreatedAt:     user.CreatedAt,
		VerifiedAt:    user.EmailVerifiedAt,
	}
}

// NewLinkedAccountDTOs конвертирует аккаунты в DTO без токенов
func NewLinkedAccountDTOs(accounts []entity.Account) []LinkedAccountDTO {
	result := make([]LinkedAccountDTO, 0, len(accounts))
	for _, a := range accounts {
		result = append(result, LinkedAccountDTO{
			Provider:          a.Provider,
			ProviderAccountID: a.ProviderAccountID,
			LinkedAt:          a.CreatedAt,
		})
	}
	return result
}
