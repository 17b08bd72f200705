package entity

import "time"

// Роли пользователей панели управления
const (
	RoleUser    = "user"
	RoleSupport = "support"
	RoleAdmin   = "admin"
)

// User представляет пользователя панели хостинга.
// Email глобально уникален; роль ровно одна в каждый момент времени.
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Email     string `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Name      string `gorm:"size:100;not null;default:''" json:"name"`
	AvatarURL string `gorm:"size:255;not null;default:''" json:"avatar_url"`
	Role      string `gorm:"size:20;not null;default:'user'" json:"role"` // "user", "support" или "admin"

	EmailVerifiedAt *time.Time `gorm:"type:timestamp" json:"email_verified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// IsAdmin возвращает true, если пользователь — администратор
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsSupportOrAdmin возвращает true для сотрудников поддержки и администраторов
func (u *User) IsSupportOrAdmin() bool {
	return u.Role == RoleSupport || u.Role == RoleAdmin
}

// ValidRole проверяет, что строка является допустимой ролью
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleSupport, RoleAdmin:
		return true
	default:
		return false
	}
}
