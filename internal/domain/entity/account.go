package entity

import "time"

// Account связывает локального пользователя с внешним OAuth-провайдером
// (google, github, facebook, microsoft, discord). Пара (provider,
// provider_account_id) глобально уникальна: одна внешняя личность
// привязывается ровно один раз.
type Account struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	UserID            uint   `gorm:"not null;index" json:"user_id"`
	Provider          string `gorm:"size:20;not null;uniqueIndex:idx_provider_account,priority:1" json:"provider"`
	ProviderAccountID string `gorm:"size:255;not null;uniqueIndex:idx_provider_account,priority:2" json:"provider_account_id"`

	// Токены провайдера перезаписываются при каждом входе через эту
	// внешнюю личность; нужны для последующих вызовов API провайдера.
	AccessToken  string `gorm:"size:2048;not null;default:''" json:"-"`
	RefreshToken string `gorm:"size:2048;not null;default:''" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}
