package provider

import "context"

// ExternalProfile — нормализованный профиль внешней личности. Каждый адаптер
// провайдера обязан привести свой ответ к этой форме до передачи в резолвер
// связывания аккаунтов; ветвления по провайдерам ниже этой границы нет.
type ExternalProfile struct {
	Provider          string
	ProviderAccountID string
	Email             string
	DisplayName       string
	AvatarURL         string
	EmailVerified     bool

	// Токены, выданные провайдером; сохраняются для последующих
	// вызовов его API
	AccessToken  string
	RefreshToken string
}

// Provider — контракт адаптера OAuth-провайдера. Адаптер возвращает только
// факты о личности; создание пользователей, привязка и сессии — не его дело.
type Provider interface {
	// Name возвращает идентификатор провайдера ("google", "github", ...)
	Name() string

	// AuthCodeURL возвращает URL авторизации провайдера для данного state
	AuthCodeURL(state string) string

	// Exchange обменивает authorization code на нормализованный профиль
	Exchange(ctx context.Context, code string) (*ExternalProfile, error)
}
