package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const githubProviderName = "github"

// GitHubConfig содержит настройки GitHub OAuth
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// GitHubProvider обменивает authorization code на access-токен GitHub и
// запрашивает профиль через REST API. GitHub не выдаёт ID-токен, поэтому
// email добирается отдельным запросом /user/emails, если в профиле его нет.
type GitHubProvider struct {
	cfg        GitHubConfig
	httpClient *http.Client
}

// NewGitHubProvider создает адаптер GitHub
func NewGitHubProvider(cfg GitHubConfig) (*GitHubProvider, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, fmt.Errorf("github client id and secret are required")
	}
	if strings.TrimSpace(cfg.RedirectURI) == "" {
		return nil, fmt.Errorf("github redirect uri is required")
	}
	return &GitHubProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (p *GitHubProvider) Name() string {
	return githubProviderName
}

// AuthCodeURL возвращает URL авторизации GitHub
func (p *GitHubProvider) AuthCodeURL(state string) string {
	values := url.Values{}
	values.Set("client_id", p.cfg.ClientID)
	values.Set("redirect_uri", p.cfg.RedirectURI)
	values.Set("scope", "read:user user:email")
	values.Set("state", state)
	return "https://github.com/login/oauth/authorize?" + values.Encode()
}

// Exchange обменивает code на access-токен и возвращает нормализованный профиль
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*ExternalProfile, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: code is required", ErrProviderExchange)
	}

	accessToken, err := p.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := p.fetchUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(user.Email)
	emailVerified := false
	if email == "" {
		// Публичный email часто скрыт; берём primary+verified из /user/emails
		email, emailVerified, err = p.fetchPrimaryEmail(ctx, accessToken)
		if err != nil {
			return nil, err
		}
	} else {
		// Email из публичного профиля GitHub не несёт флага верификации
		emailVerified = false
	}

	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = strings.TrimSpace(user.Login)
	}

	return &ExternalProfile{
		Provider:          githubProviderName,
		ProviderAccountID: strconv.FormatInt(user.ID, 10),
		Email:             email,
		DisplayName:       name,
		AvatarURL:         strings.TrimSpace(user.AvatarURL),
		EmailVerified:     emailVerified,
		AccessToken:       accessToken,
		// GitHub OAuth apps не выдают refresh-токен
		RefreshToken: "",
	}, nil
}

func (p *GitHubProvider) exchangeCode(ctx context.Context, code string) (string, error) {
	values := url.Values{}
	values.Set("client_id", p.cfg.ClientID)
	values.Set("client_secret", p.cfg.ClientSecret)
	values.Set("code", code)
	values.Set("redirect_uri", p.cfg.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://github.com/login/oauth/access_token", strings.NewReader(values.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create github token exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("github token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%w: github token exchange status=%d body=%s", ErrProviderExchange, resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken      string `json:"access_token"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to parse github token exchange response: %w", err)
	}
	if payload.Error != "" {
		return "", fmt.Errorf("%w: github token exchange error=%s: %s", ErrProviderExchange, payload.Error, payload.ErrorDescription)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: access_token not returned by github token exchange", ErrProviderExchange)
	}
	return payload.AccessToken, nil
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func (p *GitHubProvider) fetchUser(ctx context.Context, accessToken string) (*githubUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create github user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github user request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: github user status=%d body=%s", ErrProviderExchange, resp.StatusCode, string(body))
	}

	var user githubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to parse github user response: %w", err)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("%w: github user response missing id", ErrProviderExchange)
	}
	return &user, nil
}

func (p *GitHubProvider) fetchPrimaryEmail(ctx context.Context, accessToken string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user/emails", nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to create github emails request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("github emails request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Нет скоупа user:email — профиль придёт без email, решать резолверу
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
			return "", false, nil
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", false, fmt.Errorf("%w: github emails status=%d body=%s", ErrProviderExchange, resp.StatusCode, string(body))
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", false, fmt.Errorf("failed to parse github emails response: %w", err)
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return strings.TrimSpace(e.Email), true, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return strings.TrimSpace(e.Email), true, nil
		}
	}
	return "", false, nil
}
