package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/hosting-api/internal/pkg/errors"
)

type fakeProvider struct {
	name string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://example.com/authorize?state=" + state
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*ExternalProfile, error) {
	return &ExternalProfile{Provider: f.name, ProviderAccountID: "x"}, nil
}

func TestRegistry_GetKnownProvider(t *testing.T) {
	reg := NewRegistry(&fakeProvider{name: "google"}, &fakeProvider{name: "github"})

	p, err := reg.Get("google")
	require.NoError(t, err)
	assert.Equal(t, "google", p.Name())
}

func TestRegistry_GetUnknownProvider(t *testing.T) {
	reg := NewRegistry(&fakeProvider{name: "google"})

	p, err := reg.Get("facebook")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, p)
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry(&fakeProvider{name: "google"}, &fakeProvider{name: "github"})

	names := reg.Names()
	assert.ElementsMatch(t, []string{"google", "github"}, names)
}

func TestGitHubAuthCodeURL_CarriesState(t *testing.T) {
	p, err := NewGitHubProvider(GitHubConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost/cb",
	})
	require.NoError(t, err)

	url := p.AuthCodeURL("state-123")
	assert.Contains(t, url, "https://github.com/login/oauth/authorize?")
	assert.Contains(t, url, "state=state-123")
	assert.Contains(t, url, "client_id=id")
}

func TestGoogleAuthCodeURL_CarriesState(t *testing.T) {
	p, err := NewGoogleProvider(GoogleConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost/cb",
	})
	require.NoError(t, err)

	url := p.AuthCodeURL("state-123")
	assert.Contains(t, url, "https://accounts.google.com/o/oauth2/v2/auth?")
	assert.Contains(t, url, "state=state-123")
	assert.Contains(t, url, "response_type=code")
}
