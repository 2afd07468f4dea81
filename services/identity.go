package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"birdhouse-viewer/be/config"
)

// Identity is what the OAuth provider vouches for on login. The backend
// trusts it and upserts the user row keyed by ExternalID.
type Identity struct {
	ExternalID string
	Email      string
	Name       string
}

// IdentityProvider verifies a provider-issued token and returns the identity
// behind it.
type IdentityProvider interface {
	Verify(token string) (*Identity, error)
}

// GoogleProvider verifies Google ID tokens against the tokeninfo endpoint.
type GoogleProvider struct {
	clientID   string
	httpClient *http.Client
	endpoint   string
}

func NewGoogleProvider(cfg config.OAuthConfig) *GoogleProvider {
	return &GoogleProvider{
		clientID:   cfg.GoogleClientID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   "https://oauth2.googleapis.com/tokeninfo",
	}
}

type tokenInfo struct {
	Sub      string `json:"sub"`
	Aud      string `json:"aud"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Verified string `json:"email_verified"`
}

func (g *GoogleProvider) Verify(token string) (*Identity, error) {
	resp, err := g.httpClient.Get(g.endpoint + "?id_token=" + url.QueryEscape(token))
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tokeninfo returned %d", resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("tokeninfo decode failed: %w", err)
	}

	if g.clientID != "" && info.Aud != g.clientID {
		return nil, fmt.Errorf("token audience mismatch")
	}
	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("token missing subject or email")
	}

	return &Identity{
		ExternalID: info.Sub,
		Email:      info.Email,
		Name:       info.Name,
	}, nil
}
