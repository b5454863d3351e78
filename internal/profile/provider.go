package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2/clientcredentials"
)

// RemoteProfile is the identity service's view of a user.
type RemoteProfile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar_url"`
}

// Provider fetches profiles from the external identity service using a
// client-credentials grant. Read-only; this service never writes identity
// data.
type Provider struct {
	baseURL string
	client  *http.Client
}

type ProviderConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
}

func NewProvider(cfg ProviderConfig) *Provider {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       []string{"profile.read"},
	}
	return &Provider{
		baseURL: cfg.BaseURL,
		client:  cc.Client(context.Background()),
	}
}

func (p *Provider) Fetch(ctx context.Context, userID string) (*RemoteProfile, error) {
	url := fmt.Sprintf("%s/v1/users/%s/profile", p.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("identity service returned %d: %s", resp.StatusCode, string(body))
	}

	var remote RemoteProfile
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &remote, nil
}
