package infra

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tnqbao/gau-asset-service/config"
)

// AuthorizationService validates access tokens against the remote
// authorization service before local claims are trusted.
type AuthorizationService struct {
	AuthorizationServiceURL string
	PrivateKey              string
	client                  *http.Client
}

// InitAuthorizationService returns nil when no remote validator is configured.
func InitAuthorizationService(cfg *config.EnvConfig) *AuthorizationService {
	if cfg.ExternalService.AuthorizationServiceURL == "" {
		return nil
	}
	if cfg.PrivateKey == "" {
		panic("Private key is not configured")
	}
	return &AuthorizationService{
		AuthorizationServiceURL: cfg.ExternalService.AuthorizationServiceURL,
		PrivateKey:              cfg.PrivateKey,
		client:                  &http.Client{Timeout: 5 * time.Second},
	}
}

func (a *AuthorizationService) CheckAccessToken(ctx context.Context, token string) error {
	endpoint := fmt.Sprintf("%s/api/v2/authorization/token/validate?token=%s", a.AuthorizationServiceURL, url.QueryEscape(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Private-Key", a.PrivateKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("invalid token: %s", string(raw))
	}

	return nil
}
