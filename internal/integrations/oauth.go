// Package integrations holds the per-owner clients for Gmail, Google
// Calendar, and Hubspot. Each client is constructed against a TokenSource
// so expired access tokens refresh transparently.
package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/finclaw/internal/types"
)

// Token endpoints for the supported providers.
const (
	GoogleTokenURL  = "https://oauth2.googleapis.com/token"
	HubspotTokenURL = "https://api.hubapi.com/oauth/v1/token"
)

// OAuthApp identifies one registered OAuth application.
type OAuthApp struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// TokenSource produces a valid access token for one owner and provider,
// refreshing and persisting it when expired.
type TokenSource struct {
	store    types.CredentialStore
	owner    types.OwnerID
	provider string
	app      OAuthApp
	client   *http.Client
	now      func() time.Time
}

// NewTokenSource creates a TokenSource bound to one owner.
func NewTokenSource(store types.CredentialStore, owner types.OwnerID, provider string, app OAuthApp) *TokenSource {
	return &TokenSource{
		store:    store,
		owner:    owner,
		provider: provider,
		app:      app,
		client:   &http.Client{Timeout: 15 * time.Second},
		now:      time.Now,
	}
}

// AccessToken returns a usable access token, refreshing it first if the
// stored one has expired.
func (ts *TokenSource) AccessToken(ctx context.Context) (string, error) {
	token, err := ts.store.Token(ctx, ts.owner, ts.provider)
	if err != nil {
		return "", fmt.Errorf("load %s token: %w", ts.provider, err)
	}
	if !token.Expired(ts.now()) {
		return token.AccessToken, nil
	}
	if token.RefreshToken == "" {
		return "", fmt.Errorf("%s token expired and no refresh token stored", ts.provider)
	}

	refreshed, err := ts.refresh(ctx, token.RefreshToken)
	if err != nil {
		return "", err
	}
	if err := ts.store.SaveToken(ctx, refreshed); err != nil {
		return "", fmt.Errorf("save refreshed %s token: %w", ts.provider, err)
	}
	return refreshed.AccessToken, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (ts *TokenSource) refresh(ctx context.Context, refreshToken string) (*types.OAuthToken, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {ts.app.ClientID},
		"client_secret": {ts.app.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.app.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh %s token: %w", ts.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read refresh response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh %s token (status %d): %s", ts.provider, resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("parse refresh response: %w", err)
	}
	if tr.RefreshToken == "" {
		// Providers often omit the refresh token on refresh; keep the
		// one we have.
		tr.RefreshToken = refreshToken
	}

	return &types.OAuthToken{
		OwnerID:      ts.owner,
		Provider:     ts.provider,
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    ts.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
