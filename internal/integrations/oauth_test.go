package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/finclaw/internal/store/memory"
	"github.com/user/finclaw/internal/types"
)

func TestTokenSourceReturnsValidToken(t *testing.T) {
	ts := testTokenSource(t, types.ProviderGoogle)

	token, err := ts.AccessToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if token != "valid-token" {
		t.Errorf("unexpected token: %q", token)
	}
}

func TestTokenSourceRefreshesExpired(t *testing.T) {
	var form map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		form = r.PostForm
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh-token",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	st := memory.New()
	owner := types.OwnerID("owner-1")
	err := st.SaveToken(context.Background(), &types.OAuthToken{
		OwnerID:      owner,
		Provider:     types.ProviderGoogle,
		AccessToken:  "stale-token",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	ts := NewTokenSource(st, owner, types.ProviderGoogle, OAuthApp{
		ClientID:     "cid",
		ClientSecret: "secret",
		TokenURL:     server.URL,
	})

	token, err := ts.AccessToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if token != "fresh-token" {
		t.Errorf("unexpected token: %q", token)
	}
	if form["grant_type"][0] != "refresh_token" || form["refresh_token"][0] != "refresh-1" {
		t.Errorf("unexpected refresh form: %v", form)
	}

	// The refreshed token is persisted and the refresh token survives.
	saved, err := st.Token(context.Background(), owner, types.ProviderGoogle)
	if err != nil {
		t.Fatal(err)
	}
	if saved.AccessToken != "fresh-token" || saved.RefreshToken != "refresh-1" {
		t.Errorf("refreshed token not persisted: %+v", saved)
	}
}

func TestTokenSourceExpiredWithoutRefresh(t *testing.T) {
	st := memory.New()
	owner := types.OwnerID("owner-1")
	err := st.SaveToken(context.Background(), &types.OAuthToken{
		OwnerID:     owner,
		Provider:    types.ProviderGoogle,
		AccessToken: "stale-token",
		ExpiresAt:   time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	ts := NewTokenSource(st, owner, types.ProviderGoogle, OAuthApp{})
	if _, err := ts.AccessToken(context.Background()); err == nil {
		t.Fatal("expected error for expired token without refresh token")
	}
}
