package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewFlow_Validation(t *testing.T) {
	_, err := NewFlow(Config{RedirectURI: "http://localhost/callback"})
	assert.Error(t, err)

	_, err = NewFlow(Config{ClientID: "123"})
	assert.Error(t, err)
}

func TestFlow_AuthCodeURL(t *testing.T) {
	f, err := NewFlow(Config{ClientID: "123", RedirectURI: "http://localhost:53134/callback"})
	require.NoError(t, err)

	u, err := url.Parse(f.AuthCodeURL("state-1"))
	require.NoError(t, err)

	assert.Equal(t, "discord.com", u.Host)
	q := u.Query()
	assert.Equal(t, "123", q.Get("client_id"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "identify guilds", q.Get("scope"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
}

func TestFlow_Exchange(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-abc",
			"refresh_token": "refresh-def",
			"token_type":    "Bearer",
			"expires_in":    604800,
		})
	}))
	defer srv.Close()

	f, err := NewFlow(Config{
		ClientID:     "123",
		ClientSecret: "shh",
		RedirectURI:  "http://localhost:53134/callback",
		Endpoint:     &oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	})
	require.NoError(t, err)

	tok, err := f.Exchange(context.Background(), "code-xyz")

	require.NoError(t, err)
	assert.Equal(t, "access-abc", tok.AccessToken)
	assert.Equal(t, "refresh-def", tok.RefreshToken)
	assert.False(t, tok.Expiry.IsZero())
	assert.Equal(t, "code-xyz", form.Get("code"))
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "shh", form.Get("client_secret"))
	assert.Equal(t, f.verifier, form.Get("code_verifier"))
}

func TestFlow_Exchange_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid code"}`))
	}))
	defer srv.Close()

	f, err := NewFlow(Config{
		ClientID:    "123",
		RedirectURI: "http://localhost:53134/callback",
		Endpoint:    &oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	})
	require.NoError(t, err)

	_, err = f.Exchange(context.Background(), "bad")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}
