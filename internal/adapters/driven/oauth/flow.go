// Package oauth runs the Discord OAuth2 authorization code grant with PKCE.
package oauth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// Endpoint is Discord's OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// DefaultScopes cover what a dump needs from a bearer token.
var DefaultScopes = []string{"identify", "guilds"}

// Flow holds one authorization attempt. Each Flow has its own PKCE verifier
// and must not be reused.
type Flow struct {
	cfg      *oauth2.Config
	verifier string
}

// Config describes the registered application.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string

	// Endpoint overrides the Discord endpoint.
	Endpoint *oauth2.Endpoint
}

// NewFlow prepares an authorization attempt.
func NewFlow(cfg Config) (*Flow, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.RedirectURI == "" {
		return nil, errors.New("redirect URI is required")
	}
	endpoint := Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	return &Flow{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		verifier: oauth2.GenerateVerifier(),
	}, nil
}

// AuthCodeURL returns the consent page URL for state.
func (f *Flow) AuthCodeURL(state string) string {
	return f.cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(f.verifier))
}

// Exchange trades an authorization code for a token.
func (f *Flow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := f.cfg.Exchange(ctx, code, oauth2.VerifierOption(f.verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("token exchange: empty access token")
	}
	return tok, nil
}
