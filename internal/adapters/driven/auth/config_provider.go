package auth

import (
	"context"
	"os"
	"strings"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
)

// Ensure ConfigTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*ConfigTokenProvider)(nil)

// EnvToken overrides the stored token when set.
//
//nolint:gosec // G101: environment variable name, not a credential.
const EnvToken = "CHRONICLE_TOKEN"

// TokenKey is the config key the token is stored under.
//
//nolint:gosec // G101: config key name, not a credential.
const TokenKey = "discord.token"

// ConfigTokenProvider reads the token from the environment, then from
// the config store. The store is consulted on every call so a login in
// another process is picked up after a config reload.
type ConfigTokenProvider struct {
	store  driven.ConfigStore
	getenv func(string) string
}

// NewConfigTokenProvider creates a token provider backed by the config store.
func NewConfigTokenProvider(store driven.ConfigStore) *ConfigTokenProvider {
	return &ConfigTokenProvider{store: store, getenv: os.Getenv}
}

// Token returns the environment token if set, otherwise the stored one.
func (p *ConfigTokenProvider) Token(_ context.Context) (string, error) {
	if t := strings.TrimSpace(p.getenv(EnvToken)); t != "" {
		return t, nil
	}
	if p.store == nil {
		return "", domain.ErrNoToken
	}
	if t := strings.TrimSpace(p.store.GetString(TokenKey)); t != "" {
		return t, nil
	}
	return "", domain.ErrNoToken
}

// Source describes where the token comes from: "env", "config" or "".
func (p *ConfigTokenProvider) Source() string {
	if strings.TrimSpace(p.getenv(EnvToken)) != "" {
		return "env"
	}
	if p.store != nil && strings.TrimSpace(p.store.GetString(TokenKey)) != "" {
		return "config"
	}
	return ""
}
