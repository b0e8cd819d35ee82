package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chronicle/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/chronicle/internal/core/domain"
)

func fakeEnv(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestConfigTokenProvider_FromConfig(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set(TokenKey, " stored-token ")
	p := NewConfigTokenProvider(store)
	p.getenv = fakeEnv(nil)

	tok, err := p.Token(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "stored-token", tok)
	assert.Equal(t, "config", p.Source())
}

func TestConfigTokenProvider_EnvOverrides(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set(TokenKey, "stored-token")
	p := NewConfigTokenProvider(store)
	p.getenv = fakeEnv(map[string]string{EnvToken: "env-token"})

	tok, err := p.Token(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "env-token", tok)
	assert.Equal(t, "env", p.Source())
}

func TestConfigTokenProvider_Missing(t *testing.T) {
	p := NewConfigTokenProvider(memory.NewConfigStore())
	p.getenv = fakeEnv(nil)

	_, err := p.Token(context.Background())

	assert.ErrorIs(t, err, domain.ErrNoToken)
	assert.Empty(t, p.Source())
}

func TestConfigTokenProvider_PicksUpChanges(t *testing.T) {
	store := memory.NewConfigStore()
	p := NewConfigTokenProvider(store)
	p.getenv = fakeEnv(nil)

	_, err := p.Token(context.Background())
	require.ErrorIs(t, err, domain.ErrNoToken)

	_ = store.Set(TokenKey, "later")
	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "later", tok)
}
