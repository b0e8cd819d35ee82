package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("discord.token_type", "bot"))

	val, ok := store.Get("discord.token_type")
	assert.True(t, ok)
	assert.Equal(t, "bot", val)
	assert.Equal(t, "bot", store.GetString("discord.token_type"))
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store := NewConfigStore()

	val, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.Empty(t, store.GetString("missing"))
	assert.Zero(t, store.GetInt("missing"))
	assert.False(t, store.GetBool("missing"))
}

func TestConfigStore_GetInt_Conversions(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"int", 100, 100},
		{"int64", int64(300), 300},
		{"float64 from toml", float64(45), 45},
		{"string", "500", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewConfigStore()
			require.NoError(t, store.Set("fetch.page_size", tt.value))
			assert.Equal(t, tt.want, store.GetInt("fetch.page_size"))
		})
	}
}

func TestConfigStore_GetBool_WrongType(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("classifier.use_remote", "true"))

	assert.False(t, store.GetBool("classifier.use_remote"))

	require.NoError(t, store.Set("classifier.use_remote", true))
	assert.True(t, store.GetBool("classifier.use_remote"))
}

func TestConfigStore_Delete(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("discord.token", "secret"))

	require.NoError(t, store.Delete("discord.token"))

	_, ok := store.Get("discord.token")
	assert.False(t, ok)

	// Deleting a missing key is not an error.
	assert.NoError(t, store.Delete("discord.token"))
}

func TestConfigStore_SaveLoadPath(t *testing.T) {
	store := NewConfigStore()

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key.%d", n)
			_ = store.Set(key, n)
			_ = store.GetInt(key)
			if n%5 == 0 {
				_ = store.Delete(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 7, store.GetInt("key.7"))
	_, ok := store.Get("key.10")
	assert.False(t, ok)
}
