package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_HomeFromEnv(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "home")
	t.Setenv(EnvHome, tmpDir)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
	assert.DirExists(t, tmpDir)
}

func TestDefaultDir(t *testing.T) {
	t.Setenv(EnvHome, "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}

	dir, err := DefaultDir()

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".chronicle"), dir)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("discord.token_type", "bot"))
	require.NoError(t, store.Set("fetch.page_size", 50))
	require.NoError(t, store.Set("classifier.use_remote", true))

	assert.Equal(t, "bot", store.GetString("discord.token_type"))
	assert.Equal(t, 50, store.GetInt("fetch.page_size"))
	assert.True(t, store.GetBool("classifier.use_remote"))

	// Wrong types and missing keys return zero values.
	assert.Equal(t, "", store.GetString("fetch.page_size"))
	assert.Equal(t, 0, store.GetInt("discord.token_type"))
	assert.False(t, store.GetBool("missing"))
	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("discord.token", "secret"))
	require.NoError(t, store.Set("fetch.page_size", 25))
	require.NoError(t, store.Set("fetch.page_delay_ms", 0))
	require.NoError(t, store.Set("archive.s3.use_ssl", false))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "secret", reopened.GetString("discord.token"))
	assert.Equal(t, 25, reopened.GetInt("fetch.page_size"))
	v, ok := reopened.Get("fetch.page_delay_ms")
	assert.True(t, ok)
	assert.EqualValues(t, 0, v)
	v, ok = reopened.Get("archive.s3.use_ssl")
	assert.True(t, ok)
	assert.Equal(t, false, v)
}

func TestConfigStore_WritesNestedTables(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("fetch.page_size", 25))
	require.NoError(t, store.Set("discord.token_type", "user"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[fetch]")
	assert.Contains(t, string(data), "[discord]")
	assert.NotContains(t, string(data), "'fetch.page_size'")
}

func TestConfigStore_Delete(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("discord.token", "secret"))
	require.NoError(t, store.Delete("discord.token"))
	require.NoError(t, store.Delete("never.set"))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	_, ok := reopened.Get("discord.token")
	assert.False(t, ok)
}

func TestConfigStore_KeyConflict(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("archive.s3.bucket", "dumps"))
	assert.ErrorIs(t, store.Set("archive.s3", "oops"), errKeyConflict)
}

func TestConfigStore_LoadsHandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[discord]
token_type = "bot"

[fetch]
page_size = 75
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "bot", store.GetString("discord.token_type"))
	assert.Equal(t, 75, store.GetInt("fetch.page_size"))
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not = [valid"), 0600))

	_, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), nil, 0600))

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NoError(t, store.Set("a.b", "c"))
	assert.Equal(t, "c", store.GetString("a.b"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Set("fetch.page_size", i)
			_ = store.GetInt("fetch.page_size")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("fetch.page_size")
	assert.True(t, ok)
}

func TestConfigStore_Watch(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx, func() { changed <- struct{}{} }) }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	other, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, other.Set("classifier.use_remote", true))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after external write")
	}
	assert.True(t, store.GetBool("classifier.use_remote"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
}
