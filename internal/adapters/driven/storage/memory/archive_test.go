package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveStore_PutAndStats(t *testing.T) {
	store := NewArchiveStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "acc/b.txt", []byte("hello")))
	require.NoError(t, store.Put(ctx, "acc/a.txt", []byte("hi")))

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.Equal(t, 2, st.Files)
	assert.Equal(t, int64(7), st.Bytes)
	assert.Equal(t, ":memory:", st.Location)
	assert.Equal(t, []string{"acc/a.txt", "acc/b.txt"}, store.Keys())
}

func TestArchiveStore_Put_CopiesData(t *testing.T) {
	store := NewArchiveStore()
	data := []byte("abc")
	require.NoError(t, store.Put(context.Background(), "k", data))
	data[0] = 'x'

	got, ok := store.Get("k")
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))
}

func TestArchiveStore_FailOn(t *testing.T) {
	store := NewArchiveStore()
	store.FailOn = func(key string) error {
		if strings.Contains(key, "_ByCategory") {
			return errors.New("disk full")
		}
		return nil
	}

	assert.NoError(t, store.Put(context.Background(), "acc/u/s/Links/x.txt", nil))
	assert.Error(t, store.Put(context.Background(), "acc/_ByCategory/Links/x.txt", nil))
	assert.Len(t, store.Keys(), 1)
}

func TestArchiveStore_Put_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewArchiveStore().Put(ctx, "k", []byte("v"))
	assert.ErrorIs(t, err, context.Canceled)
}
