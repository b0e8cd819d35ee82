package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chronicle/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/chronicle/internal/core/domain"
)

func TestLiveNames(t *testing.T) {
	tests := []struct {
		name          string
		msg           domain.LiveMessage
		wantScope     string
		wantContainer string
	}{
		{
			name:          "guild",
			msg:           domain.LiveMessage{Origin: domain.OriginGuild, ScopeName: "Cool", ContainerName: "general"},
			wantScope:     "Cool",
			wantContainer: "general",
		},
		{
			name:          "direct message",
			msg:           domain.LiveMessage{Origin: domain.OriginDM, Item: domain.Item{AuthorName: "bob"}},
			wantScope:     "DMs",
			wantContainer: "DM_bob",
		},
		{
			name:          "named group",
			msg:           domain.LiveMessage{Origin: domain.OriginGroupDM, ContainerID: "5", ContainerName: "friends"},
			wantScope:     "Group_DMs",
			wantContainer: "friends",
		},
		{
			name:          "unnamed group",
			msg:           domain.LiveMessage{Origin: domain.OriginGroupDM, ContainerID: "5"},
			wantScope:     "Group_DMs",
			wantContainer: "Group_5",
		},
		{
			name:          "unknown",
			msg:           domain.LiveMessage{Origin: domain.OriginUnknown, ContainerID: "77"},
			wantScope:     "Other",
			wantContainer: "Channel_77",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, container := LiveNames(tt.msg)
			assert.Equal(t, tt.wantScope, scope)
			assert.Equal(t, tt.wantContainer, container)
		})
	}
}

func newTestCollector(stream *mockStream, store *memory.ArchiveStore) *CollectorService {
	return NewCollectorService(CollectorDeps{
		Stream:    stream,
		Directory: &mockDirectory{account: domain.Account{ID: "1", Name: "me"}},
		Tokens:    &mockTokens{token: "tok"},
		Storage:   store,
		Settings:  &staticSettings{settings: domain.DefaultAppSettings()},
	})
}

func TestCollectorService_Run_ArchivesUntilStreamCloses(t *testing.T) {
	stream := &mockStream{ch: make(chan domain.LiveMessage, 3)}
	store := memory.NewArchiveStore()
	c := newTestCollector(stream, store)

	stream.ch <- domain.LiveMessage{
		Origin:        domain.OriginGuild,
		ScopeName:     "srv",
		ContainerName: "general",
		Item:          domain.Item{ID: "1", AuthorName: "alice", Body: "https://example.com", CreatedAt: testBase},
	}
	stream.ch <- domain.LiveMessage{
		Origin: domain.OriginDM,
		Item:   domain.Item{ID: "2", AuthorName: "bob", Body: "hey", CreatedAt: testBase},
	}
	close(stream.ch)

	require.NoError(t, c.Run(context.Background()))

	stats := c.Stats()
	assert.False(t, stats.Running)
	assert.Equal(t, 2, stats.Received)
	assert.Equal(t, 2, stats.Archived)
	assert.Equal(t, 1, stats.CategoryTotals[domain.CategoryLinks])
	assert.Equal(t, 1, stats.CategoryTotals[domain.CategoryConversations])

	_, ok := store.Get("me/alice/srv/Links/2026-03-14_15-09-26_https_example.com.txt")
	assert.True(t, ok)
	_, ok = store.Get("me/bob/DMs/Conversations/2026-03-14_15-09-26_hey.txt")
	assert.True(t, ok)
}

func TestCollectorService_Stop(t *testing.T) {
	stream := &mockStream{ch: make(chan domain.LiveMessage)}
	c := newTestCollector(stream, memory.NewArchiveStore())

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	require.Eventually(t, func() bool { return c.Stats().Running }, time.Second, 5*time.Millisecond)
	c.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop")
	}
	assert.False(t, c.Stats().Running)
}

func TestCollectorService_Run_RejectsSecondRun(t *testing.T) {
	stream := &mockStream{ch: make(chan domain.LiveMessage)}
	c := newTestCollector(stream, memory.NewArchiveStore())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()
	require.Eventually(t, func() bool { return c.Stats().Running }, time.Second, 5*time.Millisecond)

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
}

func TestCollectorService_Run_NoToken(t *testing.T) {
	c := NewCollectorService(CollectorDeps{
		Stream:  &mockStream{},
		Tokens:  &mockTokens{},
		Storage: memory.NewArchiveStore(),
	})

	assert.ErrorIs(t, c.Run(context.Background()), domain.ErrNoToken)
}

func TestCollectorService_Run_StreamError(t *testing.T) {
	c := newTestCollector(&mockStream{err: errors.New("gateway closed")}, memory.NewArchiveStore())

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.False(t, c.Stats().Running)
}

func TestCollectorService_Run_WriteFailureCounted(t *testing.T) {
	stream := &mockStream{ch: make(chan domain.LiveMessage, 1)}
	store := memory.NewArchiveStore()
	store.FailOn = func(string) error { return errors.New("disk full") }
	c := newTestCollector(stream, store)

	stream.ch <- domain.LiveMessage{Origin: domain.OriginUnknown, ContainerID: "9", Item: domain.Item{ID: "1", Body: "yo", CreatedAt: testBase}}
	close(stream.ch)

	require.NoError(t, c.Run(context.Background()))
	stats := c.Stats()
	assert.Equal(t, 1, stats.Received)
	assert.Equal(t, 0, stats.Archived)
	assert.Equal(t, 1, stats.WriteFailures)
}
