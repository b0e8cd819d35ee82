package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chronicle/internal/core/domain"
)

func newTestServer(t *testing.T, dump *mockDumpService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Dump: dump})
	require.NoError(t, err)
	return server
}

func TestServer_handleDumpStart(t *testing.T) {
	ctx := context.Background()

	t.Run("starts a run with the given options", func(t *testing.T) {
		dump := &mockDumpService{runID: "run-1"}
		server := newTestServer(t, dump)
		useRemote := true

		_, out, err := server.handleDumpStart(ctx, nil, DumpStartInput{
			MaxMessages: 50,
			UseRemote:   &useRemote,
			ServerIDs:   []string{"g1"},
			DryRun:      true,
		})

		require.NoError(t, err)
		assert.Equal(t, "run-1", out.RunID)
		assert.Equal(t, "started", out.Status)
		assert.Equal(t, 50, dump.opts.MaxItemsPerContainer)
		require.NotNil(t, dump.opts.UseRemote)
		assert.True(t, *dump.opts.UseRemote)
		assert.Equal(t, []string{"g1"}, dump.opts.ScopeIDs)
		assert.True(t, dump.opts.DryRun)
		assert.True(t, dump.opts.SkipReveal)
	})

	t.Run("rejects negative limit", func(t *testing.T) {
		server := newTestServer(t, &mockDumpService{})
		_, _, err := server.handleDumpStart(ctx, nil, DumpStartInput{MaxMessages: -1})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("propagates run in progress", func(t *testing.T) {
		server := newTestServer(t, &mockDumpService{err: domain.ErrRunInProgress})
		_, _, err := server.handleDumpStart(ctx, nil, DumpStartInput{})
		assert.ErrorIs(t, err, domain.ErrRunInProgress)
	})
}

func TestServer_handleDumpStop(t *testing.T) {
	dump := &mockDumpService{}
	server := newTestServer(t, dump)

	_, out, err := server.handleDumpStop(context.Background(), nil, EmptyInput{})

	require.NoError(t, err)
	assert.Equal(t, "stopping", out.Status)
	assert.True(t, dump.stopped)

	dump.err = domain.ErrNotRunning
	_, _, err = server.handleDumpStop(context.Background(), nil, EmptyInput{})
	assert.ErrorIs(t, err, domain.ErrNotRunning)
}

func TestServer_handleDumpProgress(t *testing.T) {
	counts := domain.NewCategoryCounts()
	counts[domain.CategoryLinks] = 4
	dump := &mockDumpService{
		snapshot: domain.ProgressSnapshot{
			Phase:                domain.RunPhaseRunning,
			RunID:                "run-1",
			Elapsed:              75 * time.Second,
			ScopesTotal:          2,
			ScopesDone:           1,
			CurrentScopeName:     "Cool",
			CurrentContainerName: "general",
			ContainersTotal:      10,
			ContainersDone:       5,
			ItemsTotal:           120,
			Percent:              50,
			CategoryTotals:       counts,
		},
	}
	server := newTestServer(t, dump)

	_, out, err := server.handleDumpProgress(context.Background(), nil, EmptyInput{})

	require.NoError(t, err)
	assert.Equal(t, "running", out.Phase)
	assert.Equal(t, "1m 15s", out.Elapsed)
	assert.Equal(t, "calculating...", out.ETA)
	assert.Equal(t, "Cool", out.CurrentScope)
	assert.Equal(t, 50, out.Percent)
	assert.Equal(t, 4, out.Categories["Links"])
	assert.Nil(t, out.LastReport)
}

func TestServer_handleDumpProgress_IdleWithReport(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	dump := &mockDumpService{
		snapshot: domain.ProgressSnapshot{Phase: domain.RunPhaseIdle},
		report: &domain.Report{
			RunID:           "run-0",
			Phase:           domain.RunPhaseCompleted,
			StartedAt:       start,
			FinishedAt:      start.Add(42 * time.Second),
			ItemsTotal:      9,
			ArchiveLocation: "/dumps",
			CategoryTotals:  domain.NewCategoryCounts(),
		},
	}
	server := newTestServer(t, dump)

	_, out, err := server.handleDumpProgress(context.Background(), nil, EmptyInput{})

	require.NoError(t, err)
	assert.Equal(t, "idle", out.Phase)
	assert.Empty(t, out.ETA)
	require.NotNil(t, out.LastReport)
	assert.Equal(t, "completed", out.LastReport.Phase)
	assert.Equal(t, "42s", out.LastReport.Duration)
	assert.Equal(t, 9, out.LastReport.Items)
}

func TestServer_handleListServers(t *testing.T) {
	dump := &mockDumpService{scopes: []domain.Scope{{ID: "g1", Name: "Cool"}, {ID: "g2", Name: "Quiet"}}}
	server := newTestServer(t, dump)

	_, out, err := server.handleListServers(context.Background(), nil, EmptyInput{})

	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, ServerOutput{ID: "g2", Name: "Quiet"}, out.Servers[1])

	dump.err = domain.ErrNoToken
	_, _, err = server.handleListServers(context.Background(), nil, EmptyInput{})
	assert.ErrorIs(t, err, domain.ErrNoToken)
}

func TestServer_handleListCategories(t *testing.T) {
	server := newTestServer(t, &mockDumpService{})

	_, out, err := server.handleListCategories(context.Background(), nil, EmptyInput{})

	require.NoError(t, err)
	require.Len(t, out.Categories, len(domain.AllCategories()))
	assert.Equal(t, "Images", out.Categories[0].Name)
	assert.NotEmpty(t, out.Categories[0].Description)
}

func TestServer_handleOpenArchive(t *testing.T) {
	dump := &mockDumpService{}
	server := newTestServer(t, dump)

	_, out, err := server.handleOpenArchive(context.Background(), nil, EmptyInput{})

	require.NoError(t, err)
	assert.Equal(t, "opened", out.Status)
	assert.True(t, dump.revealed)
}

func TestServer_handleDumpHistory(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	dump := &mockDumpService{runs: []domain.RunRecord{
		{ID: "r2", Phase: domain.RunPhaseFailed, StartedAt: start, Error: "boom"},
		{ID: "r1", Phase: domain.RunPhaseCompleted, StartedAt: start, FinishedAt: start.Add(time.Minute), ItemsTotal: 3},
	}}
	server := newTestServer(t, dump)

	_, out, err := server.handleDumpHistory(context.Background(), nil, HistoryInput{})

	require.NoError(t, err)
	assert.Equal(t, defaultHistoryLimit, dump.limit)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "boom", out.Runs[0].Error)
	assert.Empty(t, out.Runs[0].FinishedAt)
	assert.Equal(t, "2026-01-02T03:05:05Z", out.Runs[1].FinishedAt)

	_, _, err = server.handleDumpHistory(context.Background(), nil, HistoryInput{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, dump.limit)
}
