package mcp

import (
	"context"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driving"
)

// mockDumpService is a mock implementation of driving.DumpService.
type mockDumpService struct {
	runID    string
	opts     domain.RunOptions
	snapshot domain.ProgressSnapshot
	report   *domain.Report
	scopes   []domain.Scope
	runs     []domain.RunRecord
	limit    int
	revealed bool
	stopped  bool
	err      error
}

func (m *mockDumpService) Run(_ context.Context, opts domain.RunOptions) (*domain.Report, error) {
	m.opts = opts
	return m.report, m.err
}

func (m *mockDumpService) Start(_ context.Context, opts domain.RunOptions) (string, error) {
	m.opts = opts
	return m.runID, m.err
}

func (m *mockDumpService) Stop() error {
	m.stopped = true
	return m.err
}

func (m *mockDumpService) Progress() domain.ProgressSnapshot {
	return m.snapshot
}

func (m *mockDumpService) LastReport() (*domain.Report, bool) {
	return m.report, m.report != nil
}

func (m *mockDumpService) ListScopes(_ context.Context) ([]domain.Scope, error) {
	return m.scopes, m.err
}

func (m *mockDumpService) Categories() []domain.Category {
	return domain.AllCategories()
}

func (m *mockDumpService) RevealArchive(_ context.Context) error {
	m.revealed = true
	return m.err
}

func (m *mockDumpService) History(_ context.Context, limit int) ([]domain.RunRecord, error) {
	m.limit = limit
	return m.runs, m.err
}

func (m *mockDumpService) Check(_ context.Context) (*driving.CheckResult, error) {
	return &driving.CheckResult{}, m.err
}
