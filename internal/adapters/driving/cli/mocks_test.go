package cli

import (
	"context"

	oauthcb "github.com/custodia-labs/chronicle/internal/adapters/driving/oauth"
	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driving"
)

// mockDumpService implements driving.DumpService for CLI tests.
type mockDumpService struct {
	opts     domain.RunOptions
	report   *domain.Report
	runErr   error
	scopes   []domain.Scope
	check    *driving.CheckResult
	runs     []domain.RunRecord
	limit    int
	revealed bool
	err      error
}

func (m *mockDumpService) Run(_ context.Context, opts domain.RunOptions) (*domain.Report, error) {
	m.opts = opts
	if m.runErr != nil {
		return nil, m.runErr
	}
	if m.report == nil {
		return &domain.Report{Phase: domain.RunPhaseCompleted}, nil
	}
	return m.report, nil
}

func (m *mockDumpService) Start(_ context.Context, opts domain.RunOptions) (string, error) {
	m.opts = opts
	return "run-1", m.runErr
}

func (m *mockDumpService) Stop() error { return nil }

func (m *mockDumpService) Progress() domain.ProgressSnapshot {
	return domain.ProgressSnapshot{Phase: domain.RunPhaseIdle}
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
	return m.check, m.err
}

// mockCollectorService implements driving.CollectorService for CLI tests.
type mockCollectorService struct {
	stats driving.CollectorStats
	err   error
	ran   bool
}

func (m *mockCollectorService) Run(_ context.Context) error {
	m.ran = true
	return m.err
}

func (m *mockCollectorService) Stop() {}

func (m *mockCollectorService) Stats() driving.CollectorStats {
	return m.stats
}

// mockSettingsService implements driving.SettingsService for CLI tests.
type mockSettingsService struct {
	settings    domain.AppSettings
	entries     []driving.SettingEntry
	validateErr error
	setErr      error

	setKey, setValue string
	token            string
	tokenType        domain.TokenType
	cleared          bool
}

func newMockSettings() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) SetValue(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.setKey, m.setValue = key, value
	return nil
}

func (m *mockSettingsService) SetToken(token string, tokenType domain.TokenType) error {
	m.token, m.tokenType = token, tokenType
	return nil
}

func (m *mockSettingsService) ClearToken() error {
	m.cleared = true
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) Keys() ([]driving.SettingEntry, error) {
	return m.entries, nil
}

// fakeArchive reports fixed stats.
type fakeArchive struct {
	stats domain.ArchiveStats
	err   error
}

func (f fakeArchive) Stats(_ context.Context) (domain.ArchiveStats, error) {
	return f.stats, f.err
}

// setupServices installs s for the duration of a test and resets flags.
func setupServices(s *Services) func() {
	oldDump, oldCollector, oldSettings := dumpService, collectorService, settingsService
	oldArchives, oldMetrics, oldWatch, oldSource := archiveRoots, metricsHandler, watchConfig, tokenSource
	oldBootstrap := bootstrapFn

	bootstrapFn = nil
	dumpService, collectorService, settingsService = nil, nil, nil
	archiveRoots, metricsHandler, watchConfig, tokenSource = nil, nil, nil, nil
	SetServices(s)

	return func() {
		dumpService, collectorService, settingsService = oldDump, oldCollector, oldSettings
		archiveRoots, metricsHandler, watchConfig, tokenSource = oldArchives, oldMetrics, oldWatch, oldSource
		bootstrapFn = oldBootstrap

		dumpMaxMessages, dumpAI, dumpNoAI, dumpServers = 0, false, false, nil
		dumpDryRun, dumpTUI, dumpNoOpen, dumpHistoryMax = false, false, false, 10
		authLoginBot, authLoginType = false, ""
		authLoginOAuth, authLoginClientID, authLoginPort = false, "", oauthcb.DefaultPort
		configDir, verbose = "", false
		serveAddr, mcpHTTPAddr = "", ""
	}
}
