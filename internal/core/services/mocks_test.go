package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
)

// makeItems returns n items newest first, one minute apart, ending at base.
func makeItems(prefix string, n int, base time.Time) []domain.Item {
	items := make([]domain.Item, n)
	for i := 0; i < n; i++ {
		items[i] = domain.Item{
			ID:         fmt.Sprintf("%s-%04d", prefix, n-i),
			AuthorID:   "u1",
			AuthorName: "alice",
			Body:       fmt.Sprintf("hello number %d", n-i),
			CreatedAt:  base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return items
}

type sourceCall struct {
	containerID string
	before      string
	limit       int
}

// mockSource serves pages from a fixed history per container. Queued
// errors are returned one per call before any page is served; a nil
// entry serves the page normally.
type mockSource struct {
	mu      sync.Mutex
	history map[string][]domain.Item
	errs    map[string][]error
	calls   []sourceCall
	onCall  func(call sourceCall)
}

func newMockSource() *mockSource {
	return &mockSource{
		history: make(map[string][]domain.Item),
		errs:    make(map[string][]error),
	}
}

func (m *mockSource) ListMessages(_ context.Context, _, containerID, before string, limit int) ([]domain.Item, error) {
	m.mu.Lock()
	call := sourceCall{containerID: containerID, before: before, limit: limit}
	m.calls = append(m.calls, call)
	var queued error
	if q := m.errs[containerID]; len(q) > 0 {
		queued = q[0]
		m.errs[containerID] = q[1:]
	}
	all := m.history[containerID]
	hook := m.onCall
	m.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if queued != nil {
		return nil, queued
	}

	start := 0
	if before != "" {
		for i, it := range all {
			if it.ID == before {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	if start >= end {
		return nil, nil
	}
	page := make([]domain.Item, end-start)
	copy(page, all[start:end])
	return page, nil
}

func (m *mockSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockDirectory struct {
	account    domain.Account
	accountErr error
	scopes     []domain.Scope
	scopesErr  error
	containers map[string][]domain.Container
}

func (m *mockDirectory) CurrentAccount(_ context.Context, _ string) (domain.Account, error) {
	return m.account, m.accountErr
}

func (m *mockDirectory) Scopes(_ context.Context, _ string) ([]domain.Scope, error) {
	return m.scopes, m.scopesErr
}

func (m *mockDirectory) Containers(_ context.Context, _, scopeID string) ([]domain.Container, error) {
	return m.containers[scopeID], nil
}

type mockTokens struct {
	token string
	err   error
}

func (m *mockTokens) Token(_ context.Context) (string, error) {
	return m.token, m.err
}

type mockTextClassifier struct {
	mu       sync.Mutex
	category domain.Category
	err      error
	calls    []string
}

func (m *mockTextClassifier) ClassifyText(_ context.Context, text string) (domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, text)
	return m.category, m.err
}

type mockLLM struct {
	response string
	err      error
	prompts  []string
	opts     []driven.GenerateOptions
	block    bool
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return m.response, m.err
}

func (m *mockLLM) ModelName() string { return "mock-model" }

func (m *mockLLM) Ping(_ context.Context) error { return m.err }

func (m *mockLLM) Close() error { return nil }

type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("prompt not found")
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

type mockReporter struct {
	mu     sync.Mutex
	scopes []domain.ScopeSummary
	runs   []domain.Report
	done   chan struct{}
}

func newMockReporter() *mockReporter {
	return &mockReporter{done: make(chan struct{}, 1)}
}

func (m *mockReporter) ScopeFinished(_ context.Context, s domain.ScopeSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scopes = append(m.scopes, s)
}

func (m *mockReporter) RunFinished(_ context.Context, r domain.Report) {
	m.mu.Lock()
	m.runs = append(m.runs, r)
	m.mu.Unlock()
	select {
	case m.done <- struct{}{}:
	default:
	}
}

type mockRevealer struct {
	mu        sync.Mutex
	locations []string
}

func (m *mockRevealer) Reveal(_ context.Context, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, location)
	return nil
}

func (m *mockRevealer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locations)
}

type mockStream struct {
	ch  chan domain.LiveMessage
	err error
}

func (m *mockStream) Stream(_ context.Context, _ string) (<-chan domain.LiveMessage, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ch, nil
}

type staticSettings struct {
	settings domain.AppSettings
}

func (s *staticSettings) Get() (*domain.AppSettings, error) {
	cp := s.settings
	return &cp, nil
}

// sleepRecorder records requested pauses without waiting.
type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.calls = append(r.calls, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) durations() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.calls))
	copy(out, r.calls)
	return out
}

type countingMetrics struct {
	mu          sync.Mutex
	pages       int
	items       int
	rateLimited []time.Duration
	skipped     []string
	archived    domain.CategoryCounts
	writeFailed int
	remote      int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{archived: domain.NewCategoryCounts()}
}

func (m *countingMetrics) PageFetched(items int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages++
	m.items += items
}

func (m *countingMetrics) RateLimited(wait time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimited = append(m.rateLimited, wait)
}

func (m *countingMetrics) ContainerSkipped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped = append(m.skipped, reason)
}

func (m *countingMetrics) ItemArchived(c domain.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archived[c]++
}

func (m *countingMetrics) WriteFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeFailed++
}

func (m *countingMetrics) RemoteClassified(domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remote++
}
