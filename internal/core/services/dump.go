package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
	"github.com/custodia-labs/chronicle/internal/core/ports/driving"
	"github.com/custodia-labs/chronicle/internal/logger"
)

// Ensure DumpService implements the interface.
var _ driving.DumpService = (*DumpService)(nil)

// SettingsReader provides the current settings. It is re-read at the
// start of every run so edits take effect without a restart.
type SettingsReader interface {
	Get() (*domain.AppSettings, error)
}

// DumpDeps wires the dump service.
type DumpDeps struct {
	// Required.
	Directory  driven.Directory
	Source     driven.MessageSource
	Tokens     driven.TokenProvider
	Storage    driven.ArchiveStorage
	Classifier *Classifier
	Settings   SettingsReader

	// Optional.
	LLM           driven.LLMService
	Reporter      driven.Reporter
	Revealer      driven.Revealer
	Runs          driven.RunStore
	Metrics       driven.PipelineMetrics
	DryRunStorage func() driven.ArchiveStorage

	// Now and Sleep default to the real clock.
	Now   func() time.Time
	Sleep SleepFunc
}

// DumpService is the pipeline orchestrator.
//
// State machine: idle -> running -> {completed, cancelled, failed} -> idle.
// A single mutex guards the transition into running, so a second start
// request is rejected rather than queued. The run itself is one
// sequential worker: servers in listing order, channels by position,
// messages in retrieval order.
type DumpService struct {
	deps       DumpDeps
	classifier *Classifier
	metrics    driven.PipelineMetrics
	now        func() time.Time
	sleep      SleepFunc

	mu    sync.RWMutex
	state runState
	last  *domain.Report
}

// runState is the live state of one run. It is reset when the run ends.
type runState struct {
	phase           domain.RunPhase
	runID           string
	cancelRequested bool
	startedAt       time.Time
	account         string
	dryRun          bool

	scopesTotal       int
	scopesDone        int
	currentScope      string
	containersInScope int
	containerIndex    int
	currentContainer  string

	tracker        *ProgressTracker
	itemsTotal     int
	categoryTotals domain.CategoryCounts
	skipped        int
	writeFailures  int
}

// runPlan is everything resolved before pagination starts.
type runPlan struct {
	id        string
	token     string
	account   domain.Account
	scopes    []scopePlan
	opts      domain.RunOptions
	useRemote bool
	maxItems  int
	fetch     domain.FetchSettings
	writer    *ArchiveWriter
}

type scopePlan struct {
	scope      domain.Scope
	containers []domain.Container
}

// NewDumpService creates a dump service.
func NewDumpService(deps DumpDeps) *DumpService {
	s := &DumpService{
		deps:       deps,
		classifier: deps.Classifier,
		metrics:    deps.Metrics,
		now:        deps.Now,
		sleep:      deps.Sleep,
		state:      runState{phase: domain.RunPhaseIdle},
	}
	if s.classifier == nil {
		s.classifier = NewClassifier(nil, deps.Metrics)
	}
	if s.metrics == nil {
		s.metrics = driven.NopMetrics{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sleep == nil {
		s.sleep = SleepContext
	}
	return s
}

// Run executes a dump and blocks until it finishes.
func (s *DumpService) Run(ctx context.Context, opts domain.RunOptions) (*domain.Report, error) {
	plan, err := s.preflight(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, plan), nil
}

// Start runs the preflight synchronously and the dump in the background.
// The returned run ID identifies the run in history.
func (s *DumpService) Start(ctx context.Context, opts domain.RunOptions) (string, error) {
	plan, err := s.preflight(ctx, opts)
	if err != nil {
		return "", err
	}
	go s.execute(context.WithoutCancel(ctx), plan)
	return plan.id, nil
}

// Stop requests cooperative cancellation. The channel in flight is
// finished; no further page request, channel or server is started.
func (s *DumpService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.phase != domain.RunPhaseRunning {
		return domain.ErrNotRunning
	}
	if !s.state.cancelRequested {
		logger.Info("cancellation requested for run %s", s.state.runID)
	}
	s.state.cancelRequested = true
	return nil
}

// Progress returns a snapshot of the active run, or an idle snapshot.
func (s *DumpService) Progress() domain.ProgressSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	if st.phase != domain.RunPhaseRunning {
		return domain.ProgressSnapshot{
			Phase:          domain.RunPhaseIdle,
			CategoryTotals: domain.NewCategoryCounts(),
		}
	}

	snap := domain.ProgressSnapshot{
		Phase:                 st.phase,
		RunID:                 st.runID,
		StartedAt:             st.startedAt,
		Elapsed:               s.now().Sub(st.startedAt),
		ScopesTotal:           st.scopesTotal,
		ScopesDone:            st.scopesDone,
		CurrentScopeName:      st.currentScope,
		ContainersInScope:     st.containersInScope,
		ContainerIndexInScope: st.containerIndex,
		CurrentContainerName:  st.currentContainer,
		ItemsTotal:            st.itemsTotal,
		CancelRequested:       st.cancelRequested,
		CategoryTotals:        st.categoryTotals.Clone(),
	}
	if st.tracker != nil {
		snap.ContainersTotal = st.tracker.Total()
		snap.ContainersDone = st.tracker.Done()
		snap.Percent = st.tracker.Percent()
		snap.ETA, snap.ETAKnown = st.tracker.ETA(s.now())
	}
	return snap
}

// LastReport returns the report of the most recent finished run.
func (s *DumpService) LastReport() (*domain.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, false
	}
	r := *s.last
	r.CategoryTotals = s.last.CategoryTotals.Clone()
	return &r, true
}

// ListScopes returns the servers the configured account can reach.
func (s *DumpService) ListScopes(ctx context.Context) ([]domain.Scope, error) {
	token, err := s.resolveToken(ctx)
	if err != nil {
		return nil, err
	}
	scopes, err := s.deps.Directory.Scopes(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	return scopes, nil
}

// Categories returns the classification buckets.
func (s *DumpService) Categories() []domain.Category {
	return domain.AllCategories()
}

// RevealArchive opens the dump root.
func (s *DumpService) RevealArchive(ctx context.Context) error {
	if s.deps.Revealer == nil {
		return fmt.Errorf("reveal archive: not supported on this platform")
	}
	return s.deps.Revealer.Reveal(ctx, s.deps.Storage.Location())
}

// History returns recent runs, newest first.
func (s *DumpService) History(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if s.deps.Runs == nil {
		return nil, nil
	}
	return s.deps.Runs.List(ctx, limit)
}

// Check verifies the token, counts servers and pings the classifier.
func (s *DumpService) Check(ctx context.Context) (*driving.CheckResult, error) {
	token, err := s.resolveToken(ctx)
	if err != nil {
		return nil, err
	}
	account, err := s.deps.Directory.CurrentAccount(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	scopes, err := s.deps.Directory.Scopes(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}

	settings := s.settings()
	res := &driving.CheckResult{
		Account:           account,
		Scopes:            len(scopes),
		ClassifierEnabled: settings.Classifier.UseRemote,
	}
	if s.deps.LLM != nil {
		res.ClassifierModel = s.deps.LLM.ModelName()
		if settings.Classifier.UseRemote {
			res.ClassifierError = s.deps.LLM.Ping(ctx)
		}
	} else if settings.Classifier.UseRemote {
		res.ClassifierError = domain.ErrRemoteUnavailable
	}
	return res, nil
}

// preflight claims the run guard and resolves everything needed before
// pagination. Any error here leaves the service idle.
func (s *DumpService) preflight(ctx context.Context, opts domain.RunOptions) (*runPlan, error) {
	if opts.DryRun && s.deps.DryRunStorage == nil {
		return nil, fmt.Errorf("%w: dry run is not available", domain.ErrInvalidInput)
	}

	startedAt := s.now()
	runID := uuid.NewString()

	s.mu.Lock()
	if s.state.phase == domain.RunPhaseRunning {
		s.mu.Unlock()
		return nil, domain.ErrRunInProgress
	}
	s.state = runState{
		phase:          domain.RunPhaseRunning,
		runID:          runID,
		startedAt:      startedAt,
		dryRun:         opts.DryRun,
		categoryTotals: domain.NewCategoryCounts(),
	}
	s.mu.Unlock()

	plan, err := s.resolvePlan(ctx, runID, opts)
	if err != nil {
		s.fail(ctx, runID, startedAt, err)
		return nil, err
	}

	total := 0
	for _, sp := range plan.scopes {
		total += len(sp.containers)
	}

	s.mu.Lock()
	s.state.account = plan.account.Name
	s.state.scopesTotal = len(plan.scopes)
	s.state.tracker = NewProgressTracker(total, startedAt)
	s.mu.Unlock()

	logger.Info("run %s: %d servers, %d channels, remote classifier %t",
		runID, len(plan.scopes), total, plan.useRemote)
	return plan, nil
}

func (s *DumpService) resolvePlan(ctx context.Context, runID string, opts domain.RunOptions) (*runPlan, error) {
	settings := s.settings()

	token, err := s.resolveToken(ctx)
	if err != nil {
		return nil, err
	}

	account, err := s.deps.Directory.CurrentAccount(ctx, token)
	if err != nil {
		logger.Warn("could not resolve current account, using %q: %v", domain.UnknownAccountName, err)
		account = domain.Account{Name: domain.UnknownAccountName}
	}
	if account.Name == "" {
		account.Name = domain.UnknownAccountName
	}

	scopes, err := s.deps.Directory.Scopes(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	if len(opts.ScopeIDs) > 0 {
		scopes = slices.DeleteFunc(scopes, func(sc domain.Scope) bool {
			return !slices.Contains(opts.ScopeIDs, sc.ID)
		})
	}
	if len(scopes) == 0 {
		return nil, domain.ErrNoScopes
	}

	plans := make([]scopePlan, 0, len(scopes))
	for _, sc := range scopes {
		containers, err := s.deps.Directory.Containers(ctx, token, sc.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("list channels of %s: %v", sc.Name, err)
			containers = nil
		}
		domain.SortContainers(containers)
		plans = append(plans, scopePlan{scope: sc, containers: containers})
	}

	useRemote := settings.Classifier.UseRemote
	if opts.UseRemote != nil {
		useRemote = *opts.UseRemote
	}
	if useRemote && !s.classifier.HasRemote() {
		logger.Warn("remote classifier requested but not configured")
		useRemote = false
	}

	maxItems := opts.MaxItemsPerContainer
	if maxItems <= 0 {
		maxItems = settings.Fetch.MaxMessages
	}

	storage := s.deps.Storage
	if opts.DryRun {
		storage = s.deps.DryRunStorage()
	}

	return &runPlan{
		id:        runID,
		token:     token,
		account:   account,
		scopes:    plans,
		opts:      opts,
		useRemote: useRemote,
		maxItems:  maxItems,
		fetch:     settings.Fetch,
		writer:    NewArchiveWriter(storage),
	}, nil
}

// fail returns the service to idle after a fatal preflight error.
func (s *DumpService) fail(ctx context.Context, runID string, startedAt time.Time, cause error) {
	s.mu.Lock()
	s.state = runState{phase: domain.RunPhaseIdle}
	s.mu.Unlock()

	logger.Warn("run %s failed: %v", runID, cause)
	s.saveRun(context.WithoutCancel(ctx), domain.RunRecord{
		ID:         runID,
		Phase:      domain.RunPhaseFailed,
		StartedAt:  startedAt,
		FinishedAt: s.now(),
		Error:      cause.Error(),
	})
}

// execute walks every server and channel of the plan.
func (s *DumpService) execute(ctx context.Context, plan *runPlan) *domain.Report {
	fetcher := NewFetcher(s.deps.Source, FetcherConfigFrom(plan.fetch), s.metrics, s.sleep)
	logger.Section("Dump " + plan.id)

	for si, sp := range plan.scopes {
		if s.stopping(ctx) {
			break
		}
		s.enterScope(sp)

		summary := domain.ScopeSummary{
			Account:        plan.account.Name,
			Scope:          sp.scope,
			CategoryTotals: domain.NewCategoryCounts(),
		}
		for ci, c := range sp.containers {
			if s.stopping(ctx) {
				break
			}
			s.enterContainer(ci, c)

			cs := s.processContainer(ctx, fetcher, plan, sp.scope, c, summary.CategoryTotals)
			summary.Containers = append(summary.Containers, cs)
			summary.ItemsTotal += cs.Items
			s.containerFinished()

			if !s.stopping(ctx) {
				_ = s.sleep(ctx, plan.fetch.ContainerDelay())
			}
		}

		if len(summary.Containers) > 0 {
			summary.FinishedAt = s.now()
			s.finishScope(ctx, plan, summary)
		}
		s.scopeFinished()

		if si < len(plan.scopes)-1 && !s.stopping(ctx) {
			_ = s.sleep(ctx, plan.fetch.ScopeDelay())
		}
	}

	return s.finish(ctx, plan)
}

func (s *DumpService) processContainer(
	ctx context.Context,
	fetcher *Fetcher,
	plan *runPlan,
	scope domain.Scope,
	c domain.Container,
	totals domain.CategoryCounts,
) domain.ContainerSummary {
	logger.Debug("server %s: channel #%s", scope.Name, c.Name)
	res := fetcher.Fetch(ctx, c.ID, plan.token, plan.maxItems, s.cancelRequested)

	cs := domain.ContainerSummary{ID: c.ID, Name: c.Name}
	if res.Stop.Skipped() {
		cs.Skipped = true
		cs.SkipNote = string(res.Stop)
		s.metrics.ContainerSkipped(string(res.Stop))
		s.mu.Lock()
		s.state.skipped++
		s.mu.Unlock()
	}

	for _, item := range res.Items {
		if ctx.Err() != nil {
			break
		}
		cat := s.classifier.Classify(ctx, item.Body, item.AttachmentURLs, plan.useRemote)
		out := plan.writer.Write(ctx, scope.Name, c.Name, item, cat, plan.account.Name)
		if out.Err != nil {
			logger.Warn("message %s: %v", item.ID, out.Err)
			s.metrics.WriteFailed()
		} else {
			s.metrics.ItemArchived(cat)
		}
		s.recordItem(cat, out.Err != nil)
		totals[cat]++
		cs.Items++
	}
	return cs
}

func (s *DumpService) finishScope(ctx context.Context, plan *runPlan, summary domain.ScopeSummary) {
	if err := plan.writer.WriteSummary(ctx, summary); err != nil {
		logger.Warn("server %s summary: %v", summary.Scope.Name, err)
	}
	logger.Info("server %s done: %d messages in %d channels",
		summary.Scope.Name, summary.ItemsTotal, len(summary.Containers))
	if s.deps.Reporter != nil {
		s.deps.Reporter.ScopeFinished(ctx, summary)
	}
}

// finish builds the report and returns the service to idle.
func (s *DumpService) finish(ctx context.Context, plan *runPlan) *domain.Report {
	s.mu.Lock()
	st := s.state
	phase := domain.RunPhaseCompleted
	if st.cancelRequested || ctx.Err() != nil {
		phase = domain.RunPhaseCancelled
	}
	report := domain.Report{
		RunID:             st.runID,
		Phase:             phase,
		Account:           st.account,
		StartedAt:         st.startedAt,
		FinishedAt:        s.now(),
		ScopesTotal:       st.scopesTotal,
		ScopesDone:        st.scopesDone,
		ContainersTotal:   st.tracker.Total(),
		ContainersDone:    st.tracker.Done(),
		ItemsTotal:        st.itemsTotal,
		ContainersSkipped: st.skipped,
		WriteFailures:     st.writeFailures,
		CategoryTotals:    st.categoryTotals.Clone(),
		ArchiveLocation:   plan.writer.Location(),
		DryRun:            st.dryRun,
	}
	s.last = &report
	s.state = runState{phase: domain.RunPhaseIdle}
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	s.saveRun(bg, domain.RecordFromReport(report))

	logger.Info("run %s %s: %d messages, %d/%d channels in %s",
		report.RunID, report.Phase, report.ItemsTotal,
		report.ContainersDone, report.ContainersTotal, domain.FormatDuration(report.Duration()))

	if s.deps.Reporter != nil {
		s.deps.Reporter.RunFinished(bg, report)
	}
	if phase == domain.RunPhaseCompleted && !plan.opts.DryRun && !plan.opts.SkipReveal && s.deps.Revealer != nil {
		if err := s.deps.Revealer.Reveal(bg, report.ArchiveLocation); err != nil {
			logger.Warn("open archive: %v", err)
		}
	}
	return &report
}

func (s *DumpService) saveRun(ctx context.Context, rec domain.RunRecord) {
	if s.deps.Runs == nil {
		return
	}
	if err := s.deps.Runs.Save(ctx, rec); err != nil {
		logger.Warn("save run history: %v", err)
	}
}

func (s *DumpService) resolveToken(ctx context.Context) (string, error) {
	if s.deps.Tokens == nil {
		return "", domain.ErrNoToken
	}
	token, err := s.deps.Tokens.Token(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoToken) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.ErrNoToken, err)
	}
	if token == "" {
		return "", domain.ErrNoToken
	}
	return token, nil
}

func (s *DumpService) settings() domain.AppSettings {
	if s.deps.Settings == nil {
		return domain.DefaultAppSettings()
	}
	settings, err := s.deps.Settings.Get()
	if err != nil || settings == nil {
		logger.Warn("load settings, using defaults: %v", err)
		return domain.DefaultAppSettings()
	}
	return *settings
}

// cancelRequested is polled by the fetcher before every page request.
func (s *DumpService) cancelRequested() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.cancelRequested
}

// stopping reports a cooperative cancel or a cancelled context.
func (s *DumpService) stopping(ctx context.Context) bool {
	return s.cancelRequested() || ctx.Err() != nil
}

func (s *DumpService) enterScope(sp scopePlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.currentScope = sp.scope.Name
	s.state.containersInScope = len(sp.containers)
	s.state.containerIndex = 0
	s.state.currentContainer = ""
}

func (s *DumpService) enterContainer(index int, c domain.Container) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.containerIndex = index + 1
	s.state.currentContainer = c.Name
}

func (s *DumpService) containerFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.tracker.ContainerDone()
}

func (s *DumpService) scopeFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.scopesDone++
}

// recordItem counts one processed item. Items are counted under their
// category even when the write failed, so category totals always sum
// to the item total.
func (s *DumpService) recordItem(cat domain.Category, writeFailed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.itemsTotal++
	s.state.categoryTotals[cat]++
	if writeFailed {
		s.state.writeFailures++
	}
}
