package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
	"github.com/custodia-labs/chronicle/internal/core/ports/driving"
	"github.com/custodia-labs/chronicle/internal/logger"
)

// Ensure CollectorService implements the interface.
var _ driving.CollectorService = (*CollectorService)(nil)

// Scope names used for messages outside a server.
const (
	DirectMessagesScope = "DMs"
	GroupMessagesScope  = "Group_DMs"
	OtherScope          = "Other"
)

// CollectorDeps wires the live collector.
type CollectorDeps struct {
	Stream     driven.MessageStream
	Directory  driven.Directory
	Tokens     driven.TokenProvider
	Storage    driven.ArchiveStorage
	Classifier *Classifier
	Settings   SettingsReader
	Metrics    driven.PipelineMetrics
}

// CollectorService classifies and archives messages as they arrive.
type CollectorService struct {
	deps    CollectorDeps
	writer  *ArchiveWriter
	metrics driven.PipelineMetrics

	mu     sync.Mutex
	cancel context.CancelFunc
	stats  driving.CollectorStats
}

// NewCollectorService creates a live collector.
func NewCollectorService(deps CollectorDeps) *CollectorService {
	if deps.Classifier == nil {
		deps.Classifier = NewClassifier(nil, deps.Metrics)
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &CollectorService{
		deps:    deps,
		writer:  NewArchiveWriter(deps.Storage),
		metrics: metrics,
		stats:   driving.CollectorStats{CategoryTotals: domain.NewCategoryCounts()},
	}
}

// Run consumes the live stream until ctx is cancelled, Stop is called or
// the stream closes. Only one Run may be active at a time.
func (c *CollectorService) Run(ctx context.Context) error {
	if c.deps.Tokens == nil {
		return domain.ErrNoToken
	}
	token, err := c.deps.Tokens.Token(ctx)
	if err != nil || token == "" {
		return domain.ErrNoToken
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.stats.Running {
		c.mu.Unlock()
		return domain.ErrRunInProgress
	}
	c.cancel = cancel
	c.stats = driving.CollectorStats{Running: true, CategoryTotals: domain.NewCategoryCounts()}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.stats.Running = false
		c.cancel = nil
		c.mu.Unlock()
	}()

	account := c.accountName(ctx, token)

	messages, err := c.deps.Stream.Stream(ctx, token)
	if err != nil {
		return err
	}

	session := uuid.NewString()
	logger.Info("collector %s started for %s into %s", session, account, c.writer.Location())

	for {
		select {
		case <-ctx.Done():
			logger.Info("collector %s stopped", session)
			return nil
		case msg, ok := <-messages:
			if !ok {
				logger.Info("collector %s: stream closed", session)
				return nil
			}
			c.handle(ctx, account, msg)
		}
	}
}

// Stop ends an active Run. It is a no-op when nothing is running.
func (c *CollectorService) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Stats returns the counts of the current or last session.
func (c *CollectorService) Stats() driving.CollectorStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.stats
	st.CategoryTotals = c.stats.CategoryTotals.Clone()
	return st
}

func (c *CollectorService) handle(ctx context.Context, account string, msg domain.LiveMessage) {
	scope, container := LiveNames(msg)

	// The toggle is read per message so config edits apply immediately.
	useRemote := false
	if c.deps.Settings != nil {
		if settings, err := c.deps.Settings.Get(); err == nil && settings != nil {
			useRemote = settings.Classifier.UseRemote
		}
	}

	cat := c.deps.Classifier.Classify(ctx, msg.Item.Body, msg.Item.AttachmentURLs, useRemote)
	out := c.writer.Write(ctx, scope, container, msg.Item, cat, account)
	if out.Err != nil {
		logger.Warn("collect message %s: %v", msg.Item.ID, out.Err)
		c.metrics.WriteFailed()
	} else {
		c.metrics.ItemArchived(cat)
		logger.Debug("collected %s/%s -> %s", scope, container, cat)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Received++
	c.stats.CategoryTotals[cat]++
	if out.Err != nil {
		c.stats.WriteFailures++
	} else {
		c.stats.Archived++
	}
}

func (c *CollectorService) accountName(ctx context.Context, token string) string {
	if c.deps.Directory == nil {
		return domain.UnknownAccountName
	}
	acc, err := c.deps.Directory.CurrentAccount(ctx, token)
	if err != nil || acc.Name == "" {
		logger.Warn("could not resolve current account, using %q: %v", domain.UnknownAccountName, err)
		return domain.UnknownAccountName
	}
	return acc.Name
}

// LiveNames returns the server and channel names a live message is
// archived under.
func LiveNames(msg domain.LiveMessage) (scope, container string) {
	switch msg.Origin {
	case domain.OriginGuild:
		scope, container = msg.ScopeName, msg.ContainerName
		if container == "" {
			container = "unknown"
		}
		return scope, container
	case domain.OriginDM:
		author := msg.Item.AuthorName
		if author == "" {
			author = domain.UnknownAccountName
		}
		return DirectMessagesScope, "DM_" + author
	case domain.OriginGroupDM:
		if msg.ContainerName != "" {
			return GroupMessagesScope, msg.ContainerName
		}
		return GroupMessagesScope, "Group_" + msg.ContainerID
	default:
		return OtherScope, "Channel_" + msg.ContainerID
	}
}
