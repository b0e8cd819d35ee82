package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
	"github.com/custodia-labs/chronicle/internal/logger"
)

// Classifier assigns exactly one category to every item: the local rule
// table first, then the optional remote fallback, then Conversations.
type Classifier struct {
	remote  driven.TextClassifier
	metrics driven.PipelineMetrics
}

// NewClassifier creates a classifier. remote may be nil, in which case
// items no local rule matches are Conversations.
func NewClassifier(remote driven.TextClassifier, metrics driven.PipelineMetrics) *Classifier {
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &Classifier{remote: remote, metrics: metrics}
}

// HasRemote returns true if a remote fallback is wired.
func (c *Classifier) HasRemote() bool {
	return c.remote != nil
}

// Classify returns the category for a body and its attachment URLs.
// The remote fallback is only consulted when no local rule matches,
// allowRemote is set and the trimmed body is non-empty. Any remote
// failure resolves to Conversations.
func (c *Classifier) Classify(ctx context.Context, body string, attachments []string, allowRemote bool) domain.Category {
	if cat, ok := LocalCategory(body, attachments); ok {
		return cat
	}

	trimmed := strings.TrimSpace(body)
	if !allowRemote || c.remote == nil || trimmed == "" {
		return domain.CategoryConversations
	}

	cat, err := c.remote.ClassifyText(ctx, trimmed)
	c.metrics.RemoteClassified(cat, err)
	if err != nil {
		logger.Debug("remote classifier failed, using %s: %v", domain.CategoryConversations, err)
		return domain.CategoryConversations
	}
	if !cat.IsValid() {
		return domain.CategoryConversations
	}
	return cat
}
