package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
	"github.com/custodia-labs/chronicle/internal/logger"
)

// Ensure LLMClassifier implements the interface.
var _ driven.TextClassifier = (*LLMClassifier)(nil)

const (
	// minRemoteRunes is the shortest body worth a remote call.
	minRemoteRunes = 3

	remoteTemperature = 0.1
	remoteMaxTokens   = 10
)

// LLMClassifier is the remote fallback: it sends the body with a fixed
// instruction set to a language model and reads one category token back.
type LLMClassifier struct {
	llm      driven.LLMService
	prompts  driven.PromptStore
	timeout  time.Duration
	maxChars int
}

// NewLLMClassifier creates a remote classifier. prompts may be nil, in
// which case the built-in instruction set is used.
func NewLLMClassifier(llm driven.LLMService, prompts driven.PromptStore, settings domain.ClassifierSettings) *LLMClassifier {
	timeout := settings.Timeout()
	if timeout <= 0 {
		timeout = domain.DefaultAppSettings().Classifier.Timeout()
	}
	maxChars := settings.MaxChars
	if maxChars <= 0 {
		maxChars = domain.DefaultAppSettings().Classifier.MaxChars
	}
	return &LLMClassifier{
		llm:      llm,
		prompts:  prompts,
		timeout:  timeout,
		maxChars: maxChars,
	}
}

// ClassifyText asks the model for a category. Bodies shorter than three
// characters are Conversations without a call. The call is bounded by
// the configured timeout; on error the caller falls back to Conversations.
func (c *LLMClassifier) ClassifyText(ctx context.Context, text string) (domain.Category, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minRemoteRunes {
		return domain.CategoryConversations, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.llm.Generate(ctx, c.buildPrompt(truncateRunes(text, c.maxChars)), driven.GenerateOptions{
		MaxTokens:   remoteMaxTokens,
		Temperature: remoteTemperature,
	})
	if err != nil {
		return domain.CategoryConversations, fmt.Errorf("remote classify: %w", err)
	}

	cat := ParseCategoryToken(resp)
	logger.Debug("remote classifier answered %q -> %s", strings.TrimSpace(resp), cat)
	return cat, nil
}

func (c *LLMClassifier) buildPrompt(body string) string {
	template := domain.ClassifyPrompt
	if c.prompts != nil {
		if p, err := c.prompts.Load(driven.PromptClassify); err == nil && p != "" {
			template = p
		}
	}
	if !strings.Contains(template, "%s") {
		return template + "\n\n" + body
	}
	return strings.Replace(template, "%s", body, 1)
}

// ParseCategoryToken reads a category out of a free-form model answer.
// Matching is a case-insensitive substring search in a fixed order;
// anything unrecognised is Conversations.
func ParseCategoryToken(resp string) domain.Category {
	r := strings.ToUpper(strings.TrimSpace(resp))
	switch {
	case r == "":
		return domain.CategoryConversations
	case strings.Contains(r, "IMAGES"):
		return domain.CategoryImages
	case strings.Contains(r, "VIDEOS"):
		return domain.CategoryVideos
	case strings.Contains(r, "COMMANDS"):
		return domain.CategoryCommands
	case strings.Contains(r, "PERSONAL_INFO"), strings.Contains(r, "PERSONAL"), strings.Contains(r, "INFO"):
		return domain.CategoryPersonalInfo
	case strings.Contains(r, "INAPPROPRIATE"), strings.Contains(r, "NSFW"), strings.Contains(r, "INSULT"):
		return domain.CategoryInappropriate
	case strings.Contains(r, "LINKS"):
		return domain.CategoryLinks
	case strings.Contains(r, "FILES"):
		return domain.CategoryFiles
	default:
		return domain.CategoryConversations
	}
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
