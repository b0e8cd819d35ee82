package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
)

func TestParseCategoryToken(t *testing.T) {
	tests := []struct {
		resp string
		want domain.Category
	}{
		{"IMAGES", domain.CategoryImages},
		{"  videos\n", domain.CategoryVideos},
		{"Category: COMMANDS.", domain.CategoryCommands},
		{"PERSONAL_INFO", domain.CategoryPersonalInfo},
		{"personal", domain.CategoryPersonalInfo},
		{"INFO", domain.CategoryPersonalInfo},
		{"INAPPROPRIATE", domain.CategoryInappropriate},
		{"nsfw", domain.CategoryInappropriate},
		{"INSULT", domain.CategoryInappropriate},
		{"LINKS", domain.CategoryLinks},
		{"FILES", domain.CategoryFiles},
		{"CONVERSATIONS", domain.CategoryConversations},
		{"no idea", domain.CategoryConversations},
		{"", domain.CategoryConversations},
		// Earlier tokens win when several appear.
		{"IMAGES or LINKS", domain.CategoryImages},
		{"LINKS with INFO", domain.CategoryPersonalInfo},
	}

	for _, tt := range tests {
		t.Run(tt.resp, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCategoryToken(tt.resp))
		})
	}
}

func TestLLMClassifier_ClassifyText(t *testing.T) {
	llm := &mockLLM{response: "LINKS"}
	c := NewLLMClassifier(llm, nil, domain.DefaultAppSettings().Classifier)

	got, err := c.ClassifyText(context.Background(), "check out my new site")

	require.NoError(t, err)
	assert.Equal(t, domain.CategoryLinks, got)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "check out my new site")
	assert.NotContains(t, llm.prompts[0], "%s")
	assert.Equal(t, 0.1, llm.opts[0].Temperature)
}

func TestLLMClassifier_ClassifyText_ShortBodySkipsCall(t *testing.T) {
	llm := &mockLLM{response: "IMAGES"}
	c := NewLLMClassifier(llm, nil, domain.DefaultAppSettings().Classifier)

	got, err := c.ClassifyText(context.Background(), " ok ")

	require.NoError(t, err)
	assert.Equal(t, domain.CategoryConversations, got)
	assert.Empty(t, llm.prompts)
}

func TestLLMClassifier_ClassifyText_Truncates(t *testing.T) {
	llm := &mockLLM{response: "FILES"}
	settings := domain.DefaultAppSettings().Classifier
	settings.MaxChars = 10
	c := NewLLMClassifier(llm, &mockPromptStore{prompts: map[string]string{
		driven.PromptClassify: "[%s]",
	}}, settings)

	_, err := c.ClassifyText(context.Background(), strings.Repeat("é", 50))

	require.NoError(t, err)
	require.Len(t, llm.prompts, 1)
	assert.Equal(t, "["+strings.Repeat("é", 10)+"]", llm.prompts[0])
}

func TestLLMClassifier_ClassifyText_PromptWithoutPlaceholder(t *testing.T) {
	llm := &mockLLM{response: "FILES"}
	c := NewLLMClassifier(llm, &mockPromptStore{prompts: map[string]string{
		driven.PromptClassify: "Classify this.",
	}}, domain.DefaultAppSettings().Classifier)

	_, err := c.ClassifyText(context.Background(), "some text here")

	require.NoError(t, err)
	assert.Equal(t, "Classify this.\n\nsome text here", llm.prompts[0])
}

func TestLLMClassifier_ClassifyText_MissingPromptUsesDefault(t *testing.T) {
	llm := &mockLLM{response: "FILES"}
	c := NewLLMClassifier(llm, &mockPromptStore{}, domain.DefaultAppSettings().Classifier)

	_, err := c.ClassifyText(context.Background(), "some text here")

	require.NoError(t, err)
	assert.Equal(t, strings.Replace(domain.ClassifyPrompt, "%s", "some text here", 1), llm.prompts[0])
}

func TestLLMClassifier_ClassifyText_Error(t *testing.T) {
	llm := &mockLLM{err: errors.New("503")}
	c := NewLLMClassifier(llm, nil, domain.DefaultAppSettings().Classifier)

	got, err := c.ClassifyText(context.Background(), "hello there")

	require.Error(t, err)
	assert.Equal(t, domain.CategoryConversations, got)
}

func TestLLMClassifier_ClassifyText_Timeout(t *testing.T) {
	llm := &mockLLM{block: true}
	settings := domain.DefaultAppSettings().Classifier
	c := NewLLMClassifier(llm, nil, settings)
	c.timeout = 20 * time.Millisecond

	start := time.Now()
	_, err := c.ClassifyText(context.Background(), "hello there")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}
