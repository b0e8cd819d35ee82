// Package ai builds the LLM service that backs the remote classifier.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamallm "github.com/custodia-labs/chronicle/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/chronicle/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateLLMService creates the LLM service selected by settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.ClassifierSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout(),
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout(),
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// A nil service with a nil error means the classifier is not configured.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.ClassifierSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'chronicle settings' to fix", domain.ErrRemoteUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(ctx, svc); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrRemoteUnavailable, err)
	}
	return svc, nil
}

// ValidateLLMConfig creates a throwaway service and pings it.
func ValidateLLMConfig(ctx context.Context, settings *domain.ClassifierSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return domain.ErrRemoteUnavailable
	}
	defer svc.Close()
	return ping(ctx, svc)
}

func ping(ctx context.Context, svc driven.LLMService) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}
