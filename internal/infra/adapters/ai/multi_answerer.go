// File: internal/infra/adapters/ai/multi_answerer.go
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"askline/internal/domain/ports/adapter"
)

var _ adapter.AnswerService = (*MultiAnswerer)(nil)

// MultiAnswerer resolves a provider from the caller's hints (or the model
// name prefix) and falls back through the remaining providers on failure.
type MultiAnswerer struct {
	defaultProvider string
	byProvider      map[string]adapter.AnswerService
	order           []string
	log             *zerolog.Logger
}

func NewMultiAnswerer(defaultProvider string, logger *zerolog.Logger) *MultiAnswerer {
	l := logger.With().Str("component", "MultiAnswerer").Logger()
	return &MultiAnswerer{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      map[string]adapter.AnswerService{},
		log:             &l,
	}
}

func (m *MultiAnswerer) Register(provider string, svc adapter.AnswerService) {
	provider = strings.ToLower(provider)
	if _, exists := m.byProvider[provider]; !exists {
		m.order = append(m.order, provider)
	}
	m.byProvider[provider] = svc
}

func (m *MultiAnswerer) resolveProvider(hints adapter.ProviderHints) string {
	if p := strings.ToLower(hints.Provider); p != "" {
		return p
	}
	model := strings.ToLower(hints.Model)
	switch {
	case strings.HasPrefix(model, "gemini"):
		return "gemini"
	case strings.HasPrefix(model, "gpt"):
		return "openai"
	default:
		return m.defaultProvider
	}
}

func (m *MultiAnswerer) Answer(ctx context.Context, prompt string, hints adapter.ProviderHints) (*adapter.Answer, error) {
	if len(m.byProvider) == 0 {
		return nil, fmt.Errorf("no answer providers configured")
	}

	first := m.resolveProvider(hints)
	tried := map[string]bool{}
	var lastErr error

	attempt := func(provider string) (*adapter.Answer, bool) {
		svc, ok := m.byProvider[provider]
		if !ok || tried[provider] {
			return nil, false
		}
		tried[provider] = true
		answer, err := svc.Answer(ctx, prompt, hints)
		if err != nil {
			lastErr = err
			m.log.Warn().Err(err).Str("provider", provider).Msg("provider failed, trying next")
			return nil, false
		}
		return answer, true
	}

	if answer, ok := attempt(first); ok {
		return answer, nil
	}
	for _, provider := range m.order {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if answer, ok := attempt(provider); ok {
			return answer, nil
		}
	}
	return nil, fmt.Errorf("all answer providers failed: %w", lastErr)
}
