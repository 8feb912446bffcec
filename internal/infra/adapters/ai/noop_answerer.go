package ai

import (
	"context"

	"askline/internal/domain/ports/adapter"
)

var _ adapter.AnswerService = (*NoopAnswerer)(nil)

// NoopAnswerer echoes a canned reply; used in dev mode when no provider key
// is configured.
type NoopAnswerer struct{}

func NewNoopAnswerer() *NoopAnswerer {
	return &NoopAnswerer{}
}

func (NoopAnswerer) Answer(ctx context.Context, prompt string, hints adapter.ProviderHints) (*adapter.Answer, error) {
	return &adapter.Answer{
		Text:     "This is a development stub answer for: " + prompt,
		Provider: "noop",
		Model:    "noop",
	}, nil
}
