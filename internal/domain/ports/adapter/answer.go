package adapter

import "context"

// ProviderHints lets a caller steer provider/model selection without binding
// the pipeline to any one vendor.
type ProviderHints struct {
	Provider        string // "openai" | "gemini" | "" (resolver decides)
	Model           string
	MaxOutputTokens int
}

// Answer is what the answer service produced for one prompt.
type Answer struct {
	Text             string
	Provider         string
	Model            string
	Sources          []string
	PromptTokens     int
	CompletionTokens int
}

// AnswerService is the black-box question answering engine.
type AnswerService interface {
	Answer(ctx context.Context, prompt string, hints ProviderHints) (*Answer, error)
}
