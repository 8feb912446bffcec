// File: internal/infra/adapters/ai/openai_answerer.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/pkoukk/tiktoken-go"

	"askline/internal/domain/ports/adapter"
	"askline/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AnswerService = (*OpenAIAnswerer)(nil)

const systemPrompt = "You are a helpful assistant. Answer the user's question directly and concisely."

type OpenAIAnswerer struct {
	client          openai.Client
	model           string
	maxPromptTokens int
	maxOutputTokens int
}

func NewOpenAIAnswerer(apiKey, model string, maxPromptTokens, maxOutputTokens int) (*OpenAIAnswerer, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAnswerer{
		client:          openai.NewClient(option.WithAPIKey(apiKey)),
		model:           model,
		maxPromptTokens: maxPromptTokens,
		maxOutputTokens: maxOutputTokens,
	}, nil
}

func (o *OpenAIAnswerer) Answer(ctx context.Context, prompt string, hints adapter.ProviderHints) (*adapter.Answer, error) {
	model := hints.Model
	if model == "" {
		model = o.model
	}

	if o.maxPromptTokens > 0 {
		if n := countTokens(model, prompt); n > o.maxPromptTokens {
			return nil, fmt.Errorf("prompt of %d tokens exceeds budget of %d", n, o.maxPromptTokens)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	}
	maxOut := o.maxOutputTokens
	if hints.MaxOutputTokens > 0 {
		maxOut = hints.MaxOutputTokens
	}
	if maxOut > 0 {
		params.MaxTokens = openai.Int(int64(maxOut))
	}

	start := time.Now()
	completion, err := o.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start)
	if err != nil {
		metrics.ObserveAnswer("openai", model, latency.Milliseconds(), false)
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(completion.Choices) == 0 {
		metrics.ObserveAnswer("openai", model, latency.Milliseconds(), false)
		return nil, errors.New("openai: no completion choices returned")
	}
	metrics.ObserveAnswer("openai", model, latency.Milliseconds(), true)

	return &adapter.Answer{
		Text:             completion.Choices[0].Message.Content,
		Provider:         "openai",
		Model:            string(completion.Model),
		PromptTokens:     int(completion.Usage.PromptTokens),
		CompletionTokens: int(completion.Usage.CompletionTokens),
	}, nil
}

func countTokens(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			// rough fallback: ~4 bytes per token
			return len(text) / 4
		}
	}
	return len(enc.Encode(text, nil, nil))
}
