// File: internal/infra/adapters/ai/gemini_answerer.go
package ai

import (
	"context"
	"errors"
	"time"

	"google.golang.org/genai"

	"askline/internal/domain/ports/adapter"
	"askline/internal/infra/metrics"
)

var _ adapter.AnswerService = (*GeminiAnswerer)(nil)

type GeminiAnswerer struct {
	client *genai.Client
	model  string
	maxOut int32
}

func NewGeminiAnswerer(ctx context.Context, apiKey, baseURL, model string, maxOutputTokens int) (*GeminiAnswerer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAnswerer{client: c, model: model, maxOut: int32(maxOutputTokens)}, nil
}

func (g *GeminiAnswerer) Answer(ctx context.Context, prompt string, hints adapter.ProviderHints) (*adapter.Answer, error) {
	model := hints.Model
	if model == "" {
		model = g.model
	}
	maxOut := g.maxOut
	if hints.MaxOutputTokens > 0 {
		maxOut = int32(hints.MaxOutputTokens)
	}

	chat, err := g.client.Chats.Create(ctx, model, &genai.GenerateContentConfig{
		MaxOutputTokens: maxOut,
	}, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := chat.SendMessage(ctx, genai.Part{Text: prompt})
	latency := time.Since(start)
	if err != nil {
		metrics.ObserveAnswer("gemini", model, latency.Milliseconds(), false)
		return nil, err
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		if t := resp.Candidates[0].Content.Parts[0].Text; t != "" {
			text = t
		}
	}
	if text == "" {
		metrics.ObserveAnswer("gemini", model, latency.Milliseconds(), false)
		return nil, errors.New("gemini: empty response")
	}
	metrics.ObserveAnswer("gemini", model, latency.Milliseconds(), true)

	answer := &adapter.Answer{Text: text, Provider: "gemini", Model: model}
	if resp.UsageMetadata != nil {
		answer.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		answer.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return answer, nil
}
