// File: internal/infra/router/relay.go
package router

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"askline/internal/domain/model"
	"askline/internal/domain/ports/adapter"
)

var _ Deliverer = (*RelayDeliverer)(nil)

// RelayDeliverer formats answers into one or more outbound text messages.
// Long answers are split on sentence boundaries and sent as
// "(Part i/N) "-prefixed follow-ups with a small inter-message delay to
// respect transport rate limits.
type RelayDeliverer struct {
	transport adapter.TextTransport
	maxLen    int
	partDelay time.Duration
	log       *zerolog.Logger
}

func NewRelayDeliverer(transport adapter.TextTransport, maxLen int, partDelay time.Duration, logger *zerolog.Logger) *RelayDeliverer {
	if maxLen <= 0 {
		maxLen = 1500
	}
	if partDelay <= 0 {
		partDelay = 500 * time.Millisecond
	}
	l := logger.With().Str("component", "RelayDeliverer").Logger()
	return &RelayDeliverer{transport: transport, maxLen: maxLen, partDelay: partDelay, log: &l}
}

func (d *RelayDeliverer) DeliverSuccess(ctx context.Context, job *model.Job, answer *adapter.Answer) error {
	return d.send(ctx, job, answer.Text)
}

func (d *RelayDeliverer) DeliverFailure(ctx context.Context, job *model.Job, message string) error {
	return d.send(ctx, job, message)
}

func (d *RelayDeliverer) send(ctx context.Context, job *model.Job, text string) error {
	address := strings.TrimSpace(job.ChannelData["address"])
	if address == "" {
		// Relay identities are "relay:<address>", so the address survives
		// even when the attribute bag was lost.
		address = strings.TrimPrefix(job.UserID, "relay:")
	}
	if address == "" {
		return fmt.Errorf("job %s has no destination address", job.ID)
	}

	parts := SplitMessage(text, d.maxLen)
	for i, part := range parts {
		body := part
		if len(parts) > 1 {
			body = fmt.Sprintf("(Part %d/%d) %s", i+1, len(parts), part)
		}
		if _, err := d.transport.Send(ctx, address, body); err != nil {
			return fmt.Errorf("send part %d/%d: %w", i+1, len(parts), err)
		}
		if i < len(parts)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.partDelay):
			}
		}
	}
	d.log.Debug().Str("job_id", job.ID).Int("parts", len(parts)).Msg("relay delivery sent")
	return nil
}

// SplitMessage splits text into chunks of at most max bytes, preferring
// sentence boundaries. A single sentence longer than the budget is chunked
// at a rune boundary.
func SplitMessage(text string, max int) []string {
	text = strings.TrimSpace(text)
	if max <= 0 || len(text) <= max {
		return []string{text}
	}

	// leave room for the "(Part i/N) " prefix added by the caller
	budget := max - len("(Part 99/99) ")
	if budget < 1 {
		budget = max
	}

	var parts []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}

	for _, sentence := range splitSentences(text) {
		for len(sentence) > budget {
			flush()
			cut := budget
			for cut > 0 && !utf8.RuneStart(sentence[cut]) {
				cut--
			}
			if cut == 0 {
				cut = budget
			}
			parts = append(parts, sentence[:cut])
			sentence = strings.TrimSpace(sentence[cut:])
		}
		switch {
		case cur.Len() == 0:
			cur.WriteString(sentence)
		case cur.Len()+1+len(sentence) <= budget:
			cur.WriteString(" ")
			cur.WriteString(sentence)
		default:
			flush()
			cur.WriteString(sentence)
		}
	}
	flush()
	return parts
}

func splitSentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '!', '?':
			j := i + 1
			for j < len(s) && (s[j] == '.' || s[j] == '!' || s[j] == '?') {
				j++
			}
			if j >= len(s) || s[j] == ' ' || s[j] == '\n' {
				if seg := strings.TrimSpace(s[start:j]); seg != "" {
					out = append(out, seg)
				}
				start = j
				i = j - 1
			}
		case '\n':
			if seg := strings.TrimSpace(s[start:i]); seg != "" {
				out = append(out, seg)
			}
			start = i + 1
		}
	}
	if seg := strings.TrimSpace(s[start:]); seg != "" {
		out = append(out, seg)
	}
	return out
}
