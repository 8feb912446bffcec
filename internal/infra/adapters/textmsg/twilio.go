// File: internal/infra/adapters/textmsg/twilio.go
package textmsg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"askline/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.TextTransport = (*TwilioTransport)(nil)

// TwilioTransport sends SMS through the Twilio Messages API.
type TwilioTransport struct {
	accountSID string
	authToken  string
	from       string
	base       string // e.g. https://api.twilio.com/2010-04-01
	client     *http.Client
}

func NewTwilioTransport(accountSID, authToken, from, base string) (*TwilioTransport, error) {
	if accountSID == "" || authToken == "" {
		return nil, errors.New("twilio credentials empty")
	}
	if from == "" {
		return nil, errors.New("twilio from number empty")
	}
	if base == "" {
		base = "https://api.twilio.com/2010-04-01"
	}
	return &TwilioTransport{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		base:       strings.TrimRight(base, "/"),
		client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (t *TwilioTransport) Send(ctx context.Context, address, body string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", errors.New("twilio: empty destination address")
	}

	form := url.Values{}
	form.Set("To", address)
	form.Set("From", t.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.base, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return "", fmt.Errorf("twilio: %d %s", apiErr.Code, apiErr.Message)
		}
		return "", fmt.Errorf("twilio: status %d: %s", resp.StatusCode, raw)
	}

	var out struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("twilio: decode response: %w", err)
	}
	return out.SID, nil
}
