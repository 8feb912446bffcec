// File: internal/infra/adapters/push/expo.go
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"askline/internal/domain"
	"askline/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.PushGateway = (*ExpoGateway)(nil)

// ExpoGateway sends completion pushes through the Expo push API.
// Docs: https://docs.expo.dev/push-notifications/sending-notifications/
type ExpoGateway struct {
	url         string
	accessToken string
	client      *http.Client
}

func NewExpoGateway(url, accessToken string) *ExpoGateway {
	if url == "" {
		url = "https://exp.host/--/api/v2/push/send"
	}
	return &ExpoGateway{
		url:         url,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

type expoTicket struct {
	Status  string `json:"status"` // "ok" | "error"
	ID      string `json:"id"`
	Message string `json:"message"`
	Details struct {
		Error string `json:"error"` // e.g. "DeviceNotRegistered"
	} `json:"details"`
}

func (g *ExpoGateway) Send(ctx context.Context, token, title, body string, data map[string]string) (string, error) {
	if token == "" {
		return "", errors.New("expo: empty push token")
	}

	reqBody := struct {
		To    string            `json:"to"`
		Title string            `json:"title"`
		Body  string            `json:"body"`
		Data  map[string]string `json:"data,omitempty"`
		Sound string            `json:"sound"`
	}{To: token, Title: title, Body: body, Data: data, Sound: "default"}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.accessToken)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("expo: status %d: %s", resp.StatusCode, raw)
	}

	var out struct {
		Data expoTicket `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("expo: decode response: %w", err)
	}
	if out.Data.Status == "error" {
		if out.Data.Details.Error == "DeviceNotRegistered" {
			return "", fmt.Errorf("%w: %s", domain.ErrInvalidPushToken, out.Data.Message)
		}
		return "", fmt.Errorf("expo: %s", out.Data.Message)
	}
	return out.Data.ID, nil
}
