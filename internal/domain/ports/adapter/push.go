package adapter

import "context"

// PushGateway delivers completion notifications to the mobile app.
// Implementations must return domain.ErrInvalidPushToken (possibly wrapped)
// when the gateway reports the token as dead, so callers can evict it.
type PushGateway interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) (id string, err error)
}
