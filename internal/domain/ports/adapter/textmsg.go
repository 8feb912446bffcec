package adapter

import "context"

// TextTransport sends one outbound text message to an address on the relay
// channel. Address semantics are transport-specific (E.164 phone number for
// SMS, chat id for Telegram).
type TextTransport interface {
	Send(ctx context.Context, address, body string) (id string, err error)
}
