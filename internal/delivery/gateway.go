// Package delivery pushes one-time codes to users over an out-of-band
// channel.
package delivery

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by gateways whose provider credentials are
// missing.
var ErrNotConfigured = errors.New("delivery: gateway not configured")

// Message is a single code delivery. To is a mobile number or an email
// address depending on the gateway.
type Message struct {
	To   string
	Code string
}

// Gateway delivers a code and reports whether the provider accepted it.
type Gateway interface {
	Send(ctx context.Context, msg Message) error
}
