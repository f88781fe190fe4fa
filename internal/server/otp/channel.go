package otp

import (
	"context"
	"fmt"
)

// Channel delivers a message to an out-of-band address. A nil error only
// means the send call succeeded; delivery is best-effort.
type Channel interface {
	Send(ctx context.Context, address, message string) error
}

// ChannelFunc adapts a function to Channel.
type ChannelFunc func(ctx context.Context, address, message string) error

func (f ChannelFunc) Send(ctx context.Context, address, message string) error {
	return f(ctx, address, message)
}

// DefaultMessage is the text sent with a code.
func DefaultMessage(code string) string {
	return fmt.Sprintf("Your signing code is %s. Do not share it with anyone.", code)
}
