package status

import (
	"context"
	"errors"
)

// ErrNotFound marks a channel or message that no longer exists. Only this
// error triggers the self-heal paths; anything else leaves stored refs alone.
var ErrNotFound = errors.New("not found")

// Sink is the chat-platform surface the reconciler converges against.
type Sink interface {
	// ResolveChannel verifies the destination channel still exists.
	ResolveChannel(ctx context.Context, channelID string) error

	// FetchMessage verifies the tracked message still exists.
	FetchMessage(ctx context.Context, channelID, messageID string) error

	// Send posts a new status message and returns its ID.
	Send(ctx context.Context, channelID string, c *Content) (string, error)

	// Edit updates an existing status message in place.
	Edit(ctx context.Context, channelID, messageID string, c *Content) error
}
