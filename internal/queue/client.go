package queue

import "context"

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// MessageVersion is the payload version written by this build.
const MessageVersion = 1
