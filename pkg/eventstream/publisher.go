// Package eventstream defines the transport-neutral events the worker
// emits after processing calls, and the publisher interface backends
// implement.
package eventstream

import "context"

// Publisher publishes call events to an event stream backend.
type Publisher interface {
	PublishCall(ctx context.Context, event *CallProcessedEvent) error
	Close() error
}
