package progress

import "context"

// Sink consumes batches of progress events. Implementations must tolerate
// being called from a single background goroutine with arbitrary batch sizes.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}
