package event

import (
	"context"
	"time"

	"github.com/handrail/handrail/service/messaging"
)

// Publisher fans typed events out onto the underlying queue. Every typed
// publisher also mirrors its events onto the service-wide any-queue so a
// single listener can observe the whole engine.
type Publisher[T any] struct {
	queue    messaging.Queue[Event[T]]
	anyQueue messaging.Queue[Event[any]]
}

// NewPublisher creates a publisher over the supplied queue.
func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{queue: queue}
}

// Publish stamps and enqueues the event. Delivery is best-effort: observers
// may be absent or slow, so a full queue drops the event rather than blocking
// the mutating caller.
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	event.CreatedAt = time.Now()
	if p.anyQueue != nil {
		enqueue(ctx, p.anyQueue, &Event[any]{
			Context:   event.Context,
			CreatedAt: event.CreatedAt,
			Metadata:  event.Metadata,
			Data:      event.Data,
		})
	}
	enqueue(ctx, p.queue, event)
	return nil
}

func enqueue[T any](ctx context.Context, queue messaging.Queue[T], value *T) {
	if dropping, ok := queue.(interface {
		TryPublish(ctx context.Context, t *T) bool
	}); ok {
		dropping.TryPublish(ctx, value)
		return
	}
	_ = queue.Publish(ctx, value)
}

// Consume blocks for the next event and acknowledges it.
func (p *Publisher[T]) Consume(ctx context.Context) (*Event[T], error) {
	msg, err := p.queue.Consume(ctx)
	if err != nil || msg == nil {
		return nil, err
	}
	if err = msg.Ack(); err != nil {
		return nil, err
	}
	return msg.T(), nil
}
