package events

import (
	"context"
	"fmt"

	"github.com/noah-isme/tuitron-api/pkg/jobs"
)

// AsyncPublisher hands events to a worker queue so request handlers never wait on the broker.
type AsyncPublisher struct {
	queue *jobs.Queue
}

// NewAsyncPublisher wraps target with a retrying background queue.
func NewAsyncPublisher(target Publisher, cfg jobs.QueueConfig) *AsyncPublisher {
	handler := func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(Event)
		if !ok {
			return fmt.Errorf("unexpected payload %T", job.Payload)
		}
		return target.Publish(ctx, event)
	}
	return &AsyncPublisher{queue: jobs.NewQueue("events", handler, cfg)}
}

// Start launches the publishing workers.
func (p *AsyncPublisher) Start(ctx context.Context) { p.queue.Start(ctx) }

// Stop flushes buffered events and stops the workers.
func (p *AsyncPublisher) Stop() { p.queue.Stop() }

// Publish implements Publisher by enqueueing the event.
func (p *AsyncPublisher) Publish(_ context.Context, event Event) error {
	return p.queue.Enqueue(jobs.Job{ID: event.ID, Type: event.Type, Payload: event})
}
