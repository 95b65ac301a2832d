package queue

import (
	"context"
	"fmt"
	"sync"
)

const memoryQueueCapacity = 256

// MemoryQueue is an in-process JobQueue for tests and broker-less local
// runs. Messages carry no AMQP channel; acknowledgements are no-ops and
// nacked messages are not redelivered.
type MemoryQueue struct {
	mu     sync.Mutex
	jobs   chan *Job
	closed bool
}

// NewMemoryQueue creates an in-memory queue
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		jobs: make(chan *Job, memoryQueueCapacity),
	}
}

// Enqueue adds a job to the queue
func (q *MemoryQueue) Enqueue(ctx context.Context, job *Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("queue is full (capacity %d)", memoryQueueCapacity)
	}
}

// Dequeue removes and returns a message from the queue, nil when empty
func (q *MemoryQueue) Dequeue(ctx context.Context) (*Message, error) {
	select {
	case job, ok := <-q.jobs:
		if !ok {
			return nil, fmt.Errorf("queue is closed")
		}
		return &Message{Job: job}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return nil, nil
	}
}

// Consume returns a channel of messages from the queue
func (q *MemoryQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, nil, fmt.Errorf("queue is closed")
	}
	q.mu.Unlock()

	msgChan := make(chan *Message)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-q.jobs:
				if !ok {
					return
				}
				select {
				case msgChan <- &Message{Job: job}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return msgChan, errChan, nil
}

// Close closes the queue
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.jobs)
	return nil
}

// HealthCheck verifies the queue is usable
func (q *MemoryQueue) HealthCheck(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("queue is closed")
	}
	return nil
}

var _ JobQueue = (*MemoryQueue)(nil)
