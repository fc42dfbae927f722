package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue используется в тестах вместо redis
type MemoryQueue struct {
	mu     sync.Mutex
	queues map[string][][]byte
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		queues: make(map[string][][]byte),
	}
}

func (q *MemoryQueue) Publish(ctx context.Context, name string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queues[name] = append(q.queues[name], payload)
	return nil
}

func (q *MemoryQueue) Consume(ctx context.Context, name string, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		if items := q.queues[name]; len(items) > 0 {
			head := items[0]
			q.queues[name] = items[1:]
			q.mu.Unlock()
			return head, nil
		}
		q.mu.Unlock()

		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// Len отдаёт количество конвертов в очереди, только для тестов
func (q *MemoryQueue) Len(name string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[name])
}
