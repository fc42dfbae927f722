package locker

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLocker - однопроцессная реализация Locker; используется в тестах
// и в single-node конфигурации без redis
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]string
	waits map[string]chan struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held:  make(map[string]string),
		waits: make(map[string]chan struct{}),
	}
}

func (l *MemoryLocker) Acquire(key string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)

	for {
		l.mu.Lock()
		if _, taken := l.held[key]; !taken {
			token := uuid.New().String()
			l.held[key] = token
			l.mu.Unlock()
			return token, nil
		}
		wait := l.waits[key]
		if wait == nil {
			wait = make(chan struct{})
			l.waits[key] = wait
		}
		l.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", ErrLockTimeout
		}

		select {
		case <-wait:
		case <-time.After(remaining):
			return "", ErrLockTimeout
		}
	}
}

func (l *MemoryLocker) Release(key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] != token {
		return nil
	}
	delete(l.held, key)
	if wait := l.waits[key]; wait != nil {
		close(wait)
		delete(l.waits, key)
	}
	return nil
}

func (l *MemoryLocker) ReleaseAfterDelay(key, token string, delay time.Duration) error {
	time.AfterFunc(delay, func() {
		l.Release(key, token)
	})
	return nil
}
