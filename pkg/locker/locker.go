package locker

import (
	"errors"
	"time"
)

var ErrLockTimeout = errors.New("lock acquisition timed out")

// Locker - взаимное исключение по строковому ключу; токен возвращается
// при захвате и обязателен при освобождении, чтобы чужой лок нельзя
// было снять по ошибке
type Locker interface {
	Acquire(key string, timeout time.Duration) (token string, err error)
	Release(key, token string) error
	ReleaseAfterDelay(key, token string, delay time.Duration) error
}
