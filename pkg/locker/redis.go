package locker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ttl на ключе страхует от вечного лока, если процесс умер не освободив его
const lockTTL = 2 * time.Hour

const acquireRetryInterval = 250 * time.Millisecond

// скрипт снимает лок только если токен совпадает
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end`

type RedisLocker struct {
	client *redis.Client
	prefix string
}

func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: prefix,
	}
}

func (l *RedisLocker) Acquire(key string, timeout time.Duration) (string, error) {
	token := uuid.New().String()
	deadline := time.Now().Add(timeout)

	ctx := context.Background()
	for {
		ok, err := l.client.SetNX(ctx, l.prefix+key, token, lockTTL).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", ErrLockTimeout
		}
		time.Sleep(acquireRetryInterval)
	}
}

func (l *RedisLocker) Release(key, token string) error {
	return l.client.Eval(context.Background(), releaseScript, []string{l.prefix + key}, token).Err()
}

func (l *RedisLocker) ReleaseAfterDelay(key, token string, delay time.Duration) error {
	time.AfterFunc(delay, func() {
		if err := l.Release(key, token); err != nil {
			logrus.Errorf("delayed lock release failed for %s: %s", key, err)
		}
	})
	return nil
}
