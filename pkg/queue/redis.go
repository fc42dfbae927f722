package queue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisQueue struct {
	client *redis.Client
	prefix string
}

func NewRedisQueue(client *redis.Client, prefix string) *RedisQueue {
	return &RedisQueue{
		client: client,
		prefix: prefix,
	}
}

func (q *RedisQueue) Publish(ctx context.Context, name string, payload []byte) error {
	return q.client.LPush(ctx, q.prefix+name, payload).Err()
}

func (q *RedisQueue) Consume(ctx context.Context, name string, timeout time.Duration) ([]byte, error) {
	res, err := q.client.BRPop(ctx, timeout, q.prefix+name).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	// BRPOP возвращает пару [key, value]
	return []byte(res[1]), nil
}
