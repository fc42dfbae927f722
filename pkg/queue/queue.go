package queue

import (
	"context"
	"time"
)

const NotificationsOut = "notifications_out"

// Queue - исходящая очередь доставки; диспетчер кладёт конверты,
// воркер доставки их забирает
type Queue interface {
	Publish(ctx context.Context, name string, payload []byte) error
	Consume(ctx context.Context, name string, timeout time.Duration) ([]byte, error)
}
