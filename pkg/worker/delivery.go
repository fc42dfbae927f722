package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"custody_payments_back/models"
	"custody_payments_back/pkg/queue"
	"custody_payments_back/pkg/repository"
)

const (
	consumeTimeout    = 5 * time.Second
	defaultMaxRetries = 8
)

// DeliveryWorker забирает подписанные конверты из очереди и постит их на
// вебхуки клиентов; неудачные доставки возвращаются в очередь с задержкой
type DeliveryWorker struct {
	deliveryQueue queue.Queue
	notifications repository.Notification
	client        *resty.Client
	maxAttempts   int
	retryDelay    time.Duration
}

func NewDeliveryWorker(deliveryQueue queue.Queue, notifications repository.Notification, client *resty.Client, retryDelay time.Duration) *DeliveryWorker {
	return &DeliveryWorker{
		deliveryQueue: deliveryQueue,
		notifications: notifications,
		client:        client,
		maxAttempts:   defaultMaxRetries,
		retryDelay:    retryDelay,
	}
}

func (w *DeliveryWorker) Run(ctx context.Context) {
	logrus.Info("deliveryWorker.started")
	for {
		select {
		case <-ctx.Done():
			logrus.Info("deliveryWorker.stopped")
			return
		default:
		}

		raw, err := w.deliveryQueue.Consume(ctx, queue.NotificationsOut, consumeTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logrus.Errorf("error.deliveryWorker: %s", err)
			time.Sleep(time.Second)
			continue
		}
		if raw == nil {
			continue
		}
		w.deliver(ctx, raw)
	}
}

func (w *DeliveryWorker) deliver(ctx context.Context, raw []byte) {
	var envelope models.NotificationEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		logrus.Errorf("error.deliveryWorker: bad envelope: %s", err)
		return
	}
	meta := envelope.Meta

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Api-Token", meta.APIToken).
		SetHeader("X-Api-Signature", meta.Signature).
		SetBody(envelope.Payload).
		Post(meta.Endpoint)

	deliveryError := ""
	if err != nil {
		deliveryError = err.Error()
	} else if resp.StatusCode() >= 300 {
		deliveryError = fmt.Sprintf("endpoint returned %d", resp.StatusCode())
	}

	attempts, attemptsErr := w.notifications.IncrementAttempts(meta.ID)
	if attemptsErr != nil {
		logrus.WithFields(logrus.Fields{"notification_id": meta.ID}).Errorf("error.deliveryWorker: %s", attemptsErr)
		attempts = meta.Attempt + 1
	}

	if deliveryError == "" {
		if err := w.notifications.UpdateStatus(meta.ID, models.NotificationStatusSent, ""); err != nil {
			logrus.WithFields(logrus.Fields{"notification_id": meta.ID}).Errorf("error.deliveryWorker: %s", err)
		}
		logrus.WithFields(logrus.Fields{
			"notification_id": meta.ID,
			"endpoint":        meta.Endpoint,
			"attempt":         attempts,
		}).Info("notification.delivered")
		return
	}

	logrus.WithFields(logrus.Fields{
		"notification_id": meta.ID,
		"endpoint":        meta.Endpoint,
		"attempt":         attempts,
	}).Errorf("error.notification.delivery: %s", deliveryError)

	if attempts >= w.maxAttempts {
		if err := w.notifications.UpdateStatus(meta.ID, models.NotificationStatusFailed, deliveryError); err != nil {
			logrus.WithFields(logrus.Fields{"notification_id": meta.ID}).Errorf("error.deliveryWorker: %s", err)
		}
		logrus.WithFields(logrus.Fields{"notification_id": meta.ID}).Error("notification.abandoned")
		return
	}

	envelope.Meta.Attempt = attempts
	requeued, err := json.Marshal(envelope)
	if err != nil {
		logrus.Errorf("error.deliveryWorker: %s", err)
		return
	}
	time.AfterFunc(w.retryDelay, func() {
		if err := w.deliveryQueue.Publish(context.Background(), queue.NotificationsOut, requeued); err != nil {
			logrus.WithFields(logrus.Fields{"notification_id": meta.ID}).Errorf("error.deliveryWorker: %s", err)
		}
	})
}
