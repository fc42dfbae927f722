package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"custody_payments_back/models"
	"custody_payments_back/pkg/currency"
	"custody_payments_back/pkg/events"
	"custody_payments_back/pkg/queue"
	"custody_payments_back/pkg/repository"
)

type NotificationService struct {
	monitors      repository.MonitoredAddress
	notifications repository.Notification
	auth          repository.Authorization
	outQueue      queue.Queue
}

func NewNotificationService(monitors repository.MonitoredAddress, notifications repository.Notification,
	auth repository.Authorization, outQueue queue.Queue) *NotificationService {
	return &NotificationService{
		monitors:      monitors,
		notifications: notifications,
		auth:          auth,
		outQueue:      outQueue,
	}
}

// HandleTxEvent матчит транзакцию с активными мониторами, подписывает
// payload секретом пользователя и кладёт конверт в очередь доставки
func (s *NotificationService) HandleTxEvent(txEvent events.TxEvent) {
	tx := txEvent.Tx

	allAddresses := make([]string, 0, len(tx.Sources)+len(tx.Destinations))
	allAddresses = append(allAddresses, tx.Sources...)
	allAddresses = append(allAddresses, tx.Destinations...)
	if len(allAddresses) == 0 {
		return
	}

	monitors, err := s.monitors.FindActiveByAddresses(allAddresses)
	if err != nil {
		logrus.Errorf("error.notification: %s", err)
		return
	}
	if len(monitors) == 0 {
		return
	}

	// пользователи резолвятся один раз на пачку мониторов
	usersByID := make(map[int64]models.User)

	for _, monitor := range monitors {
		eventName, quantity, matched := matchMonitor(monitor, tx)
		if !matched {
			continue
		}

		user, found := usersByID[monitor.UserID]
		if !found {
			user, err = s.auth.GetUserByID(monitor.UserID)
			if err != nil {
				logrus.WithFields(logrus.Fields{"user_id": monitor.UserID}).Errorf("error.notification: %s", err)
				continue
			}
			usersByID[monitor.UserID] = user
		}

		if err := s.enqueueNotification(monitor, user, tx, txEvent, eventName, quantity); err != nil {
			logrus.WithFields(logrus.Fields{
				"txid":       tx.TXID,
				"monitor_id": monitor.ID,
			}).Errorf("error.notification: %s", err)
		}
	}
}

// send-монитор срабатывает, когда адрес среди источников; receive - среди
// получателей. Количество для send - вся сумма транзакции, для receive -
// только доля адреса
func matchMonitor(monitor models.MonitoredAddress, tx models.ParsedTransaction) (string, float64, bool) {
	switch monitor.MonitorType {
	case models.MonitorTypeSend:
		if !containsAddress(tx.Sources, monitor.Address) {
			return "", 0, false
		}
		total := 0.0
		for _, value := range tx.Values {
			total += value
		}
		return models.MonitorTypeSend, total, true
	case models.MonitorTypeReceive:
		if !containsAddress(tx.Destinations, monitor.Address) {
			return "", 0, false
		}
		return models.MonitorTypeReceive, tx.Values[monitor.Address], true
	}
	return "", 0, false
}

func (s *NotificationService) enqueueNotification(monitor models.MonitoredAddress, user models.User,
	tx models.ParsedTransaction, txEvent events.TxEvent, eventName string, quantity float64) error {

	notification, err := s.notifications.CreateForMonitoredAddress(monitor, tx.TXID, txEvent.Confirmations, "")
	if err != nil {
		return err
	}

	payload := models.NotificationPayload{
		Event:             eventName,
		TXID:              tx.TXID,
		NotificationID:    notification.Uuid,
		Asset:             tx.Asset,
		Quantity:          quantity,
		QuantitySat:       currency.ValueToSatoshis(quantity),
		IsCounterpartyTx:  tx.IsCounterpartyTx,
		Sources:           tx.Sources,
		Destinations:      tx.Destinations,
		TransactionTime:   iso8601Unix(tx.Timestamp),
		Confirmed:         txEvent.Confirmations > 0,
		Confirmations:     txEvent.Confirmations,
		ConfirmationTime:  iso8601(txEvent.ConfirmationTime),
		BlockSeq:          txEvent.BlockSeq,
		NotifiedAddress:   monitor.Address,
		NotifiedAddressID: monitor.Uuid,
		CounterpartyTx:    tx.CounterpartyTx,
		BitcoinTx:         tx.BitcoinTx,
	}

	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := s.notifications.UpdatePayload(notification.Uuid, string(rawPayload)); err != nil {
		return err
	}

	envelope := models.NotificationEnvelope{
		Meta: models.NotificationMeta{
			ID:        notification.Uuid,
			Endpoint:  monitor.WebhookEndpoint,
			Timestamp: time.Now().Unix(),
			APIToken:  user.APIToken,
			Signature: SignPayload(rawPayload, user.APISecretKey),
			Attempt:   0,
		},
		Payload: string(rawPayload),
	}
	rawEnvelope, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	if err := s.outQueue.Publish(context.Background(), queue.NotificationsOut, rawEnvelope); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"notification_id": notification.Uuid,
		"event":           eventName,
		"txid":            tx.TXID,
		"address":         monitor.Address,
	}).Info("notification.out")
	return nil
}

// SignPayload - HMAC-SHA256 от сырого JSON payload, hex-кодировка
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func containsAddress(addresses []string, address string) bool {
	for _, a := range addresses {
		if a == address {
			return true
		}
	}
	return false
}

func iso8601(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func iso8601Unix(ts int64) string {
	if ts == 0 {
		return ""
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
