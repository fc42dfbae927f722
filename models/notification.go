package models

import "time"

const (
	NotificationStatusNew    = 0
	NotificationStatusSent   = 1
	NotificationStatusFailed = 2
)

type Notification struct {
	ID                 int64     `json:"-" db:"id"`
	Uuid               string    `json:"id" db:"uuid"`
	TXID               string    `json:"txid" db:"txid"`
	Confirmations      int       `json:"confirmations" db:"confirmations"`
	MonitoredAddressID int64     `json:"monitored_address_id" db:"monitored_address_id"`
	UserID             int64     `json:"user_id" db:"user_id"`
	Status             int       `json:"status" db:"status"`
	Attempts           int       `json:"attempts" db:"attempts"`
	Notification       string    `json:"notification" db:"notification"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// NotificationPayload сериализуется в JSON и подписывается HMAC-SHA256
// секретом пользователя; порядок полей фиксирован структурой
type NotificationPayload struct {
	Event             string                 `json:"event"`
	TXID              string                 `json:"txid"`
	NotificationID    string                 `json:"notificationId"`
	Asset             string                 `json:"asset"`
	Quantity          float64                `json:"quantity"`
	QuantitySat       int64                  `json:"quantitySat"`
	IsCounterpartyTx  bool                   `json:"isCounterpartyTx"`
	Sources           []string               `json:"sources"`
	Destinations      []string               `json:"destinations"`
	TransactionTime   string                 `json:"transactionTime"`
	Confirmed         bool                   `json:"confirmed"`
	Confirmations     int                    `json:"confirmations"`
	ConfirmationTime  string                 `json:"confirmationTime"`
	BlockSeq          int                    `json:"blockSeq"`
	NotifiedAddress   string                 `json:"notifiedAddress"`
	NotifiedAddressID string                 `json:"notifiedAddressId"`
	CounterpartyTx    map[string]interface{} `json:"counterpartyTx"`
	BitcoinTx         *BitcoinTx             `json:"bitcoinTx"`
}

// NotificationEnvelope - то, что уходит в очередь доставки; подпись и токен
// едут рядом с payload, а не внутри него
type NotificationEnvelope struct {
	Meta    NotificationMeta `json:"meta"`
	Payload string           `json:"payload"`
}

type NotificationMeta struct {
	ID        string `json:"id"`
	Endpoint  string `json:"endpoint"`
	Timestamp int64  `json:"timestamp"`
	APIToken  string `json:"apiToken"`
	Signature string `json:"signature"`
	Attempt   int    `json:"attempt"`
}
