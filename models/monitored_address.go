package models

const (
	MonitorTypeSend    = "send"
	MonitorTypeReceive = "receive"
)

// Адрес может мониториться на отправку и на получение независимо - две строки
type MonitoredAddress struct {
	ID              int64  `json:"-" db:"id"`
	Uuid            string `json:"id" db:"uuid"`
	Address         string `json:"address" db:"address"`
	MonitorType     string `json:"monitor_type" db:"monitor_type"`
	UserID          int64  `json:"user_id" db:"user_id"`
	Active          bool   `json:"active" db:"active"`
	WebhookEndpoint string `json:"webhookEndpoint" db:"webhook_endpoint"`
}
