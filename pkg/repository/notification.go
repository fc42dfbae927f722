package repository

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"custody_payments_back/models"
)

type NotificationPostgres struct {
	db *sqlx.DB
}

func NewNotificationPostgres(db *sqlx.DB) *NotificationPostgres {
	return &NotificationPostgres{db: db}
}

const notificationColumns = `id, uuid, txid, confirmations, monitored_address_id, user_id, status, attempts, notification, created_at`

// CreateForMonitoredAddress создаёт запись с новым uuid; повторная доставка
// инкрементит attempts, но uuid записи никогда не меняется
func (r *NotificationPostgres) CreateForMonitoredAddress(monitor models.MonitoredAddress, txid string, confirmations int, payload string) (*models.Notification, error) {
	notification := models.Notification{
		Uuid:               uuid.New().String(),
		TXID:               txid,
		Confirmations:      confirmations,
		MonitoredAddressID: monitor.ID,
		UserID:             monitor.UserID,
		Status:             models.NotificationStatusNew,
		Notification:       payload,
	}

	query := `
        INSERT INTO notifications (uuid, txid, confirmations, monitored_address_id, user_id, status, attempts, notification)
        VALUES ($1, $2, $3, $4, $5, $6, 0, $7)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(query, notification.Uuid, notification.TXID, notification.Confirmations,
		notification.MonitoredAddressID, notification.UserID, notification.Status,
		notification.Notification).Scan(&notification.ID, &notification.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "create notification")
	}
	return &notification, nil
}

func (r *NotificationPostgres) FindByUuid(uid string) (*models.Notification, error) {
	var notification models.Notification
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE uuid = $1`
	if err := r.db.Get(&notification, query, uid); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &notification, nil
}

func (r *NotificationPostgres) UpdatePayload(uid string, payload string) error {
	query := `UPDATE notifications SET notification = $1 WHERE uuid = $2`
	_, err := r.db.Exec(query, payload, uid)
	return err
}

func (r *NotificationPostgres) IncrementAttempts(uid string) (int, error) {
	var attempts int
	query := `UPDATE notifications SET attempts = attempts + 1 WHERE uuid = $1 RETURNING attempts`
	err := r.db.QueryRow(query, uid).Scan(&attempts)
	return attempts, err
}

func (r *NotificationPostgres) UpdateStatus(uid string, status int, deliveryError string) error {
	query := `UPDATE notifications SET status = $1, error = NULLIF($2, '') WHERE uuid = $3`
	_, err := r.db.Exec(query, status, deliveryError, uid)
	return err
}
