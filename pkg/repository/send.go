package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"custody_payments_back/models"
	"custody_payments_back/pkg/locker"
)

type SendPostgres struct {
	db            *sqlx.DB
	requestLocker locker.Locker
}

func NewSendPostgres(db *sqlx.DB, requestLocker locker.Locker) *SendPostgres {
	return &SendPostgres{
		db:            db,
		requestLocker: requestLocker,
	}
}

const sendColumns = `id, uuid, request_id, user_id, payment_address_id, destination, destinations, asset, quantity_sat, fee, fee_per_byte, dust_size, is_sweep, txid, status, sent_at, created_at`

func (r *SendPostgres) FindByID(id int64) (*models.Send, error) {
	return r.findOne(`SELECT `+sendColumns+` FROM sends WHERE id = $1`, id)
}

func (r *SendPostgres) FindByUuid(uid string) (*models.Send, error) {
	return r.findOne(`SELECT `+sendColumns+` FROM sends WHERE uuid = $1`, uid)
}

func (r *SendPostgres) FindByRequestID(requestID string) (*models.Send, error) {
	return r.findOne(`SELECT `+sendColumns+` FROM sends WHERE request_id = $1`, requestID)
}

func (r *SendPostgres) findOne(query string, arg interface{}) (*models.Send, error) {
	var send models.Send
	if err := r.db.Get(&send, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &send, nil
}

func (r *SendPostgres) FindByPaymentAddress(paymentAddressID int64) ([]models.Send, error) {
	var sends []models.Send
	query := `SELECT ` + sendColumns + ` FROM sends WHERE payment_address_id = $1 ORDER BY id`
	err := r.db.Select(&sends, query, paymentAddressID)
	return sends, err
}

func (r *SendPostgres) Update(send *models.Send, txid string, sentAt time.Time) error {
	query := `UPDATE sends SET txid = $1, status = $2, sent_at = $3 WHERE id = $4`
	if _, err := r.db.Exec(query, txid, models.SendStatusComplete, sentAt, send.ID); err != nil {
		return errors.Wrap(err, "update send")
	}
	send.TXID = txid
	send.Status = models.SendStatusComplete
	send.SentAt = &sentAt
	return nil
}

// ExecuteWithNewLockedSendByRequestID гарантирует ровно одно исполнение body
// на request_id: конкурирующие дубликаты ждут на локе и потом видят результат
// первого через короткое замыкание по txid
func (r *SendPostgres) ExecuteWithNewLockedSendByRequestID(requestID string, attrs models.SendCreateAttributes, timeout time.Duration, body func(lockedSend *models.Send) error) (*models.Send, error) {
	token, err := r.requestLocker.Acquire("send-request:"+requestID, timeout)
	if err != nil {
		return nil, err
	}
	defer r.requestLocker.Release("send-request:"+requestID, token)

	send, err := r.FindByRequestID(requestID)
	if err != nil {
		return nil, err
	}
	if send == nil {
		send, err = r.create(requestID, attrs)
		if err != nil {
			return nil, err
		}
	}

	if err := body(send); err != nil {
		return send, err
	}
	return send, nil
}

func (r *SendPostgres) create(requestID string, attrs models.SendCreateAttributes) (*models.Send, error) {
	destinationsJSON := ""
	if len(attrs.Destinations) > 0 {
		raw, err := json.Marshal(attrs.Destinations)
		if err != nil {
			return nil, err
		}
		destinationsJSON = string(raw)
	}

	send := models.Send{
		Uuid:             uuid.New().String(),
		RequestID:        requestID,
		UserID:           attrs.UserID,
		PaymentAddressID: attrs.PaymentAddressID,
		Destination:      attrs.Destination,
		DestinationsJSON: destinationsJSON,
		Asset:            attrs.Asset,
		QuantitySat:      attrs.QuantitySat,
		Fee:              attrs.Fee,
		FeePerByte:       attrs.FeePerByte,
		DustSize:         attrs.DustSize,
		IsSweep:          attrs.IsSweep,
		Status:           models.SendStatusPending,
	}

	query := `
        INSERT INTO sends (uuid, request_id, user_id, payment_address_id, destination, destinations, asset, quantity_sat, fee, fee_per_byte, dust_size, is_sweep, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(query, send.Uuid, send.RequestID, send.UserID, send.PaymentAddressID,
		send.Destination, send.DestinationsJSON, send.Asset, send.QuantitySat, send.Fee,
		send.FeePerByte, send.DustSize, send.IsSweep, send.Status).Scan(&send.ID, &send.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "create send")
	}
	return &send, nil
}
