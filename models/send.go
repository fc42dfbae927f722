package models

import "time"

const (
	SendStatusPending  = "pending"
	SendStatusComplete = "complete"
)

// Send с непустым txid - терминальное состояние, повторный запрос
// с тем же request_id возвращает её как есть
type Send struct {
	ID               int64      `json:"-" db:"id"`
	Uuid             string     `json:"id" db:"uuid"`
	RequestID        string     `json:"requestId" db:"request_id"`
	UserID           int64      `json:"user_id" db:"user_id"`
	PaymentAddressID int64      `json:"payment_address_id" db:"payment_address_id"`
	Destination      string     `json:"destination" db:"destination"`
	DestinationsJSON string     `json:"-" db:"destinations"`
	Asset            string     `json:"asset" db:"asset"`
	QuantitySat      int64      `json:"quantitySat" db:"quantity_sat"`
	Fee              float64    `json:"fee" db:"fee"`
	FeePerByte       *int64     `json:"feePerByte" db:"fee_per_byte"`
	DustSize         float64    `json:"dustSize" db:"dust_size"`
	IsSweep          bool       `json:"sweep" db:"is_sweep"`
	TXID             string     `json:"txid" db:"txid"`
	Status           string     `json:"status" db:"status"`
	SentAt           *time.Time `json:"sent" db:"sent_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// SendCreateAttributes is everything the orchestrator persists when the
// pending Send row is first created under the request lock.
type SendCreateAttributes struct {
	UserID           int64
	PaymentAddressID int64
	Destination      string
	Destinations     []SendDestination
	Asset            string
	QuantitySat      int64
	Fee              float64
	FeePerByte       *int64
	DustSize         float64
	IsSweep          bool
}

type SendDestination struct {
	Address string  `json:"address"`
	Amount  float64 `json:"amount"`
}
