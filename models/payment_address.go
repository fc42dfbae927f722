package models

import "time"

type PaymentAddress struct {
	ID        int64     `json:"-" db:"id"`
	Uuid      string    `json:"id" db:"uuid"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Address   string    `json:"address" db:"address"`
	IsManaged bool      `json:"is_managed" db:"is_managed"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Account разделяет баланс адреса на именованные суб-леджеры;
// у каждого адреса всегда есть аккаунт "default"
type Account struct {
	ID               int64  `json:"id" db:"id"`
	PaymentAddressID int64  `json:"payment_address_id" db:"payment_address_id"`
	Name             string `json:"name" db:"name"`
}

const DefaultAccountName = "default"
