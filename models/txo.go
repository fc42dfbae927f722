package models

import (
	"fmt"
	"time"
)

type TXOType int

const (
	TXOTypeUnconfirmed TXOType = 1
	TXOTypeConfirmed   TXOType = 2
	TXOTypeSpent       TXOType = 3
)

func (t TXOType) String() string {
	switch t {
	case TXOTypeUnconfirmed:
		return "unconfirmed"
	case TXOTypeConfirmed:
		return "confirmed"
	case TXOTypeSpent:
		return "spent"
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

func ParseTXOType(s string) (TXOType, error) {
	switch s {
	case "unconfirmed":
		return TXOTypeUnconfirmed, nil
	case "confirmed":
		return TXOTypeConfirmed, nil
	case "spent":
		return TXOTypeSpent, nil
	}
	return 0, fmt.Errorf("unknown txo type: %s", s)
}

// TXO - выход транзакции, уникален по паре (txid, n)
type TXO struct {
	ID               int64     `json:"id" db:"id"`
	TXID             string    `json:"txid" db:"txid"`
	N                int       `json:"n" db:"n"`
	PaymentAddressID int64     `json:"payment_address_id" db:"payment_address_id"`
	AccountID        int64     `json:"account_id" db:"account_id"`
	Type             TXOType   `json:"type" db:"type"`
	Spent            bool      `json:"spent" db:"spent"`
	Green            bool      `json:"green" db:"green"`
	Script           string    `json:"script" db:"script"`
	AmountSat        int64     `json:"amount" db:"amount"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Identifier returns the "txid:n" form used by the composer contract.
func (t TXO) Identifier() string {
	return fmt.Sprintf("%s:%d", t.TXID, t.N)
}
