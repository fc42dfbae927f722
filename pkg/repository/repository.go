package repository

import (
	"time"

	"github.com/jmoiron/sqlx"

	"custody_payments_back/models"
	"custody_payments_back/pkg/locker"
)

type Authorization interface {
	GetUserByID(id int64) (models.User, error)
	GetUserByAPIToken(token string) (models.User, error)
	CreateUser(user models.User) (int64, error)
}

type PaymentAddress interface {
	Create(address models.PaymentAddress) (int64, error)
	FindByID(id int64) (*models.PaymentAddress, error)
	FindByUuid(uuid string) (*models.PaymentAddress, error)
	FindByAddress(address string) (*models.PaymentAddress, error)
	// Delete каскадно убирает TXO, Send, Notification и оба монитора адреса
	Delete(address models.PaymentAddress) error
}

type Account interface {
	Create(account models.Account) (int64, error)
	FindByID(id int64) (*models.Account, error)
	FindByName(paymentAddressID int64, name string) (*models.Account, error)
	FindByPaymentAddress(paymentAddressID int64) ([]models.Account, error)
}

// TXOFilter - nil-поле означает "не фильтровать"
type TXOFilter struct {
	Types   []models.TXOType
	Unspent *bool
	Green   *bool
}

// TXOUpdate - nil-поле не трогается при апдейте
type TXOUpdate struct {
	AccountID *int64
	Type      *models.TXOType
	Spent     *bool
	Green     *bool
	AmountSat *int64
	Script    *string
}

type TXO interface {
	Create(txo models.TXO) (int64, error)
	FindByID(id int64) (*models.TXO, error)
	FindByTXID(txid string) ([]models.TXO, error)
	FindByTXIDAndOffset(txid string, n int) (*models.TXO, error)
	FindByPaymentAddress(paymentAddressID int64, filter TXOFilter) ([]models.TXO, error)
	FindByAccount(accountID int64, unspent *bool) ([]models.TXO, error)
	Update(id int64, update TXOUpdate) error
	UpdateByTXOIdentifiers(identifiers []string, update TXOUpdate) error
	TransferAccounts(txoID int64, fromAccountID int64, toAccountID int64, allowedTypes []models.TXOType) (bool, error)
	DeleteSpentOlderThan(horizon time.Time) (int64, error)
	DeleteByAccountID(accountID int64) (int64, error)
	DeleteByTXID(txid string) (int64, error)
}

type Send interface {
	FindByID(id int64) (*models.Send, error)
	FindByUuid(uuid string) (*models.Send, error)
	FindByRequestID(requestID string) (*models.Send, error)
	FindByPaymentAddress(paymentAddressID int64) ([]models.Send, error)
	Update(send *models.Send, txid string, sentAt time.Time) error
	// ExecuteWithNewLockedSendByRequestID держит лок по request_id на всё
	// тело body: создаёт (или находит) pending Send и отдаёт его в body
	ExecuteWithNewLockedSendByRequestID(requestID string, attrs models.SendCreateAttributes, timeout time.Duration, body func(lockedSend *models.Send) error) (*models.Send, error)
}

type MonitoredAddress interface {
	Create(monitor models.MonitoredAddress) (int64, error)
	FindByUuid(uuid string) (*models.MonitoredAddress, error)
	FindActiveByAddresses(addresses []string) ([]models.MonitoredAddress, error)
}

type Notification interface {
	CreateForMonitoredAddress(monitor models.MonitoredAddress, txid string, confirmations int, payload string) (*models.Notification, error)
	FindByUuid(uuid string) (*models.Notification, error)
	UpdatePayload(uuid string, payload string) error
	IncrementAttempts(uuid string) (int, error)
	UpdateStatus(uuid string, status int, deliveryError string) error
}

type Repository struct {
	Authorization
	PaymentAddress
	Account
	TXO
	Send
	MonitoredAddress
	Notification
}

func NewRepository(db *sqlx.DB, requestLocker locker.Locker) *Repository {
	return &Repository{
		Authorization:    NewAuthPostgres(db),
		PaymentAddress:   NewPaymentAddressPostgres(db),
		Account:          NewAccountPostgres(db),
		TXO:              NewTXOPostgres(db),
		Send:             NewSendPostgres(db, requestLocker),
		MonitoredAddress: NewMonitoredAddressPostgres(db),
		Notification:     NewNotificationPostgres(db),
	}
}
