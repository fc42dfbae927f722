package service

import (
	"time"

	"custody_payments_back/pkg/composer"
	"custody_payments_back/pkg/locker"
	"custody_payments_back/pkg/queue"
	"custody_payments_back/pkg/repository"
)

type Deps struct {
	Repos          *repository.Repository
	AccountHandler AccountHandler
	AddressLocker  locker.Locker
	Sender         composer.PaymentAddressSender
	FeePriority    composer.FeePriority
	Alerter        Alerter
	OutQueue       queue.Queue
	LockTimeout    time.Duration
	Network        string
	TestMode       bool
}

type Service struct {
	Accounts      *AccountService
	Sends         *SendService
	TXOs          *TXOService
	Notifications *NotificationService
	ConsoleLog    *ConsoleEventLogger
}

func NewService(deps Deps) *Service {
	accounts := NewAccountService(deps.AccountHandler, deps.AddressLocker, deps.LockTimeout, deps.TestMode)
	return &Service{
		Accounts:      accounts,
		Sends:         NewSendService(deps.Repos.Send, deps.Repos.PaymentAddress, deps.Repos.TXO, accounts, deps.Sender, deps.FeePriority, deps.Alerter, deps.Network),
		TXOs:          NewTXOService(deps.Repos.TXO, deps.Repos.PaymentAddress, deps.Repos.Account),
		Notifications: NewNotificationService(deps.Repos.MonitoredAddress, deps.Repos.Notification, deps.Repos.Authorization, deps.OutQueue),
		ConsoleLog:    NewConsoleEventLogger(),
	}
}
