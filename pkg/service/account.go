package service

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"custody_payments_back/models"
	"custody_payments_back/pkg/locker"
)

// AccountHandler - внешний коллаборатор, владеющий леджер-проводками
// аккаунтов; балансовая арифметика живёт за этим интерфейсом
type AccountHandler interface {
	GetAccount(address models.PaymentAddress, name string) (*models.Account, error)
	AccountHasSufficientFunds(account models.Account, assets map[string]float64) (bool, error)
	AccountHasSufficientConfirmedFunds(account models.Account, assets map[string]float64) (bool, error)
	MarkAccountFundsAsSending(account models.Account, balancesSent map[string]float64, txid string) error
	MarkConfirmedAccountFundsAsSending(account models.Account, balancesSent map[string]float64, txid string) error
	ConsolidateAllAccounts(address models.PaymentAddress) error
}

// задержка перед снятием адресного лока после успешного send: даём ноду
// время увидеть потраченные выходы, чтобы следующий send их не выбрал снова
const paymentAddressLockReleaseDelay = 1500 * time.Millisecond

type AccountService struct {
	handler       AccountHandler
	addressLocker locker.Locker
	lockTimeout   time.Duration
	testMode      bool
}

func NewAccountService(handler AccountHandler, addressLocker locker.Locker, lockTimeout time.Duration, testMode bool) *AccountService {
	return &AccountService{
		handler:       handler,
		addressLocker: addressLocker,
		lockTimeout:   lockTimeout,
		testMode:      testMode,
	}
}

func (s *AccountService) GetAccount(address models.PaymentAddress, name string) (*models.Account, error) {
	if name == "" {
		name = models.DefaultAccountName
	}
	return s.handler.GetAccount(address, name)
}

func (s *AccountService) HasSufficientFunds(account models.Account, assets map[string]float64, allowUnconfirmed bool) (bool, error) {
	if allowUnconfirmed {
		return s.handler.AccountHasSufficientFunds(account, assets)
	}
	return s.handler.AccountHasSufficientConfirmedFunds(account, assets)
}

func (s *AccountService) MarkFundsAsSending(account models.Account, balancesSent map[string]float64, txid string, allowUnconfirmed bool) error {
	if allowUnconfirmed {
		return s.handler.MarkAccountFundsAsSending(account, balancesSent, txid)
	}
	return s.handler.MarkConfirmedAccountFundsAsSending(account, balancesSent, txid)
}

func (s *AccountService) ConsolidateAllAccounts(address models.PaymentAddress) error {
	return s.handler.ConsolidateAllAccounts(address)
}

func addressLockKey(address models.PaymentAddress) string {
	return fmt.Sprintf("payment-address:%d", address.ID)
}

// AcquirePaymentAddressLock сериализует все send-ы одного адреса
// независимо от request_id; неудача - жёсткая ошибка, без ретраев
func (s *AccountService) AcquirePaymentAddressLock(address models.PaymentAddress) (string, error) {
	return s.addressLocker.Acquire(addressLockKey(address), s.lockTimeout)
}

func (s *AccountService) ReleasePaymentAddressLock(address models.PaymentAddress, token string) {
	if err := s.addressLocker.Release(addressLockKey(address), token); err != nil {
		logrus.Errorf("Ошибка при снятии лока адреса %d: %s", address.ID, err)
	}
}

func (s *AccountService) ReleasePaymentAddressLockWithDelay(address models.PaymentAddress, token string) {
	if s.testMode {
		s.ReleasePaymentAddressLock(address, token)
		return
	}
	logrus.Debugf("delaying for %s before releasing payment address lock", paymentAddressLockReleaseDelay)
	if err := s.addressLocker.ReleaseAfterDelay(addressLockKey(address), token, paymentAddressLockReleaseDelay); err != nil {
		logrus.Errorf("Ошибка при отложенном снятии лока адреса %d: %s", address.ID, err)
	}
}
