package service

import (
	"sort"

	"github.com/sirupsen/logrus"

	"custody_payments_back/models"
	"custody_payments_back/pkg/composer"
	"custody_payments_back/pkg/currency"
	"custody_payments_back/pkg/repository"
)

// LedgerAccountHandler реализует балансовую арифметику поверх TXO-леджера:
// баланс аккаунта - сумма его непотраченных выходов, списание - пометка
// выходов spent. Нестандартные активы едут поверх BTC-выходов, поэтому
// проверяется только BTC-составляющая
type LedgerAccountHandler struct {
	accounts repository.Account
	txos     repository.TXO
}

func NewLedgerAccountHandler(accounts repository.Account, txos repository.TXO) *LedgerAccountHandler {
	return &LedgerAccountHandler{
		accounts: accounts,
		txos:     txos,
	}
}

func (h *LedgerAccountHandler) GetAccount(address models.PaymentAddress, name string) (*models.Account, error) {
	return h.accounts.FindByName(address.ID, name)
}

func (h *LedgerAccountHandler) AccountHasSufficientFunds(account models.Account, assets map[string]float64) (bool, error) {
	return h.hasSufficientFunds(account, assets, false)
}

func (h *LedgerAccountHandler) AccountHasSufficientConfirmedFunds(account models.Account, assets map[string]float64) (bool, error) {
	return h.hasSufficientFunds(account, assets, true)
}

func (h *LedgerAccountHandler) hasSufficientFunds(account models.Account, assets map[string]float64, confirmedOnly bool) (bool, error) {
	requiredSat := currency.ValueToSatoshis(assets[composer.BTCAsset])
	if requiredSat <= 0 {
		return true, nil
	}

	available, err := h.spendableTXOs(account, confirmedOnly)
	if err != nil {
		return false, err
	}

	totalSat := int64(0)
	for _, txo := range available {
		totalSat += txo.AmountSat
	}
	return totalSat >= requiredSat, nil
}

func (h *LedgerAccountHandler) MarkAccountFundsAsSending(account models.Account, balancesSent map[string]float64, txid string) error {
	return h.markFundsAsSending(account, balancesSent, txid, false)
}

func (h *LedgerAccountHandler) MarkConfirmedAccountFundsAsSending(account models.Account, balancesSent map[string]float64, txid string) error {
	return h.markFundsAsSending(account, balancesSent, txid, true)
}

// markFundsAsSending гасит выходы аккаунта, начиная со старейших, пока их
// сумма не покроет списываемые BTC
func (h *LedgerAccountHandler) markFundsAsSending(account models.Account, balancesSent map[string]float64, txid string, confirmedOnly bool) error {
	requiredSat := currency.ValueToSatoshis(balancesSent[composer.BTCAsset])
	if requiredSat <= 0 {
		return nil
	}

	available, err := h.spendableTXOs(account, confirmedOnly)
	if err != nil {
		return err
	}
	sort.Slice(available, func(i, j int) bool { return available[i].ID < available[j].ID })

	spentType := models.TXOTypeSpent
	spent := true
	coveredSat := int64(0)
	for _, txo := range available {
		if coveredSat >= requiredSat {
			break
		}
		err := h.txos.Update(txo.ID, repository.TXOUpdate{Type: &spentType, Spent: &spent})
		if err != nil {
			return err
		}
		coveredSat += txo.AmountSat
	}

	if coveredSat < requiredSat {
		return composer.NewPaymentError("ledger does not cover the sent amount")
	}

	logrus.WithFields(logrus.Fields{
		"account_id":  account.ID,
		"txid":        txid,
		"debited_sat": coveredSat,
	}).Info("ledger.fundsSending")
	return nil
}

// ConsolidateAllAccounts переводит непотраченные выходы всех аккаунтов
// адреса на default перед свипом
func (h *LedgerAccountHandler) ConsolidateAllAccounts(address models.PaymentAddress) error {
	accounts, err := h.accounts.FindByPaymentAddress(address.ID)
	if err != nil {
		return err
	}

	var defaultAccount *models.Account
	for i := range accounts {
		if accounts[i].Name == models.DefaultAccountName {
			defaultAccount = &accounts[i]
			break
		}
	}
	if defaultAccount == nil {
		return composer.NewPaymentError("default account missing")
	}

	for _, account := range accounts {
		if account.ID == defaultAccount.ID {
			continue
		}
		unspent := true
		txos, err := h.txos.FindByAccount(account.ID, &unspent)
		if err != nil {
			return err
		}
		for _, txo := range txos {
			if _, err := h.txos.TransferAccounts(txo.ID, account.ID, defaultAccount.ID, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *LedgerAccountHandler) spendableTXOs(account models.Account, confirmedOnly bool) ([]models.TXO, error) {
	unspent := true
	txos, err := h.txos.FindByAccount(account.ID, &unspent)
	if err != nil {
		return nil, err
	}
	if !confirmedOnly {
		return txos, nil
	}
	confirmed := txos[:0:0]
	for _, txo := range txos {
		if txo.Type == models.TXOTypeConfirmed {
			confirmed = append(confirmed, txo)
		}
	}
	return confirmed, nil
}
