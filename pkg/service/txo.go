package service

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"custody_payments_back/models"
	"custody_payments_back/pkg/repository"
)

type TXOService struct {
	txos      repository.TXO
	addresses repository.PaymentAddress
	accounts  repository.Account
}

func NewTXOService(txos repository.TXO, addresses repository.PaymentAddress, accounts repository.Account) *TXOService {
	return &TXOService{
		txos:      txos,
		addresses: addresses,
		accounts:  accounts,
	}
}

// UpdateOrCreate - единственный путь мутации при ингесте: повторный
// прогон той же транзакции не создаёт дубликат (txid, n)
func (s *TXOService) UpdateOrCreate(attrs models.TXO, address models.PaymentAddress, account models.Account) (*models.TXO, error) {
	if attrs.TXID == "" {
		return nil, errors.New("txid is required")
	}

	existing, err := s.txos.FindByTXIDAndOffset(attrs.TXID, attrs.N)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		update := repository.TXOUpdate{
			Type:      &attrs.Type,
			Spent:     &attrs.Spent,
			Green:     &attrs.Green,
			AmountSat: &attrs.AmountSat,
		}
		if attrs.Script != "" {
			update.Script = &attrs.Script
		}
		if err := s.txos.Update(existing.ID, update); err != nil {
			return nil, err
		}
		return s.txos.FindByID(existing.ID)
	}

	attrs.PaymentAddressID = address.ID
	attrs.AccountID = account.ID
	id, err := s.txos.Create(attrs)
	if err != nil {
		return nil, err
	}
	return s.txos.FindByID(id)
}

// Transfer переводит выход между аккаунтами одного payment address
func (s *TXOService) Transfer(txo models.TXO, from models.Account, to models.Account, allowedTypes []models.TXOType) (bool, error) {
	if from.PaymentAddressID != to.PaymentAddressID {
		return false, errors.New("cannot transfer a txo between different payment addresses")
	}
	return s.txos.TransferAccounts(txo.ID, from.ID, to.ID, allowedTypes)
}

func (s *TXOService) FindByPaymentAddress(address models.PaymentAddress, filter repository.TXOFilter) ([]models.TXO, error) {
	return s.txos.FindByPaymentAddress(address.ID, filter)
}

// IngestParsedTransaction применяет распарсенную транзакцию к леджеру:
// входы гасят существующие выходы, выходы на наши адреса апсертятся
func (s *TXOService) IngestParsedTransaction(tx models.ParsedTransaction, confirmations int) error {
	if tx.BitcoinTx == nil {
		return nil
	}

	spentType := models.TXOTypeSpent
	spent := true
	for _, vin := range tx.BitcoinTx.Vins {
		existing, err := s.txos.FindByTXIDAndOffset(vin.TXID, vin.N)
		if err != nil {
			return errors.Wrap(err, "ingest vin")
		}
		if existing == nil {
			continue
		}
		err = s.txos.Update(existing.ID, repository.TXOUpdate{Type: &spentType, Spent: &spent})
		if err != nil {
			return errors.Wrap(err, "ingest vin update")
		}
	}

	txoType := models.TXOTypeUnconfirmed
	if confirmations > 0 {
		txoType = models.TXOTypeConfirmed
	}

	for _, vout := range tx.BitcoinTx.Vouts {
		if vout.Address == "" {
			continue
		}
		address, err := s.addresses.FindByAddress(vout.Address)
		if err != nil {
			return errors.Wrap(err, "ingest vout")
		}
		if address == nil {
			continue
		}
		account, err := s.accounts.FindByName(address.ID, models.DefaultAccountName)
		if err != nil {
			return errors.Wrap(err, "ingest vout account")
		}
		if account == nil {
			logrus.Errorf("default account missing for payment address %d", address.ID)
			continue
		}

		_, err = s.UpdateOrCreate(models.TXO{
			TXID:      tx.TXID,
			N:         vout.N,
			Type:      txoType,
			Spent:     false,
			Script:    vout.Script,
			AmountSat: vout.ValueSat,
		}, *address, *account)
		if err != nil {
			return errors.Wrap(err, "ingest vout upsert")
		}
	}
	return nil
}

// PruneSpent удаляет потраченные выходы старше горизонта хранения
func (s *TXOService) PruneSpent(retention time.Duration) (int64, error) {
	deleted, err := s.txos.DeleteSpentOlderThan(time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		logrus.Infof("prune: удалено %d потраченных TXO", deleted)
	}
	return deleted, nil
}
