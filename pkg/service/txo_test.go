package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custody_payments_back/models"
)

type txoTestEnv struct {
	addressRepo *fakeAddressRepo
	accountRepo *fakeAccountRepo
	txoRepo     *fakeTXORepo
	address     models.PaymentAddress
	account     models.Account
	svc         *TXOService
}

func newTXOTestEnv(t *testing.T) *txoTestEnv {
	t.Helper()

	addressRepo := newFakeAddressRepo()
	addressID, err := addressRepo.Create(models.PaymentAddress{
		Uuid:      "addr-uuid",
		UserID:    1,
		Address:   "1ManagedAddr",
		IsManaged: true,
	})
	require.NoError(t, err)
	address, err := addressRepo.FindByID(addressID)
	require.NoError(t, err)

	accountRepo := newFakeAccountRepo()
	accountID, err := accountRepo.Create(models.Account{
		PaymentAddressID: addressID,
		Name:             models.DefaultAccountName,
	})
	require.NoError(t, err)
	account, err := accountRepo.FindByID(accountID)
	require.NoError(t, err)

	txoRepo := newFakeTXORepo()
	return &txoTestEnv{
		addressRepo: addressRepo,
		accountRepo: accountRepo,
		txoRepo:     txoRepo,
		address:     *address,
		account:     *account,
		svc:         NewTXOService(txoRepo, addressRepo, accountRepo),
	}
}

func TestUpdateOrCreateIsIdempotent(t *testing.T) {
	env := newTXOTestEnv(t)

	first, err := env.svc.UpdateOrCreate(models.TXO{
		TXID:      "tx-a",
		N:         0,
		Type:      models.TXOTypeUnconfirmed,
		AmountSat: 5000,
	}, env.address, env.account)
	require.NoError(t, err)

	second, err := env.svc.UpdateOrCreate(models.TXO{
		TXID:      "tx-a",
		N:         0,
		Type:      models.TXOTypeConfirmed,
		AmountSat: 5000,
	}, env.address, env.account)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "повторный апсерт не создаёт дубликат (txid, n)")
	assert.Equal(t, models.TXOTypeConfirmed, second.Type)

	all, err := env.txoRepo.FindByTXID("tx-a")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateOrCreateRequiresTXID(t *testing.T) {
	env := newTXOTestEnv(t)
	_, err := env.svc.UpdateOrCreate(models.TXO{N: 0, AmountSat: 100}, env.address, env.account)
	assert.Error(t, err)
}

func TestTransferBetweenAccounts(t *testing.T) {
	env := newTXOTestEnv(t)
	savingsID, err := env.accountRepo.Create(models.Account{
		PaymentAddressID: env.address.ID,
		Name:             "savings",
	})
	require.NoError(t, err)
	savings, err := env.accountRepo.FindByID(savingsID)
	require.NoError(t, err)

	txo, err := env.svc.UpdateOrCreate(models.TXO{
		TXID:      "tx-t",
		N:         0,
		Type:      models.TXOTypeConfirmed,
		AmountSat: 7000,
	}, env.address, env.account)
	require.NoError(t, err)

	moved, err := env.svc.Transfer(*txo, env.account, *savings, nil)
	require.NoError(t, err)
	assert.True(t, moved)

	stored, err := env.txoRepo.FindByID(txo.ID)
	require.NoError(t, err)
	assert.Equal(t, savingsID, stored.AccountID)
}

func TestTransferSkipsSpentOutputs(t *testing.T) {
	env := newTXOTestEnv(t)
	savingsID, err := env.accountRepo.Create(models.Account{
		PaymentAddressID: env.address.ID,
		Name:             "savings",
	})
	require.NoError(t, err)
	savings, err := env.accountRepo.FindByID(savingsID)
	require.NoError(t, err)

	txo, err := env.svc.UpdateOrCreate(models.TXO{
		TXID:      "tx-spent",
		N:         0,
		Type:      models.TXOTypeSpent,
		Spent:     true,
		AmountSat: 7000,
	}, env.address, env.account)
	require.NoError(t, err)

	moved, err := env.svc.Transfer(*txo, env.account, *savings, nil)
	require.NoError(t, err)
	assert.False(t, moved, "потраченный выход не переводится между аккаунтами")
}

func TestTransferRejectsCrossAddress(t *testing.T) {
	env := newTXOTestEnv(t)
	otherAddressID, err := env.addressRepo.Create(models.PaymentAddress{
		Uuid: "other-uuid", UserID: 1, Address: "1OtherAddr",
	})
	require.NoError(t, err)
	foreignID, err := env.accountRepo.Create(models.Account{
		PaymentAddressID: otherAddressID,
		Name:             models.DefaultAccountName,
	})
	require.NoError(t, err)
	foreign, err := env.accountRepo.FindByID(foreignID)
	require.NoError(t, err)

	txo, err := env.svc.UpdateOrCreate(models.TXO{
		TXID: "tx-x", N: 0, Type: models.TXOTypeConfirmed, AmountSat: 100,
	}, env.address, env.account)
	require.NoError(t, err)

	_, err = env.svc.Transfer(*txo, env.account, *foreign, nil)
	assert.Error(t, err)
}

func TestIngestParsedTransaction(t *testing.T) {
	env := newTXOTestEnv(t)

	funding, err := env.svc.UpdateOrCreate(models.TXO{
		TXID: "funding", N: 1, Type: models.TXOTypeConfirmed, AmountSat: 50000,
	}, env.address, env.account)
	require.NoError(t, err)

	tx := models.ParsedTransaction{
		TXID:         "spend",
		Sources:      []string{"1ManagedAddr"},
		Destinations: []string{"1ManagedAddr", "1External"},
		BitcoinTx: &models.BitcoinTx{
			TXID: "spend",
			Vins: []models.BitcoinIn{{TXID: "funding", N: 1, Address: "1ManagedAddr"}},
			Vouts: []models.BitcoinOut{
				{N: 0, Address: "1ManagedAddr", ValueSat: 20000, Script: "76a914"},
				{N: 1, Address: "1External", ValueSat: 29000},
			},
		},
	}

	require.NoError(t, env.svc.IngestParsedTransaction(tx, 0))

	spent, err := env.txoRepo.FindByID(funding.ID)
	require.NoError(t, err)
	assert.True(t, spent.Spent)
	assert.Equal(t, models.TXOTypeSpent, spent.Type)

	change, err := env.txoRepo.FindByTXIDAndOffset("spend", 0)
	require.NoError(t, err)
	require.NotNil(t, change, "сдача на наш адрес попадает в леджер")
	assert.Equal(t, models.TXOTypeUnconfirmed, change.Type)
	assert.Equal(t, int64(20000), change.AmountSat)

	external, err := env.txoRepo.FindByTXIDAndOffset("spend", 1)
	require.NoError(t, err)
	assert.Nil(t, external, "чужие выходы не отслеживаются")

	// повторный прогон с подтверждением: тот же выход, новый тип
	require.NoError(t, env.svc.IngestParsedTransaction(tx, 2))

	confirmed, err := env.txoRepo.FindByTXIDAndOffset("spend", 0)
	require.NoError(t, err)
	assert.Equal(t, change.ID, confirmed.ID)
	assert.Equal(t, models.TXOTypeConfirmed, confirmed.Type)

	all, err := env.txoRepo.FindByTXID("spend")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPruneSpent(t *testing.T) {
	env := newTXOTestEnv(t)

	oldSpent, err := env.svc.UpdateOrCreate(models.TXO{
		TXID: "old", N: 0, Type: models.TXOTypeSpent, Spent: true, AmountSat: 100,
	}, env.address, env.account)
	require.NoError(t, err)
	fresh, err := env.svc.UpdateOrCreate(models.TXO{
		TXID: "fresh", N: 0, Type: models.TXOTypeConfirmed, AmountSat: 100,
	}, env.address, env.account)
	require.NoError(t, err)

	env.txoRepo.mu.Lock()
	env.txoRepo.byID[oldSpent.ID].UpdatedAt = time.Now().Add(-90 * 24 * time.Hour)
	env.txoRepo.mu.Unlock()

	deleted, err := env.svc.PruneSpent(60 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	gone, err := env.txoRepo.FindByID(oldSpent.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := env.txoRepo.FindByID(fresh.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
