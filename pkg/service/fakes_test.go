package service

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"custody_payments_back/models"
	"custody_payments_back/pkg/composer"
	"custody_payments_back/pkg/locker"
	"custody_payments_back/pkg/repository"
)

// In-memory реализации репозиториев и коллабораторов для тестов сервисов.

type fakeAddressRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.PaymentAddress
}

func newFakeAddressRepo() *fakeAddressRepo {
	return &fakeAddressRepo{byID: map[int64]*models.PaymentAddress{}}
}

func (r *fakeAddressRepo) Create(address models.PaymentAddress) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	address.ID = r.nextID
	if address.Uuid == "" {
		address.Uuid = uuid.New().String()
	}
	r.byID[address.ID] = &address
	return address.ID, nil
}

func (r *fakeAddressRepo) FindByID(id int64) (*models.PaymentAddress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if address, ok := r.byID[id]; ok {
		copied := *address
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeAddressRepo) FindByUuid(uid string) (*models.PaymentAddress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, address := range r.byID {
		if address.Uuid == uid {
			copied := *address
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeAddressRepo) FindByAddress(addr string) (*models.PaymentAddress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, address := range r.byID {
		if address.Address == addr {
			copied := *address
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeAddressRepo) Delete(address models.PaymentAddress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, address.ID)
	return nil
}

type fakeAccountRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byID: map[int64]*models.Account{}}
}

func (r *fakeAccountRepo) Create(account models.Account) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	account.ID = r.nextID
	r.byID[account.ID] = &account
	return account.ID, nil
}

func (r *fakeAccountRepo) FindByID(id int64) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account, ok := r.byID[id]; ok {
		copied := *account
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeAccountRepo) FindByName(paymentAddressID int64, name string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.byID {
		if account.PaymentAddressID == paymentAddressID && account.Name == name {
			copied := *account
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) FindByPaymentAddress(paymentAddressID int64) ([]models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var accounts []models.Account
	for _, account := range r.byID {
		if account.PaymentAddressID == paymentAddressID {
			accounts = append(accounts, *account)
		}
	}
	return accounts, nil
}

type fakeTXORepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.TXO
}

func newFakeTXORepo() *fakeTXORepo {
	return &fakeTXORepo{byID: map[int64]*models.TXO{}}
}

func (r *fakeTXORepo) Create(txo models.TXO) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if txo.TXID == "" {
		return 0, errors.New("txid is required")
	}
	if txo.Type == 0 {
		txo.Type = models.TXOTypeConfirmed
	}
	r.nextID++
	txo.ID = r.nextID
	txo.UpdatedAt = time.Now()
	r.byID[txo.ID] = &txo
	return txo.ID, nil
}

func (r *fakeTXORepo) FindByID(id int64) (*models.TXO, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if txo, ok := r.byID[id]; ok {
		copied := *txo
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeTXORepo) FindByTXID(txid string) ([]models.TXO, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var txos []models.TXO
	for _, txo := range r.byID {
		if txo.TXID == txid {
			txos = append(txos, *txo)
		}
	}
	return txos, nil
}

func (r *fakeTXORepo) FindByTXIDAndOffset(txid string, n int) (*models.TXO, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, txo := range r.byID {
		if txo.TXID == txid && txo.N == n {
			copied := *txo
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeTXORepo) FindByPaymentAddress(paymentAddressID int64, filter repository.TXOFilter) ([]models.TXO, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var txos []models.TXO
	for _, txo := range r.byID {
		if txo.PaymentAddressID != paymentAddressID {
			continue
		}
		if !matchesFilter(*txo, filter) {
			continue
		}
		txos = append(txos, *txo)
	}
	return txos, nil
}

func matchesFilter(txo models.TXO, filter repository.TXOFilter) bool {
	if len(filter.Types) > 0 {
		found := false
		for _, t := range filter.Types {
			if txo.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Unspent != nil && txo.Spent == *filter.Unspent {
		return false
	}
	if filter.Green != nil && txo.Green != *filter.Green {
		return false
	}
	return true
}

func (r *fakeTXORepo) FindByAccount(accountID int64, unspent *bool) ([]models.TXO, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var txos []models.TXO
	for _, txo := range r.byID {
		if txo.AccountID != accountID {
			continue
		}
		if unspent != nil && txo.Spent == *unspent {
			continue
		}
		txos = append(txos, *txo)
	}
	return txos, nil
}

func (r *fakeTXORepo) Update(id int64, update repository.TXOUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	txo, ok := r.byID[id]
	if !ok {
		return errors.New("txo not found")
	}
	applyTXOUpdate(txo, update)
	return nil
}

func applyTXOUpdate(txo *models.TXO, update repository.TXOUpdate) {
	if update.AccountID != nil {
		txo.AccountID = *update.AccountID
	}
	if update.Type != nil {
		txo.Type = *update.Type
	}
	if update.Spent != nil {
		txo.Spent = *update.Spent
	}
	if update.Green != nil {
		txo.Green = *update.Green
	}
	if update.AmountSat != nil {
		txo.AmountSat = *update.AmountSat
	}
	if update.Script != nil {
		txo.Script = *update.Script
	}
	txo.UpdatedAt = time.Now()
}

func (r *fakeTXORepo) UpdateByTXOIdentifiers(identifiers []string, update repository.TXOUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, identifier := range identifiers {
		parts := strings.SplitN(identifier, ":", 2)
		if len(parts) != 2 {
			return errors.Errorf("bad txo identifier: %s", identifier)
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return err
		}
		for _, txo := range r.byID {
			if txo.TXID == parts[0] && txo.N == n {
				applyTXOUpdate(txo, update)
			}
		}
	}
	return nil
}

func (r *fakeTXORepo) TransferAccounts(txoID int64, fromAccountID int64, toAccountID int64, allowedTypes []models.TXOType) (bool, error) {
	if allowedTypes == nil {
		allowedTypes = []models.TXOType{models.TXOTypeUnconfirmed, models.TXOTypeConfirmed}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	txo, ok := r.byID[txoID]
	if !ok || txo.AccountID != fromAccountID {
		return false, nil
	}
	for _, t := range allowedTypes {
		if txo.Type == t {
			txo.AccountID = toAccountID
			txo.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTXORepo) DeleteSpentOlderThan(horizon time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := int64(0)
	for id, txo := range r.byID {
		if txo.Spent && txo.UpdatedAt.Before(horizon) {
			delete(r.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeTXORepo) DeleteByAccountID(accountID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := int64(0)
	for id, txo := range r.byID {
		if txo.AccountID == accountID {
			delete(r.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeTXORepo) DeleteByTXID(txid string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := int64(0)
	for id, txo := range r.byID {
		if txo.TXID == txid {
			delete(r.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

// fakeSendRepo повторяет семантику постгрес-реализации: лок по request_id
// держится на всё тело, pending создаётся только под локом
type fakeSendRepo struct {
	mu            sync.Mutex
	nextID        int64
	byID          map[int64]*models.Send
	requestLocker locker.Locker
}

func newFakeSendRepo() *fakeSendRepo {
	return &fakeSendRepo{
		byID:          map[int64]*models.Send{},
		requestLocker: locker.NewMemoryLocker(),
	}
}

func (r *fakeSendRepo) FindByID(id int64) (*models.Send, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if send, ok := r.byID[id]; ok {
		copied := *send
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeSendRepo) FindByUuid(uid string) (*models.Send, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, send := range r.byID {
		if send.Uuid == uid {
			copied := *send
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeSendRepo) FindByRequestID(requestID string) (*models.Send, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByRequestIDLocked(requestID), nil
}

func (r *fakeSendRepo) findByRequestIDLocked(requestID string) *models.Send {
	for _, send := range r.byID {
		if send.RequestID == requestID {
			copied := *send
			return &copied
		}
	}
	return nil
}

func (r *fakeSendRepo) FindByPaymentAddress(paymentAddressID int64) ([]models.Send, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sends []models.Send
	for _, send := range r.byID {
		if send.PaymentAddressID == paymentAddressID {
			sends = append(sends, *send)
		}
	}
	return sends, nil
}

func (r *fakeSendRepo) Update(send *models.Send, txid string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[send.ID]
	if !ok {
		return errors.New("send not found")
	}
	stored.TXID = txid
	stored.SentAt = &sentAt
	stored.Status = models.SendStatusComplete
	send.TXID = txid
	send.SentAt = &sentAt
	send.Status = models.SendStatusComplete
	return nil
}

func (r *fakeSendRepo) ExecuteWithNewLockedSendByRequestID(requestID string, attrs models.SendCreateAttributes,
	timeout time.Duration, body func(lockedSend *models.Send) error) (*models.Send, error) {

	token, err := r.requestLocker.Acquire("send-request:"+requestID, timeout)
	if err != nil {
		return nil, err
	}
	defer r.requestLocker.Release("send-request:"+requestID, token)

	r.mu.Lock()
	send := r.findByRequestIDLocked(requestID)
	if send == nil {
		r.nextID++
		send = &models.Send{
			ID:               r.nextID,
			Uuid:             uuid.New().String(),
			RequestID:        requestID,
			UserID:           attrs.UserID,
			PaymentAddressID: attrs.PaymentAddressID,
			Destination:      attrs.Destination,
			Asset:            attrs.Asset,
			QuantitySat:      attrs.QuantitySat,
			Fee:              attrs.Fee,
			FeePerByte:       attrs.FeePerByte,
			DustSize:         attrs.DustSize,
			IsSweep:          attrs.IsSweep,
			Status:           models.SendStatusPending,
			CreatedAt:        time.Now(),
		}
		stored := *send
		r.byID[send.ID] = &stored
	}
	r.mu.Unlock()

	if err := body(send); err != nil {
		return nil, err
	}
	return r.FindByID(send.ID)
}

type fakeSender struct {
	mu           sync.Mutex
	sendCalls    int
	sendTxID     string
	sendErr      error
	composeTx    *composer.ComposedTx
	composeErr   error
	sweepTxs     []*composer.ComposedTx
	sweepErr     error
	consolidated *composer.ComposedTx
	estimate     *composer.FeeEstimate
}

func (s *fakeSender) SendByRequestID(requestID string, address models.PaymentAddress, destinations []models.SendDestination,
	quantity float64, asset string, fee float64, dustSize float64, customInputs []string, prebuilt *composer.ComposedTx) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return "", s.sendErr
	}
	s.sendCalls++
	return s.sendTxID, nil
}

func (s *fakeSender) ComposeUnsignedTransaction(address models.PaymentAddress, destinations []models.SendDestination,
	quantity float64, asset string, fee float64, feePerByte int64, dustSize float64) (*composer.ComposedTx, error) {
	if s.composeErr != nil {
		return nil, s.composeErr
	}
	return s.composeTx, nil
}

func (s *fakeSender) SweepAllAssets(address models.PaymentAddress, destination string, fee float64, feePerByte *int64) ([]*composer.ComposedTx, error) {
	if s.sweepErr != nil {
		return nil, s.sweepErr
	}
	return s.sweepTxs, nil
}

func (s *fakeSender) ConsolidateUTXOs(address models.PaymentAddress, maxCount int, feeTier string) (*composer.ComposedTx, error) {
	return s.consolidated, nil
}

func (s *fakeSender) BuildFeeEstimateInfo(address models.PaymentAddress, destinations []models.SendDestination,
	quantity float64, asset string, dustSize float64) (*composer.FeeEstimate, error) {
	return s.estimate, nil
}

func (s *fakeSender) broadcasts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendCalls
}

type fakeFeePriority struct {
	rates map[string]int64
}

func (f *fakeFeePriority) GetFeeRates() (map[string]int64, error) {
	return f.rates, nil
}

func (f *fakeFeePriority) GetSatoshisPerByte(tier string) (int64, bool) {
	rate, ok := f.rates[tier]
	return rate, ok
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts int
}

func (a *fakeAlerter) ReconciliationAlert(txid string, requestID string, addressID int64, account string, cause error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts++
}

func (a *fakeAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alerts
}

type fakeMonitorRepo struct {
	mu       sync.Mutex
	nextID   int64
	monitors []models.MonitoredAddress
}

func (r *fakeMonitorRepo) Create(monitor models.MonitoredAddress) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	monitor.ID = r.nextID
	if monitor.Uuid == "" {
		monitor.Uuid = uuid.New().String()
	}
	r.monitors = append(r.monitors, monitor)
	return monitor.ID, nil
}

func (r *fakeMonitorRepo) FindByUuid(uid string) (*models.MonitoredAddress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, monitor := range r.monitors {
		if monitor.Uuid == uid {
			copied := monitor
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeMonitorRepo) FindActiveByAddresses(addresses []string) ([]models.MonitoredAddress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []models.MonitoredAddress
	for _, monitor := range r.monitors {
		if !monitor.Active {
			continue
		}
		for _, address := range addresses {
			if monitor.Address == address {
				matched = append(matched, monitor)
				break
			}
		}
	}
	return matched, nil
}

type fakeNotificationRepo struct {
	mu     sync.Mutex
	byUuid map[string]*models.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{byUuid: map[string]*models.Notification{}}
}

func (r *fakeNotificationRepo) CreateForMonitoredAddress(monitor models.MonitoredAddress, txid string, confirmations int, payload string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	notification := models.Notification{
		ID:                 int64(len(r.byUuid) + 1),
		Uuid:               uuid.New().String(),
		TXID:               txid,
		Confirmations:      confirmations,
		MonitoredAddressID: monitor.ID,
		UserID:             monitor.UserID,
		Status:             models.NotificationStatusNew,
		Notification:       payload,
		CreatedAt:          time.Now(),
	}
	stored := notification
	r.byUuid[notification.Uuid] = &stored
	return &notification, nil
}

func (r *fakeNotificationRepo) FindByUuid(uid string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if notification, ok := r.byUuid[uid]; ok {
		copied := *notification
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeNotificationRepo) UpdatePayload(uid string, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	notification, ok := r.byUuid[uid]
	if !ok {
		return errors.New("notification not found")
	}
	notification.Notification = payload
	return nil
}

func (r *fakeNotificationRepo) IncrementAttempts(uid string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	notification, ok := r.byUuid[uid]
	if !ok {
		return 0, errors.New("notification not found")
	}
	notification.Attempts++
	return notification.Attempts, nil
}

func (r *fakeNotificationRepo) UpdateStatus(uid string, status int, deliveryError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	notification, ok := r.byUuid[uid]
	if !ok {
		return errors.New("notification not found")
	}
	notification.Status = status
	return nil
}

type fakeAuthRepo struct {
	users map[int64]models.User
}

func (r *fakeAuthRepo) GetUserByID(id int64) (models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return models.User{}, errors.New("user not found")
	}
	return user, nil
}

func (r *fakeAuthRepo) GetUserByAPIToken(token string) (models.User, error) {
	for _, user := range r.users {
		if user.APIToken == token {
			return user, nil
		}
	}
	return models.User{}, errors.New("user not found")
}

func (r *fakeAuthRepo) CreateUser(user models.User) (int64, error) {
	if r.users == nil {
		r.users = map[int64]models.User{}
	}
	id := int64(len(r.users) + 1)
	user.ID = id
	r.users[id] = user
	return id, nil
}
