package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"custody_payments_back/internal/bitcoin"
	"custody_payments_back/models"
	"custody_payments_back/pkg/composer"
	"custody_payments_back/pkg/currency"
	"custody_payments_back/pkg/repository"
)

const (
	SendLockTimeout    = 3600 * time.Second
	DefaultFeeRateDesc = "medium"
)

// Alerter дёргается, когда после успешного бродкаста не удалось
// обновить леджер - такие случаи разгребаются руками
type Alerter interface {
	ReconciliationAlert(txid string, requestID string, addressID int64, account string, cause error)
}

type SendService struct {
	sends       repository.Send
	addresses   repository.PaymentAddress
	txos        repository.TXO
	accounts    *AccountService
	sender      composer.PaymentAddressSender
	feePriority composer.FeePriority
	alerter     Alerter
	// "mainnet"/"testnet"; пустая строка отключает проверку адресов
	network string
}

func NewSendService(sends repository.Send, addresses repository.PaymentAddress, txos repository.TXO,
	accounts *AccountService, sender composer.PaymentAddressSender, feePriority composer.FeePriority,
	alerter Alerter, network string) *SendService {
	return &SendService{
		sends:       sends,
		addresses:   addresses,
		txos:        txos,
		accounts:    accounts,
		sender:      sender,
		feePriority: feePriority,
		alerter:     alerter,
		network:     network,
	}
}

// sendParams - нормализованные параметры send после валидации запроса
type sendParams struct {
	requestID    string
	destination  string
	destinations []models.SendDestination
	isMultisend  bool
	isSweep      bool
	quantitySat  int64
	asset        string
	fee          float64
	feePerByte   *int64
	dustSize     float64
	customInputs []string
	account      string
	unconfirmed  bool
}

func (s *SendService) ExecuteSend(user models.User, addressUuid string, req models.CreateSendRequest) (*models.Send, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(err.Error())
	}

	params := sendParams{
		requestID:    req.RequestID,
		destination:  req.Destination,
		isSweep:      req.Sweep,
		quantitySat:  currency.ValueToSatoshis(req.Quantity),
		asset:        req.Asset,
		fee:          composer.DefaultFee,
		dustSize:     composer.DefaultRegularDustSize,
		customInputs: req.UTXOOverride,
		account:      req.Account,
		unconfirmed:  req.Unconfirmed,
	}
	if req.Fee != nil {
		params.fee = *req.Fee
	}
	if req.DustSize != nil {
		params.dustSize = *req.DustSize
	}
	if err := s.resolveFeeRate(req.FeeRate, &params); err != nil {
		return nil, err
	}

	return s.executeSend(user, addressUuid, params)
}

func (s *SendService) ExecuteMultiSend(user models.User, addressUuid string, req models.CreateMultiSendRequest) (*models.Send, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(err.Error())
	}

	sum := 0.0
	for _, dest := range req.Destinations {
		sum += dest.Amount
	}

	params := sendParams{
		requestID:    req.RequestID,
		destinations: req.Destinations,
		isMultisend:  true,
		quantitySat:  currency.ValueToSatoshis(sum),
		asset:        composer.BTCAsset,
		fee:          composer.DefaultFee,
		dustSize:     composer.DefaultRegularDustSize,
		account:      req.Account,
		unconfirmed:  req.Unconfirmed,
	}
	if req.Fee != nil {
		params.fee = *req.Fee
	}
	if req.DustSize != nil {
		params.dustSize = *req.DustSize
	}
	if err := s.resolveFeeRate(req.FeeRate, &params); err != nil {
		return nil, err
	}

	return s.executeSend(user, addressUuid, params)
}

// в режиме fee-rate комиссия считается по фактическому размеру транзакции,
// поэтому flat fee обнуляется до компоновки
func (s *SendService) resolveFeeRate(feeRate string, params *sendParams) error {
	if feeRate == "" {
		return nil
	}
	satPerByte, ok := s.feePriority.GetSatoshisPerByte(feeRate)
	if !ok {
		return NewValidationError("Invalid fee rate")
	}
	params.feePerByte = &satPerByte
	params.fee = 0
	return nil
}

func (s *SendService) validateDestinations(params sendParams) error {
	if s.network == "" {
		return nil
	}
	destinations := params.destinations
	if params.destination != "" {
		destinations = append([]models.SendDestination{{Address: params.destination}}, destinations...)
	}
	for _, dest := range destinations {
		if err := bitcoin.ValidateAddress(dest.Address, s.network); err != nil {
			return NewValidationError(err.Error())
		}
	}
	return nil
}

func (s *SendService) executeSend(user models.User, addressUuid string, params sendParams) (*models.Send, error) {
	if err := s.validateDestinations(params); err != nil {
		return nil, err
	}

	address, err := s.resolveAddress(user, addressUuid)
	if err != nil {
		return nil, err
	}

	if params.requestID == "" {
		params.requestID = uuid.New().String()
	}

	createAttrs := models.SendCreateAttributes{
		UserID:           user.ID,
		PaymentAddressID: address.ID,
		Destination:      params.destination,
		Destinations:     params.destinations,
		Asset:            params.asset,
		QuantitySat:      params.quantitySat,
		Fee:              params.fee,
		FeePerByte:       params.feePerByte,
		DustSize:         params.dustSize,
		IsSweep:          params.isSweep,
	}

	// адресный лок снимается только после завершения closure: транзакция
	// должна закоммититься до того, как следующий send возьмёт лок
	lockToken := ""
	lockMustBeReleased := false
	lockMustBeReleasedWithDelay := false

	send, sendErr := s.sends.ExecuteWithNewLockedSendByRequestID(params.requestID, createAttrs, SendLockTimeout, func(lockedSend *models.Send) error {
		// send с этим request_id уже исполнен - возвращаем как есть,
		// без повторного бродкаста и списания
		if lockedSend.TXID != "" {
			logrus.WithFields(logrus.Fields{"request_id": params.requestID, "txid": lockedSend.TXID}).Info("send.alreadyFound")
			return nil
		}

		logrus.WithFields(logrus.Fields{
			"request_id": params.requestID,
			"address_id": address.ID,
			"asset":      params.asset,
		}).Info("send.requested")

		var txid string
		var err error
		if params.isSweep {
			txid, err = s.executeSweep(*address, params, &lockToken, &lockMustBeReleased, &lockMustBeReleasedWithDelay)
		} else {
			txid, err = s.executeRegularSend(*address, params, &lockToken, &lockMustBeReleased, &lockMustBeReleasedWithDelay)
		}
		if err != nil {
			return err
		}

		return s.sends.Update(lockedSend, txid, time.Now())
	})

	if lockMustBeReleasedWithDelay {
		s.accounts.ReleasePaymentAddressLockWithDelay(*address, lockToken)
	} else if lockMustBeReleased {
		s.accounts.ReleasePaymentAddressLock(*address, lockToken)
	}

	if sendErr != nil {
		return nil, sendErr
	}
	return send, nil
}

func (s *SendService) executeSweep(address models.PaymentAddress, params sendParams,
	lockToken *string, lockMustBeReleased *bool, lockMustBeReleasedWithDelay *bool) (string, error) {

	token, err := s.accounts.AcquirePaymentAddressLock(address)
	if err != nil {
		logrus.WithFields(logrus.Fields{"address_id": address.ID}).Errorf("error.sweep: %s", err)
		return "", err
	}
	*lockToken = token
	*lockMustBeReleased = true

	// все балансы съезжают в default до свипа
	if err := s.accounts.ConsolidateAllAccounts(address); err != nil {
		logrus.Errorf("error.sweep: %s", err)
		return "", err
	}

	sweepTxs, err := s.sender.SweepAllAssets(address, params.destination, params.fee, params.feePerByte)
	if err != nil {
		logrus.Errorf("error.sweep: %s", err)
		return "", err
	}

	account, err := s.accounts.GetAccount(address, models.DefaultAccountName)
	if err != nil {
		return "", err
	}

	txid := ""
	for _, sweepTx := range sweepTxs {
		// каждая свип-транзакция несёт ровно одну запись balances_sent
		for asset, quantity := range sweepTx.BalancesSent {
			logrus.WithFields(logrus.Fields{
				"txid":     sweepTx.TxID,
				"asset":    asset,
				"quantity": quantity,
			}).Info("sweep.broadcasted")
			break
		}
		if err := s.accounts.MarkFundsAsSending(*account, sweepTx.BalancesSent, sweepTx.TxID, true); err != nil {
			return "", err
		}

		// сохраняем последний txid (BTC-свип идёт последним)
		txid = sweepTx.TxID
	}

	*lockMustBeReleasedWithDelay = true
	return txid, nil
}

func (s *SendService) executeRegularSend(address models.PaymentAddress, params sendParams,
	lockToken *string, lockMustBeReleased *bool, lockMustBeReleasedWithDelay *bool) (string, error) {

	accountName := params.account
	if accountName == "" {
		accountName = models.DefaultAccountName
	}
	account, err := s.accounts.GetAccount(address, accountName)
	if err != nil {
		return "", err
	}
	if account == nil {
		logrus.WithFields(logrus.Fields{"address_id": address.ID, "account": accountName}).Error("error.send.accountMissing")
		return "", NewNotFoundError("This account did not exist.")
	}

	token, err := s.accounts.AcquirePaymentAddressLock(address)
	if err != nil {
		logrus.WithFields(logrus.Fields{"address_id": address.ID}).Errorf("error.pay: %s", err)
		return "", err
	}
	*lockToken = token
	*lockMustBeReleased = true

	floatQuantity := currency.SatoshisToValue(params.quantitySat)
	destinations := params.destinations
	if !params.isMultisend {
		destinations = []models.SendDestination{{Address: params.destination, Amount: floatQuantity}}
	}

	floatFee := params.fee
	var prebuilt *composer.ComposedTx
	if len(params.customInputs) == 0 && params.feePerByte != nil {
		// считаем всю транзакцию заранее, чтобы узнать фактическую комиссию
		prebuilt, err = s.sender.ComposeUnsignedTransaction(address, destinations, floatQuantity, params.asset, floatFee, *params.feePerByte, params.dustSize)
		if err != nil {
			logrus.Errorf("error.pay: %s", err)
			return "", err
		}
		if prebuilt == nil {
			return "", composer.NewPaymentError("Failed to build transaction")
		}
		floatFee = currency.SatoshisToValue(prebuilt.FeeSat)
	}

	// проверка достаточности средств; custom inputs её обходят
	if len(params.customInputs) == 0 {
		assetsToSend := composer.BuildAssetQuantities(floatQuantity, params.asset, floatFee, params.dustSize)
		hasEnough, err := s.accounts.HasSufficientFunds(*account, assetsToSend, params.unconfirmed)
		if err != nil {
			return "", err
		}
		if !hasEnough {
			logrus.WithFields(logrus.Fields{
				"address_id": address.ID,
				"account":    accountName,
				"quantity":   floatQuantity,
				"asset":      params.asset,
			}).Error("error.send.insufficient")
			confirmedWord := " confirmed"
			if params.unconfirmed {
				confirmedWord = ""
			}
			return "", NewAccountError("ERR_INSUFFICIENT_FUNDS", 400,
				"This account does not have sufficient"+confirmedWord+" funds available.")
		}
	}

	logrus.WithFields(logrus.Fields{
		"request_id": params.requestID,
		"address_id": address.ID,
		"account":    accountName,
		"quantity":   floatQuantity,
		"asset":      params.asset,
	}).Info("send.begin")

	txid, err := s.sender.SendByRequestID(params.requestID, address, destinations, floatQuantity, params.asset, floatFee, params.dustSize, params.customInputs, prebuilt)
	if err != nil {
		logrus.Errorf("error.pay: %s", err)
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"txid":       txid,
		"request_id": params.requestID,
		"address_id": address.ID,
	}).Info("send.complete")

	// транзакция уже в сети - откатить её нельзя, поэтому ошибка
	// бухгалтерии здесь логируется, но send остаётся успешным
	assetsToSend := composer.BuildAssetQuantities(floatQuantity, params.asset, floatFee, params.dustSize)
	if err := s.accounts.MarkFundsAsSending(*account, assetsToSend, txid, params.unconfirmed); err != nil {
		logrus.WithFields(logrus.Fields{
			"txid":       txid,
			"request_id": params.requestID,
			"address_id": address.ID,
			"account":    accountName,
			"quantity":   floatQuantity,
			"asset":      params.asset,
		}).Errorf("error.postPay: %s", err)
		if s.alerter != nil {
			s.alerter.ReconciliationAlert(txid, params.requestID, address.ID, accountName, err)
		}
	}

	*lockMustBeReleasedWithDelay = true
	return txid, nil
}

// EstimateFee повторяет балансовые проверки send, но не берёт локов,
// не компонует и не бродкастит
func (s *SendService) EstimateFee(user models.User, addressUuid string, req models.EstimateFeeRequest) (*composer.FeeEstimate, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(err.Error())
	}

	address, err := s.resolveAddress(user, addressUuid)
	if err != nil {
		return nil, err
	}

	isMultisend := len(req.Destinations) > 0
	destinations := req.Destinations
	quantity := req.Quantity
	asset := req.Asset
	if isMultisend {
		quantity = 0
		for _, dest := range req.Destinations {
			quantity += dest.Amount
		}
		asset = composer.BTCAsset
	} else {
		destinations = []models.SendDestination{{Address: req.Destination, Amount: req.Quantity}}
	}

	dustSize := composer.DefaultRegularDustSize
	if req.DustSize != nil {
		dustSize = *req.DustSize
	}

	account, err := s.accounts.GetAccount(*address, req.Account)
	if err != nil {
		return nil, err
	}
	if account == nil {
		logrus.WithFields(logrus.Fields{"address_id": address.ID, "account": req.Account}).Error("error.send.accountMissing")
		return nil, NewNotFoundError("This account did not exist.")
	}

	// проверяем достаточность с нулевой комиссией
	assetsToSend := composer.BuildAssetQuantities(quantity, asset, 0, dustSize)
	hasEnough, err := s.accounts.HasSufficientFunds(*account, assetsToSend, req.Unconfirmed)
	if err != nil {
		return nil, err
	}
	if !hasEnough {
		confirmedWord := " confirmed"
		if req.Unconfirmed {
			confirmedWord = ""
		}
		return nil, NewAccountError("ERR_INSUFFICIENT_FUNDS", 400,
			"This account does not have sufficient"+confirmedWord+" funds available.")
	}

	logrus.WithFields(logrus.Fields{"address_id": address.ID, "quantity": quantity, "asset": asset}).Info("estimateFee.begin")
	feeInfo, err := s.sender.BuildFeeEstimateInfo(*address, destinations, quantity, asset, dustSize)
	if err != nil {
		logrus.Errorf("error.estimateFee: %s", err)
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"address_id": address.ID, "size": feeInfo.Size}).Info("estimateFee.complete")

	return feeInfo, nil
}

type CleanupResult struct {
	BeforeUTXOsCount int    `json:"before_utxos_count"`
	AfterUTXOsCount  int    `json:"after_utxos_count"`
	CleanedUp        bool   `json:"cleaned_up"`
	TXID             string `json:"txid"`
}

// Cleanup консолидирует подтверждённые UTXO адреса в один выход
func (s *SendService) Cleanup(user models.User, addressUuid string, req models.CleanupRequest) (*CleanupResult, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(err.Error())
	}

	address, err := s.resolveAddress(user, addressUuid)
	if err != nil {
		return nil, err
	}

	unspent := true
	confirmedTXOs, err := s.txos.FindByPaymentAddress(address.ID, repository.TXOFilter{
		Types:   []models.TXOType{models.TXOTypeConfirmed},
		Unspent: &unspent,
	})
	if err != nil {
		return nil, err
	}

	utxoCountToConsolidate := len(confirmedTXOs)
	if req.MaxUTXOs < utxoCountToConsolidate {
		utxoCountToConsolidate = req.MaxUTXOs
	}
	feePriorityDesc := req.Priority
	if feePriorityDesc == "" {
		feePriorityDesc = DefaultFeeRateDesc
	}

	result := &CleanupResult{
		BeforeUTXOsCount: len(confirmedTXOs),
		AfterUTXOsCount:  len(confirmedTXOs),
	}
	if utxoCountToConsolidate > 1 {
		composedTx, err := s.sender.ConsolidateUTXOs(*address, utxoCountToConsolidate, feePriorityDesc)
		if err != nil {
			return nil, err
		}
		result.CleanedUp = true
		result.TXID = composedTx.TxID
		result.AfterUTXOsCount = result.BeforeUTXOsCount - len(composedTx.InputUtxos) + 1
	}
	return result, nil
}

func (s *SendService) FeeRates() (map[string]int64, error) {
	return s.feePriority.GetFeeRates()
}

func (s *SendService) GetSend(uid string) (*models.Send, error) {
	send, err := s.sends.FindByUuid(uid)
	if err != nil {
		return nil, err
	}
	if send == nil {
		return nil, NewNotFoundError("send not found")
	}
	return send, nil
}

func (s *SendService) resolveAddress(user models.User, addressUuid string) (*models.PaymentAddress, error) {
	address, err := s.addresses.FindByUuid(addressUuid)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, NewNotFoundError("address not found")
	}
	if address.UserID != user.ID {
		return nil, NewAuthorizationError("Not authorized to send from this address")
	}
	return address, nil
}
