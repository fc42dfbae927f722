package composer

import (
	"custody_payments_back/models"
)

// Контракт внешнего компоновщика транзакций. Оркестратор зависит
// только от этого интерфейса: выбор UTXO, расчёт размера и построение
// raw-транзакции живут за ним.

const (
	DefaultFee             = 0.0001
	DefaultRegularDustSize = 0.00005430
	BTCAsset               = "BTC"
)

type ComposedTx struct {
	TxID         string
	FeeSat       int64
	SizeBytes    int
	BalancesSent map[string]float64
	InputUtxos   []string
}

type FeeEstimate struct {
	// sat на каждый именованный приоритет
	Fees map[string]int64
	Size int
}

type PaymentAddressSender interface {
	// SendByRequestID компонует, подписывает и бродкастит транзакцию;
	// если prebuilt не nil, бродкастится он
	SendByRequestID(requestID string, address models.PaymentAddress, destinations []models.SendDestination, quantity float64, asset string, fee float64, dustSize float64, customInputs []string, prebuilt *ComposedTx) (string, error)

	ComposeUnsignedTransaction(address models.PaymentAddress, destinations []models.SendDestination, quantity float64, asset string, fee float64, feePerByte int64, dustSize float64) (*ComposedTx, error)

	SweepAllAssets(address models.PaymentAddress, destination string, fee float64, feePerByte *int64) ([]*ComposedTx, error)

	ConsolidateUTXOs(address models.PaymentAddress, maxCount int, feeTier string) (*ComposedTx, error)

	BuildFeeEstimateInfo(address models.PaymentAddress, destinations []models.SendDestination, quantity float64, asset string, dustSize float64) (*FeeEstimate, error)
}

type FeePriority interface {
	GetFeeRates() (map[string]int64, error)
	// ok=false для неизвестного приоритета
	GetSatoshisPerByte(tier string) (int64, bool)
}

// BuildAssetQuantities собирает карту "актив -> количество к списанию":
// комиссия всегда в BTC, для не-BTC активов добавляется dust-выход
func BuildAssetQuantities(quantity float64, asset string, fee float64, dustSize float64) map[string]float64 {
	assets := map[string]float64{}
	assets[asset] = quantity

	btcQuantity := fee
	if asset != BTCAsset {
		btcQuantity += dustSize
	}
	if btcQuantity > 0 {
		assets[BTCAsset] += btcQuantity
	}
	return assets
}
