package composer

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"custody_payments_back/models"
)

// HTTPSender - клиент внешнего компоновщика. Демон владеет ключами,
// выбирает входы, подписывает и бродкастит; здесь только транспорт
type HTTPSender struct {
	client  *resty.Client
	baseURL string
	apiKey  string
}

func NewHTTPSender(baseURL string, apiKey string, timeout time.Duration) *HTTPSender {
	client := resty.New().SetTimeout(timeout)
	return &HTTPSender{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type composeRequest struct {
	RequestID    string                   `json:"request_id,omitempty"`
	Address      string                   `json:"address"`
	Destinations []models.SendDestination `json:"destinations"`
	Quantity     float64                  `json:"quantity"`
	Asset        string                   `json:"asset"`
	Fee          float64                  `json:"fee"`
	FeePerByte   int64                    `json:"fee_per_byte,omitempty"`
	DustSize     float64                  `json:"dust_size"`
	CustomInputs []string                 `json:"custom_inputs,omitempty"`
}

type composedTxResponse struct {
	TxID         string             `json:"txid"`
	FeeSat       int64              `json:"fee_sat"`
	SizeBytes    int                `json:"size_bytes"`
	BalancesSent map[string]float64 `json:"balances_sent"`
	InputUtxos   []string           `json:"input_utxos"`
	RawTx        string             `json:"raw_tx"`
}

func (r composedTxResponse) toComposedTx() *ComposedTx {
	return &ComposedTx{
		TxID:         r.TxID,
		FeeSat:       r.FeeSat,
		SizeBytes:    r.SizeBytes,
		BalancesSent: r.BalancesSent,
		InputUtxos:   r.InputUtxos,
	}
}

func (s *HTTPSender) post(path string, body interface{}, result interface{}) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Api-Key", s.apiKey).
		SetBody(body).
		SetResult(result).
		Post(s.baseURL + path)
	if err != nil {
		return errors.Wrap(err, "composer request")
	}
	if resp.StatusCode() >= 300 {
		logrus.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode()}).Errorf("error.composer: %s", resp.String())
		return NewPaymentError(fmt.Sprintf("composer returned %d", resp.StatusCode()))
	}
	return nil
}

func (s *HTTPSender) SendByRequestID(requestID string, address models.PaymentAddress, destinations []models.SendDestination,
	quantity float64, asset string, fee float64, dustSize float64, customInputs []string, prebuilt *ComposedTx) (string, error) {

	req := composeRequest{
		RequestID:    requestID,
		Address:      address.Address,
		Destinations: destinations,
		Quantity:     quantity,
		Asset:        asset,
		Fee:          fee,
		DustSize:     dustSize,
		CustomInputs: customInputs,
	}
	// предрассчитанная транзакция пинит те же входы, чтобы бродкаст
	// совпал с тем, что было посчитано
	if prebuilt != nil {
		req.CustomInputs = prebuilt.InputUtxos
	}

	var result composedTxResponse
	if err := s.post("/send", req, &result); err != nil {
		return "", err
	}
	if result.TxID == "" {
		return "", NewPaymentError("composer returned no txid")
	}
	return result.TxID, nil
}

func (s *HTTPSender) ComposeUnsignedTransaction(address models.PaymentAddress, destinations []models.SendDestination,
	quantity float64, asset string, fee float64, feePerByte int64, dustSize float64) (*ComposedTx, error) {

	req := composeRequest{
		Address:      address.Address,
		Destinations: destinations,
		Quantity:     quantity,
		Asset:        asset,
		Fee:          fee,
		FeePerByte:   feePerByte,
		DustSize:     dustSize,
	}

	var result composedTxResponse
	if err := s.post("/compose", req, &result); err != nil {
		return nil, err
	}
	return result.toComposedTx(), nil
}

func (s *HTTPSender) SweepAllAssets(address models.PaymentAddress, destination string, fee float64, feePerByte *int64) ([]*ComposedTx, error) {
	req := composeRequest{
		Address:      address.Address,
		Destinations: []models.SendDestination{{Address: destination}},
		Fee:          fee,
	}
	if feePerByte != nil {
		req.FeePerByte = *feePerByte
	}

	var result []composedTxResponse
	if err := s.post("/sweep", req, &result); err != nil {
		return nil, err
	}

	composed := make([]*ComposedTx, 0, len(result))
	for _, r := range result {
		composed = append(composed, r.toComposedTx())
	}
	return composed, nil
}

func (s *HTTPSender) ConsolidateUTXOs(address models.PaymentAddress, maxCount int, feeTier string) (*ComposedTx, error) {
	req := map[string]interface{}{
		"address":   address.Address,
		"max_utxos": maxCount,
		"priority":  feeTier,
	}

	var result composedTxResponse
	if err := s.post("/consolidate", req, &result); err != nil {
		return nil, err
	}
	return result.toComposedTx(), nil
}

func (s *HTTPSender) BuildFeeEstimateInfo(address models.PaymentAddress, destinations []models.SendDestination,
	quantity float64, asset string, dustSize float64) (*FeeEstimate, error) {

	req := composeRequest{
		Address:      address.Address,
		Destinations: destinations,
		Quantity:     quantity,
		Asset:        asset,
		DustSize:     dustSize,
	}

	var result struct {
		Fees map[string]int64 `json:"fees"`
		Size int              `json:"size"`
	}
	if err := s.post("/estimate", req, &result); err != nil {
		return nil, err
	}
	return &FeeEstimate{Fees: result.Fees, Size: result.Size}, nil
}
