package feeoracle

import (
	"errors"

	"custody_payments_back/pkg/cache"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// HTTPFeePriority тянет ставки sat/byte по приоритетам из внешнего
// fee-оракула и держит их в кэше, чтобы не ходить за ними на каждый send
type HTTPFeePriority struct {
	client *resty.Client
	url    string
	apiKey string
}

func NewHTTPFeePriority(url string, apiKey string) *HTTPFeePriority {
	return &HTTPFeePriority{
		client: resty.New(),
		url:    url,
		apiKey: apiKey,
	}
}

func (f *HTTPFeePriority) GetFeeRates() (map[string]int64, error) {
	if rates, found := cache.GetCachedFeeRates(); found {
		return rates, nil
	}

	logrus.Infof("Запрос ставок комиссии: %s", f.url)

	resp, err := f.client.R().
		SetHeader("Accept", "application/json").
		SetHeader("X-Api-Key", f.apiKey).
		SetResult(map[string]int64{}).
		Get(f.url)
	if err != nil || resp.IsError() {
		logrus.Errorf("Ошибка при получении ставок комиссии: %v, ответ: %s", err, resp)
		return nil, errors.New("unable to fetch fee rates")
	}

	rates := *resp.Result().(*map[string]int64)
	if len(rates) == 0 {
		return nil, errors.New("fee oracle returned no rates")
	}

	cache.SetCachedFeeRates(rates)
	return rates, nil
}

func (f *HTTPFeePriority) GetSatoshisPerByte(tier string) (int64, bool) {
	rates, err := f.GetFeeRates()
	if err != nil {
		return 0, false
	}
	rate, ok := rates[tier]
	return rate, ok
}
