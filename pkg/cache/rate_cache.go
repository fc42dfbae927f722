package cache

import (
	"sync"
	"time"
)

type cachedRates struct {
	Rates     map[string]int64
	Timestamp time.Time
}

var (
	feeRates      cachedRates
	cacheDuration = 10 * time.Minute
	mu            sync.Mutex
)

// GetCachedFeeRates возвращает ставки из кэша или false, если их нет или они устарели
func GetCachedFeeRates() (map[string]int64, bool) {
	mu.Lock()
	defer mu.Unlock()

	if feeRates.Rates == nil {
		return nil, false
	}
	if time.Since(feeRates.Timestamp) > cacheDuration {
		return nil, false
	}
	return feeRates.Rates, true
}

// SetCachedFeeRates сохраняет ставки в кэш
func SetCachedFeeRates(rates map[string]int64) {
	mu.Lock()
	defer mu.Unlock()

	feeRates = cachedRates{
		Rates:     rates,
		Timestamp: time.Now(),
	}
}
