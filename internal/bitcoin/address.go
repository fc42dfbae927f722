package bitcoin

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// ValidateAddress проверяет, что строка - валидный bitcoin-адрес
// для указанной сети ("mainnet" или "testnet")
func ValidateAddress(address string, network string) error {
	params := NetworkParams(network)
	decoded, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return fmt.Errorf("invalid address %s: %v", address, err)
	}
	if !decoded.IsForNet(params) {
		return fmt.Errorf("address %s is not valid for %s", address, network)
	}
	return nil
}

func NetworkParams(network string) *chaincfg.Params {
	if network == "testnet" {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}
