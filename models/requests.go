package models

import "errors"

// Типизированные тела запросов для /sends; взаимоисключающие параметры
// отсекаются здесь, до оркестратора

type CreateSendRequest struct {
	Destination  string            `json:"destination"`
	Destinations []SendDestination `json:"destinations"`
	Quantity     float64           `json:"quantity"`
	Asset        string            `json:"asset"`
	Sweep        bool              `json:"sweep"`
	Fee          *float64          `json:"fee"`
	FeeRate      string            `json:"feeRate"`
	DustSize     *float64          `json:"dust_size"`
	RequestID    string            `json:"requestId"`
	UTXOOverride []string          `json:"utxo_override"`
	Account      string            `json:"account"`
	Unconfirmed  bool              `json:"unconfirmed"`
}

var (
	ErrFeeRateWithFee      = errors.New("You cannot specify a fee rate and a fee.")
	ErrFeeRateWithUTXOs    = errors.New("You cannot specify a fee rate with utxo_override.")
	ErrMissingDestination  = errors.New("destination is required")
	ErrMissingDestinations = errors.New("destinations are required")
	ErrMissingQuantity     = errors.New("quantity must be greater than zero")
	ErrMissingAsset        = errors.New("asset is required")
)

func (r CreateSendRequest) Validate() error {
	if r.FeeRate != "" {
		if r.Fee != nil {
			return ErrFeeRateWithFee
		}
		if len(r.UTXOOverride) > 0 {
			return ErrFeeRateWithUTXOs
		}
	}
	if r.Destination == "" {
		return ErrMissingDestination
	}
	if r.Sweep {
		return nil
	}
	if r.Quantity <= 0 {
		return ErrMissingQuantity
	}
	if r.Asset == "" {
		return ErrMissingAsset
	}
	return nil
}

type CreateMultiSendRequest struct {
	Destinations []SendDestination `json:"destinations"`
	Fee          *float64          `json:"fee"`
	FeeRate      string            `json:"feeRate"`
	DustSize     *float64          `json:"dust_size"`
	RequestID    string            `json:"requestId"`
	Account      string            `json:"account"`
	Unconfirmed  bool              `json:"unconfirmed"`
}

func (r CreateMultiSendRequest) Validate() error {
	if r.FeeRate != "" && r.Fee != nil {
		return ErrFeeRateWithFee
	}
	if len(r.Destinations) == 0 {
		return ErrMissingDestinations
	}
	for _, dest := range r.Destinations {
		if dest.Address == "" {
			return ErrMissingDestination
		}
		if dest.Amount <= 0 {
			return ErrMissingQuantity
		}
	}
	return nil
}

type EstimateFeeRequest struct {
	Destination  string            `json:"destination"`
	Destinations []SendDestination `json:"destinations"`
	Quantity     float64           `json:"quantity"`
	Asset        string            `json:"asset"`
	DustSize     *float64          `json:"dust_size"`
	Account      string            `json:"account"`
	Unconfirmed  bool              `json:"unconfirmed"`
}

func (r EstimateFeeRequest) Validate() error {
	if len(r.Destinations) > 0 {
		for _, dest := range r.Destinations {
			if dest.Address == "" {
				return ErrMissingDestination
			}
			if dest.Amount <= 0 {
				return ErrMissingQuantity
			}
		}
		return nil
	}
	if r.Destination == "" {
		return ErrMissingDestination
	}
	if r.Quantity <= 0 {
		return ErrMissingQuantity
	}
	if r.Asset == "" {
		return ErrMissingAsset
	}
	return nil
}

type CleanupRequest struct {
	MaxUTXOs int    `json:"max_utxos"`
	Priority string `json:"priority"`
}

func (r CleanupRequest) Validate() error {
	if r.MaxUTXOs <= 0 {
		return errors.New("max_utxos must be greater than zero")
	}
	return nil
}
