package models

// ParsedTransaction приходит от внешнего парсера блокчейна; не персистится,
// потребляется ингестом TXO и диспетчером нотификаций
type ParsedTransaction struct {
	TXID             string                 `json:"txid"`
	Sources          []string               `json:"sources"`
	Destinations     []string               `json:"destinations"`
	Values           map[string]float64     `json:"values"`
	Asset            string                 `json:"asset"`
	IsCounterpartyTx bool                   `json:"isCounterpartyTx"`
	Timestamp        int64                  `json:"timestamp"`
	Confirmations    int                    `json:"confirmations"`
	BitcoinTx        *BitcoinTx             `json:"bitcoinTx"`
	CounterpartyTx   map[string]interface{} `json:"counterpartyTx"`
}

type BitcoinTx struct {
	TXID  string       `json:"txid"`
	Vins  []BitcoinIn  `json:"vin"`
	Vouts []BitcoinOut `json:"vout"`
}

// BitcoinIn ссылается на потраченный выход по (txid, n)
type BitcoinIn struct {
	TXID    string `json:"txid"`
	N       int    `json:"n"`
	Address string `json:"address"`
}

type BitcoinOut struct {
	N        int    `json:"n"`
	Address  string `json:"address"`
	ValueSat int64  `json:"value_sat"`
	Script   string `json:"script"`
}
