package currency

import "github.com/shopspring/decimal"

// Конвертация float-значений в сатоши и обратно через decimal,
// чтобы не ловить ошибки округления float64

const satoshisPerUnit = 100000000

var satoshisPerUnitDec = decimal.NewFromInt(satoshisPerUnit)

func ValueToSatoshis(value float64) int64 {
	return decimal.NewFromFloat(value).Mul(satoshisPerUnitDec).Round(0).IntPart()
}

func SatoshisToValue(satoshis int64) float64 {
	value, _ := decimal.NewFromInt(satoshis).Div(satoshisPerUnitDec).Float64()
	return value
}
