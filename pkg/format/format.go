// Package format приводит суммы и цены к виду для отображения.
package format

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Placeholder выводится вместо отсутствующего или нечислового значения
const Placeholder = "-"

const (
	amountPrecision = 8
	priceSigDigits  = 5
)

// Finite сообщает, что значение пригодно для отображения
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Amount форматирует объем с точностью до 8 знаков без хвостовых нулей
func Amount(v float64) string {
	if !Finite(v) {
		return Placeholder
	}
	return decimal.NewFromFloat(v).Round(amountPrecision).String()
}

// Price форматирует цену до 5 значащих цифр
func Price(v float64) string {
	if !Finite(v) {
		return Placeholder
	}
	if v == 0 {
		return "0"
	}

	d := decimal.NewFromFloat(v)
	intDigits := len(d.Abs().Truncate(0).String())
	if d.Abs().LessThan(decimal.NewFromInt(1)) {
		// Для цен меньше единицы считаем значащие цифры после ведущих нулей
		intDigits = int(math.Floor(math.Log10(math.Abs(v)))) + 1
	}

	places := priceSigDigits - intDigits
	if places < 0 {
		places = 0
	}
	return d.Round(int32(places)).String()
}

// Percent форматирует долю как процент с двумя знаками
func Percent(frac float64) string {
	if !Finite(frac) {
		return Placeholder
	}
	return strconv.FormatFloat(frac*100, 'f', 2, 64) + "%"
}

// Quantity форматирует абсолютный объем ордера для биржи
func Quantity(v float64) string {
	return decimal.NewFromFloat(math.Abs(v)).Round(amountPrecision).String()
}
