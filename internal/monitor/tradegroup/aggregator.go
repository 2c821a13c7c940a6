// Package tradegroup группирует подряд идущие сделки одного направления.
package tradegroup

import (
	"math"

	"github.com/skalibog/bfmon/pkg/models"
)

// Пороги по умолчанию
const (
	DefaultTradeThreshold = 0.75
	DefaultGroupThreshold = 3
)

// Tier уровень выделения сделки или группы
type Tier int

const (
	TierNormal Tier = iota
	TierElevated
	TierAlert
)

func (t Tier) String() string {
	switch t {
	case TierElevated:
		return "elevated"
	case TierAlert:
		return "alert"
	default:
		return "normal"
	}
}

// Aggregator ведет текущую группу и последние группы покупок и продаж
type Aggregator struct {
	current  models.TradeGroup
	lastBuy  models.TradeGroup
	lastSell models.TradeGroup

	tradeThreshold float64
	groupThreshold float64
}

// NewAggregator создает агрегатор с порогами выделения
func NewAggregator(tradeThreshold, groupThreshold float64) *Aggregator {
	return &Aggregator{
		tradeThreshold: tradeThreshold,
		groupThreshold: groupThreshold,
	}
}

// Add учитывает сделку и возвращает текущую группу
func (a *Aggregator) Add(trade models.Trade) models.TradeGroup {
	sign := trade.Sign()

	if a.current.Empty() || sign != a.current.Side {
		a.current = models.TradeGroup{
			Side:        sign,
			TotalAmount: trade.Amount,
			TradeCount:  1,
			LastAmount:  trade.Amount,
		}
	} else {
		a.current.TotalAmount += trade.Amount
		a.current.TradeCount++
		a.current.LastAmount = trade.Amount
	}

	switch {
	case sign < 0:
		a.lastSell = a.current
	case sign > 0:
		a.lastBuy = a.current
	}
	return a.current
}

// Current текущая группа
func (a *Aggregator) Current() models.TradeGroup { return a.current }

// LastBuy последняя (возможно текущая) группа покупок
func (a *Aggregator) LastBuy() models.TradeGroup { return a.lastBuy }

// LastSell последняя (возможно текущая) группа продаж
func (a *Aggregator) LastSell() models.TradeGroup { return a.lastSell }

func (a *Aggregator) SetTradeThreshold(v float64) { a.tradeThreshold = v }
func (a *Aggregator) SetGroupThreshold(v float64) { a.groupThreshold = v }
func (a *Aggregator) TradeThreshold() float64     { return a.tradeThreshold }
func (a *Aggregator) GroupThreshold() float64     { return a.groupThreshold }

// ClassifyTrade выделяет крупную одиночную сделку
func (a *Aggregator) ClassifyTrade(amount float64) Tier {
	if math.Abs(amount) > a.tradeThreshold {
		return TierElevated
	}
	return TierNormal
}

// ClassifyGroup: группа больше порога - тревога; последняя сделка группы
// больше порога сделки - повышенный уровень
func (a *Aggregator) ClassifyGroup(g models.TradeGroup) Tier {
	if g.Empty() {
		return TierNormal
	}
	if math.Abs(g.TotalAmount) > a.groupThreshold {
		return TierAlert
	}
	return a.ClassifyTrade(g.LastAmount)
}
