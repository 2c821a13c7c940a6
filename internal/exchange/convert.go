package exchange

import (
	"math"
	"sync"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/skalibog/bfmon/internal/monitor"
	"github.com/skalibog/bfmon/pkg/models"
)

const lotSizeFilter = "LOT_SIZE"

func marginFromAccount(a *futures.Account) models.MarginSnapshot {
	return models.MarginSnapshot{
		Scope:         models.MarginScopeBase,
		UserPL:        parseFloat(a.TotalUnrealizedProfit),
		MarginBalance: parseFloat(a.TotalMarginBalance),
		MarginNet:     parseFloat(a.AvailableBalance),
	}
}

// marketFromSymbol берет минимальный объем из фильтра LOT_SIZE,
// долю маржи из requiredMarginPercent (в процентах)
func marketFromSymbol(s futures.Symbol) models.MarketConfig {
	mc := models.MarketConfig{
		Symbol:       s.Symbol,
		MinTradeSize: math.NaN(),
		MarginFactor: parseFloat(s.RequiredMarginPercent) / 100,
	}

	for _, f := range s.Filters {
		if f["filterType"] != lotSizeFilter {
			continue
		}
		if v, ok := f["minQty"].(string); ok {
			mc.MinTradeSize = parseFloat(v)
		}
	}
	return mc
}

// positionFromRisk переводит позицию биржи; PLPerc считается к стоимости входа
func positionFromRisk(r *futures.PositionRisk) models.PositionSnapshot {
	p := models.PositionSnapshot{
		Symbol:           r.Symbol,
		BasePrice:        parseFloat(r.EntryPrice),
		Amount:           parseFloat(r.PositionAmt),
		PL:               parseFloat(r.UnRealizedProfit),
		LiquidationPrice: parseFloat(r.LiquidationPrice),
		PLPerc:           math.NaN(),
	}

	if cost := math.Abs(p.Amount) * p.BasePrice; cost > 0 {
		p.PLPerc = p.PL / cost
	}
	return p
}

// tradeFromEvent: Maker=true означает, что покупатель был мейкером, то есть сделка - продажа
func tradeFromEvent(e *futures.WsAggTradeEvent) (models.Trade, bool) {
	price := parseFloat(e.Price)
	qty := parseFloat(e.Quantity)
	if math.IsNaN(price) || math.IsNaN(qty) {
		return models.Trade{}, false
	}
	if e.Maker {
		qty = -qty
	}
	return models.Trade{Timestamp: e.TradeTime, Amount: qty, Price: price}, true
}

func candleFromKline(k futures.WsKline) (models.Candle, bool) {
	c := models.Candle{
		Timestamp: k.StartTime,
		Open:      parseFloat(k.Open),
		High:      parseFloat(k.High),
		Low:       parseFloat(k.Low),
		Close:     parseFloat(k.Close),
		Volume:    parseFloat(k.Volume),
	}
	if math.IsNaN(c.Close) {
		return models.Candle{}, false
	}
	return c, true
}

// positionTracker переводит периодические снимки позиций в события жизненного цикла.
// Первый снимок передается целиком, дальше по изменению объема: new, update, close
type positionTracker struct {
	mu      sync.Mutex
	started bool
	amounts map[string]float64
}

func newPositionTracker() *positionTracker {
	return &positionTracker{amounts: make(map[string]float64)}
}

func (t *positionTracker) apply(sink monitor.EventSink, positions []models.PositionSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		t.started = true
		open := make([]models.PositionSnapshot, 0, len(positions))
		for _, p := range positions {
			if isOpen(p) {
				open = append(open, p)
				t.amounts[p.Symbol] = p.Amount
			}
		}
		sink.OnPositionSnapshot(open)
		return
	}

	for _, p := range positions {
		_, had := t.amounts[p.Symbol]
		switch {
		case isOpen(p) && !had:
			t.amounts[p.Symbol] = p.Amount
			sink.OnPositionNew(p)
		case isOpen(p):
			t.amounts[p.Symbol] = p.Amount
			sink.OnPositionUpdate(p)
		case had:
			delete(t.amounts, p.Symbol)
			sink.OnPositionClose(p)
		}
	}
}

func isOpen(p models.PositionSnapshot) bool {
	return p.Amount != 0 && !math.IsNaN(p.Amount)
}
