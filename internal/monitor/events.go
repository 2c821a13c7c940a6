package monitor

import (
	"context"

	"github.com/skalibog/bfmon/pkg/models"
)

type event interface {
	kind() string
}

type tradeEvent struct {
	trade models.Trade
}

type candlesEvent struct {
	candles []models.Candle
}

type marginEvent struct {
	info models.MarginSnapshot
}

type positionOp int

const (
	positionSnapshot positionOp = iota
	positionNew
	positionUpdate
	positionClose
)

type positionEvent struct {
	op        positionOp
	positions []models.PositionSnapshot
}

type commandEvent struct {
	name  string
	fn    func(ctx context.Context) error
	reply chan error
}

func (tradeEvent) kind() string    { return "trade" }
func (candlesEvent) kind() string  { return "candles" }
func (marginEvent) kind() string   { return "margin" }
func (positionEvent) kind() string { return "position" }
func (commandEvent) kind() string  { return "command" }

// OnTrade ставит сделку в очередь
func (m *Monitor) OnTrade(trade models.Trade) {
	m.enqueueMarket(tradeEvent{trade: trade})
}

// OnCandles принимает одну свечу или пакет свечей
func (m *Monitor) OnCandles(candles ...models.Candle) {
	if len(candles) == 0 {
		return
	}
	batch := make([]models.Candle, len(candles))
	copy(batch, candles)
	m.enqueueMarket(candlesEvent{candles: batch})
}

func (m *Monitor) OnMarginInfo(info models.MarginSnapshot) {
	m.enqueueControl(marginEvent{info: info})
}

func (m *Monitor) OnPositionSnapshot(positions []models.PositionSnapshot) {
	batch := make([]models.PositionSnapshot, len(positions))
	copy(batch, positions)
	m.enqueueControl(positionEvent{op: positionSnapshot, positions: batch})
}

func (m *Monitor) OnPositionNew(p models.PositionSnapshot) {
	m.enqueueControl(positionEvent{op: positionNew, positions: []models.PositionSnapshot{p}})
}

func (m *Monitor) OnPositionUpdate(p models.PositionSnapshot) {
	m.enqueueControl(positionEvent{op: positionUpdate, positions: []models.PositionSnapshot{p}})
}

func (m *Monitor) OnPositionClose(p models.PositionSnapshot) {
	m.enqueueControl(positionEvent{op: positionClose, positions: []models.PositionSnapshot{p}})
}
