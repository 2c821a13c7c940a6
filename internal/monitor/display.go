package monitor

import (
	"github.com/skalibog/bfmon/internal/monitor/chart"
	"github.com/skalibog/bfmon/internal/monitor/prime"
	"github.com/skalibog/bfmon/internal/monitor/session"
	"github.com/skalibog/bfmon/internal/monitor/tradegroup"
	"github.com/skalibog/bfmon/pkg/models"
)

// Display получает события обновления экрана. Вызывается из цикла событий,
// возвращаемые значения не используются
type Display interface {
	Status(Status)
	Position(session.PositionView)
	TradeGroups(GroupsView)
	Trade(TradeLine)
	Chart(chart.Chart)
	OrderLog([]OrderLine)
	EngineStatus(EngineStatus)
	Console(line string)
}

// Status содержимое панели статуса
type Status struct {
	Symbol         string
	LastPrice      string
	Session        session.Derived
	TradeSizeAlert float64
	GroupSizeAlert float64
	// QuickOrderSize 0 - не задан
	QuickOrderSize float64
	Primes         []models.PrimeRule
}

// GroupsView текущая группа и последние группы покупок и продаж с уровнями
type GroupsView struct {
	Current     models.TradeGroup
	CurrentTier tradegroup.Tier
	LastBuy     models.TradeGroup
	BuyTier     tradegroup.Tier
	LastSell    models.TradeGroup
	SellTier    tradegroup.Tier
}

// TradeLine строка журнала сделок
type TradeLine struct {
	Trade models.Trade
	Tier  tradegroup.Tier
}

// OrderLine строка журнала ордеров с относительным временем отправки
type OrderLine struct {
	Order models.Order
	Age   string
}

// EngineStatus состояние движка праймов; Blink переключается по таймеру в состоянии Primed
type EngineStatus struct {
	State prime.State
	Blink bool
}

// NopDisplay ничего не отображает
type NopDisplay struct{}

func (NopDisplay) Status(Status)                 {}
func (NopDisplay) Position(session.PositionView) {}
func (NopDisplay) TradeGroups(GroupsView)        {}
func (NopDisplay) Trade(TradeLine)               {}
func (NopDisplay) Chart(chart.Chart)             {}
func (NopDisplay) OrderLog([]OrderLine)          {}
func (NopDisplay) EngineStatus(EngineStatus)     {}
func (NopDisplay) Console(string)                {}
