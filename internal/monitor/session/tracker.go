// Package session хранит последние снимки маржи и позиции и производные значения для экрана.
package session

import (
	"math"
	"strconv"

	"github.com/skalibog/bfmon/pkg/format"
	"github.com/skalibog/bfmon/pkg/models"
)

// Derived значения для панели статуса. Отсутствующие числа выводятся как "-"
type Derived struct {
	UserPL          string
	MarginBalance   string
	MarginNet       string
	TradableBalance string
	MinTradeSize    string
	MaxLeverage     string
	// PLSign знак P/L маржи, 0 - нет данных или ноль
	PLSign int
}

// PositionView позиция для отображения; Open=false - позиции нет
type PositionView struct {
	Open             bool
	Amount           string
	BasePrice        string
	PL               string
	PLPerc           string
	LiquidationPrice string
	Side             int
	PLSign           int
}

// Tracker держатель состояния сессии без проверки формы снимков
type Tracker struct {
	margin       *models.MarginSnapshot
	position     *models.PositionSnapshot
	minTradeSize float64
	maxLeverage  float64
}

// NewTracker создает пустой трекер
func NewTracker() *Tracker {
	return &Tracker{}
}

// SetMargin заменяет снимок маржи целиком
func (t *Tracker) SetMargin(m models.MarginSnapshot) {
	t.margin = &m
}

// SetPosition заменяет снимок позиции; nil - позиции нет
func (t *Tracker) SetPosition(p *models.PositionSnapshot) {
	if p == nil {
		t.position = nil
		return
	}
	cp := *p
	t.position = &cp
}

// SetMarket задает параметры рынка
func (t *Tracker) SetMarket(minTradeSize, maxLeverage float64) {
	t.minTradeSize = minTradeSize
	t.maxLeverage = maxLeverage
}

func (t *Tracker) Margin() (models.MarginSnapshot, bool) {
	if t.margin == nil {
		return models.MarginSnapshot{}, false
	}
	return *t.margin, true
}

func (t *Tracker) Position() *models.PositionSnapshot {
	if t.position == nil {
		return nil
	}
	cp := *t.position
	return &cp
}

func (t *Tracker) MinTradeSize() float64 { return t.minTradeSize }
func (t *Tracker) MaxLeverage() float64  { return t.maxLeverage }

// TradableBalance = marginNet * maxLeverage; NaN, если данных нет
func (t *Tracker) TradableBalance() float64 {
	if t.margin == nil || !format.Finite(t.margin.MarginNet) || t.maxLeverage == 0 {
		return math.NaN()
	}
	return t.margin.MarginNet * t.maxLeverage
}

// Derived считает значения для панели статуса
func (t *Tracker) Derived() Derived {
	d := Derived{
		UserPL:          format.Placeholder,
		MarginBalance:   format.Placeholder,
		MarginNet:       format.Placeholder,
		TradableBalance: format.Amount(t.TradableBalance()),
		MinTradeSize:    format.Placeholder,
		MaxLeverage:     format.Placeholder,
	}

	if t.margin != nil {
		d.UserPL = format.Amount(t.margin.UserPL)
		d.MarginBalance = format.Amount(t.margin.MarginBalance)
		d.MarginNet = format.Amount(t.margin.MarginNet)
		if format.Finite(t.margin.UserPL) {
			d.PLSign = models.Sign(t.margin.UserPL)
		}
	}
	if t.minTradeSize > 0 {
		d.MinTradeSize = format.Amount(t.minTradeSize)
	}
	if t.maxLeverage > 0 && format.Finite(t.maxLeverage) {
		d.MaxLeverage = strconv.FormatFloat(t.maxLeverage, 'f', 1, 64)
	}
	return d
}

// PositionView позиция для отображения. Позиция без базовой цены считается закрытой
func (t *Tracker) PositionView() PositionView {
	p := t.position
	if p == nil || p.BasePrice == 0 || !format.Finite(p.BasePrice) {
		return PositionView{}
	}

	v := PositionView{
		Open:             true,
		Amount:           format.Amount(p.Amount),
		BasePrice:        format.Price(p.BasePrice),
		PL:               format.Amount(p.PL),
		PLPerc:           format.Percent(p.PLPerc),
		LiquidationPrice: format.Price(p.LiquidationPrice),
	}
	if format.Finite(p.Amount) {
		v.Side = models.Sign(p.Amount)
	}
	if format.Finite(p.PL) {
		v.PLSign = models.Sign(p.PL)
	}
	return v
}
