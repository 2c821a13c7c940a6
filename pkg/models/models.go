package models

import (
	"time"
)

// Candle представляет минутную свечу. Timestamp - время открытия в миллисекундах
type Candle struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Trade представляет сделку с ленты. Знак Amount определяет сторону: >0 покупка, <0 продажа
type Trade struct {
	Timestamp int64
	Amount    float64
	Price     float64
}

// Sign возвращает знак объема сделки
func (t Trade) Sign() int {
	return Sign(t.Amount)
}

// Sign возвращает -1, 0 или 1
func Sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// PrimeType тип правила автоматического ордера
type PrimeType string

const (
	// PrimeTypeSize срабатывает по размеру одной сделки
	PrimeTypeSize PrimeType = "size"
)

// PrimeRule одноразовое условное правило ("прайм")
type PrimeRule struct {
	Type      PrimeType
	Threshold float64
	// Amount фиксированный размер ордера; 0 - размер быстрого ордера со знаком порога
	Amount float64
	// Expiry абсолютный срок действия; нулевое значение - бессрочно
	Expiry time.Time
}

// HasExpiry сообщает, задан ли срок действия правила
func (r PrimeRule) HasExpiry() bool {
	return !r.Expiry.IsZero()
}

// Expired сообщает, истек ли срок действия на момент now
func (r PrimeRule) Expired(now time.Time) bool {
	return r.HasExpiry() && r.Expiry.Before(now)
}

// TradeGroup текущая серия сделок одного направления
type TradeGroup struct {
	Side        int
	TotalAmount float64
	TradeCount  int
	// LastAmount объем последней сделки в серии
	LastAmount float64
}

// Empty сообщает, что группа еще не начата
func (g TradeGroup) Empty() bool {
	return g.TradeCount == 0
}

// MarginSnapshot снимок маржинальной информации
type MarginSnapshot struct {
	// Scope область снимка; ядро применяет только "base"
	Scope         string
	UserPL        float64
	MarginBalance float64
	MarginNet     float64
}

// MarginScopeBase область снимка по счету в целом
const MarginScopeBase = "base"

// PositionSnapshot снимок открытой позиции
type PositionSnapshot struct {
	Symbol           string
	BasePrice        float64
	Amount           float64
	PL               float64
	PLPerc           float64
	LiquidationPrice float64
}

// MarketConfig параметры рынка из конфигурации биржи
type MarketConfig struct {
	Symbol       string
	MinTradeSize float64
	// MarginFactor доля начальной маржи; максимальное плечо = 1 / MarginFactor
	MarginFactor float64
}

// OrderType тип ордера
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
)

// OrderSpec описание ордера на отправку
type OrderSpec struct {
	ClientID string
	Symbol   string
	Type     OrderType
	Amount   float64
}

// Order отправленный ордер для журнала
type Order struct {
	OrderSpec
	CreatedAt time.Time
	// Source "prime" или "manual"
	Source string
}
