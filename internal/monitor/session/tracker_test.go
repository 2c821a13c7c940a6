package session

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skalibog/bfmon/pkg/format"
	"github.com/skalibog/bfmon/pkg/models"
)

func TestTracker_EmptyRendersPlaceholders(t *testing.T) {
	tr := NewTracker()
	d := tr.Derived()

	assert.Equal(t, format.Placeholder, d.UserPL)
	assert.Equal(t, format.Placeholder, d.MarginBalance)
	assert.Equal(t, format.Placeholder, d.MarginNet)
	assert.Equal(t, format.Placeholder, d.TradableBalance)
	assert.Equal(t, format.Placeholder, d.MinTradeSize)
	assert.Equal(t, format.Placeholder, d.MaxLeverage)
	assert.False(t, tr.PositionView().Open)
}

func TestTracker_TradableBalance(t *testing.T) {
	tr := NewTracker()
	tr.SetMarket(0.001, 10)
	tr.SetMargin(models.MarginSnapshot{Scope: "base", UserPL: -1.25, MarginBalance: 120, MarginNet: 100})

	d := tr.Derived()
	assert.Equal(t, "-1.25", d.UserPL)
	assert.Equal(t, "120", d.MarginBalance)
	assert.Equal(t, "100", d.MarginNet)
	assert.Equal(t, "1000", d.TradableBalance)
	assert.Equal(t, "0.001", d.MinTradeSize)
	assert.Equal(t, "10.0", d.MaxLeverage)
	assert.Equal(t, -1, d.PLSign)
}

func TestTracker_PartialMarginNoNaN(t *testing.T) {
	tr := NewTracker()
	tr.SetMarket(0.001, 20)
	tr.SetMargin(models.MarginSnapshot{UserPL: math.NaN(), MarginBalance: 50, MarginNet: math.NaN()})

	d := tr.Derived()
	assert.Equal(t, format.Placeholder, d.UserPL)
	assert.Equal(t, format.Placeholder, d.MarginNet)
	assert.Equal(t, format.Placeholder, d.TradableBalance)
	assert.Equal(t, "50", d.MarginBalance)
	assert.Equal(t, 0, d.PLSign)
}

func TestTracker_MarginReplacedWholesale(t *testing.T) {
	tr := NewTracker()
	tr.SetMargin(models.MarginSnapshot{UserPL: 1, MarginBalance: 2, MarginNet: 3})
	tr.SetMargin(models.MarginSnapshot{UserPL: 4})

	m, ok := tr.Margin()
	assert.True(t, ok)
	assert.Equal(t, models.MarginSnapshot{UserPL: 4}, m)
}

func TestTracker_Position(t *testing.T) {
	tr := NewTracker()
	tr.SetPosition(&models.PositionSnapshot{
		Symbol:           "BTCUSDT",
		BasePrice:        64000.5,
		Amount:           -0.02,
		PL:               3.5,
		PLPerc:           0.0125,
		LiquidationPrice: 70123.45,
	})

	v := tr.PositionView()
	assert.True(t, v.Open)
	assert.Equal(t, "-0.02", v.Amount)
	assert.Equal(t, "64001", v.BasePrice)
	assert.Equal(t, "1.25%", v.PLPerc)
	assert.Equal(t, "70123", v.LiquidationPrice)
	assert.Equal(t, -1, v.Side)
	assert.Equal(t, 1, v.PLSign)

	tr.SetPosition(nil)
	assert.False(t, tr.PositionView().Open)
	assert.Nil(t, tr.Position())

	// Пустой снимок (закрытая позиция) отображается как отсутствие позиции
	tr.SetPosition(&models.PositionSnapshot{})
	assert.False(t, tr.PositionView().Open)
}
