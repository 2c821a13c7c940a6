package tradegroup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skalibog/bfmon/pkg/models"
)

func trade(amount float64) models.Trade {
	return models.Trade{Amount: amount, Price: 100}
}

func TestAggregator_SignRuns(t *testing.T) {
	a := NewAggregator(DefaultTradeThreshold, DefaultGroupThreshold)

	a.Add(trade(1))
	g := a.Add(trade(2))
	assert.Equal(t, 1, g.Side)
	assert.Equal(t, 3.0, g.TotalAmount)
	assert.Equal(t, 2, g.TradeCount)

	g = a.Add(trade(-1))
	assert.Equal(t, -1, g.Side)
	assert.Equal(t, -1.0, g.TotalAmount)
	assert.Equal(t, 1, g.TradeCount)

	// Последняя группа покупок сохраняется после смены направления
	assert.Equal(t, 3.0, a.LastBuy().TotalAmount)
	assert.Equal(t, 2, a.LastBuy().TradeCount)
	assert.Equal(t, -1.0, a.LastSell().TotalAmount)
}

func TestAggregator_ZeroAmountStartsGroup(t *testing.T) {
	a := NewAggregator(DefaultTradeThreshold, DefaultGroupThreshold)
	a.Add(trade(1))

	g := a.Add(trade(0))
	assert.Equal(t, 0, g.Side)
	assert.Equal(t, 1, g.TradeCount)
}

func TestAggregator_Classify(t *testing.T) {
	a := NewAggregator(0.75, 3)

	assert.Equal(t, TierNormal, a.ClassifyTrade(0.5))
	assert.Equal(t, TierElevated, a.ClassifyTrade(-0.8))

	assert.Equal(t, TierNormal, a.ClassifyGroup(a.Add(trade(0.5))))
	assert.Equal(t, TierElevated, a.ClassifyGroup(a.Add(trade(1))))
	assert.Equal(t, TierAlert, a.ClassifyGroup(a.Add(trade(2))))

	a.SetGroupThreshold(10)
	assert.Equal(t, TierElevated, a.ClassifyGroup(a.Current()))
	a.SetTradeThreshold(5)
	assert.Equal(t, TierNormal, a.ClassifyGroup(a.Current()))

	assert.Equal(t, TierNormal, a.ClassifyGroup(models.TradeGroup{}))
	assert.Equal(t, "alert", TierAlert.String())
}
