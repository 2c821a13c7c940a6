package format

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmount(t *testing.T) {
	assert.Equal(t, "1.5", Amount(1.5))
	assert.Equal(t, "-0.001", Amount(-0.001))
	assert.Equal(t, "0.12345679", Amount(0.123456789))
	assert.Equal(t, Placeholder, Amount(math.NaN()))
	assert.Equal(t, Placeholder, Amount(math.Inf(1)))
}

func TestPrice(t *testing.T) {
	assert.Equal(t, "64321", Price(64321.37))
	assert.Equal(t, "1.5", Price(1.5))
	assert.Equal(t, "0.012346", Price(0.0123456))
	assert.Equal(t, "0", Price(0))
	assert.Equal(t, Placeholder, Price(math.NaN()))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "12.50%", Percent(0.125))
	assert.Equal(t, Placeholder, Percent(math.NaN()))
}

func TestQuantity(t *testing.T) {
	assert.Equal(t, "0.002", Quantity(-0.002))
}
