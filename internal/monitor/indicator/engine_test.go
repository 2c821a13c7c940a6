package indicator

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_EmptyInput(t *testing.T) {
	for _, kind := range []Kind{KindEMA, KindSMA, KindDEMA} {
		e, err := NewEngine(kind, 30)
		require.NoError(t, err)

		out := e.Recompute(nil)
		assert.NotNil(t, out)
		assert.Empty(t, out, "kind %s", kind)
	}
}

func TestEngine_SingleInput(t *testing.T) {
	e, err := NewEngine(KindEMA, 30)
	require.NoError(t, err)

	assert.Equal(t, []float64{101.5}, e.Recompute([]float64{101.5}))
}

func TestEngine_EMARecurrence(t *testing.T) {
	e, err := NewEngine(KindEMA, 3) // a = 0.5
	require.NoError(t, err)

	out := e.Recompute([]float64{10, 20, 30})
	require.Len(t, out, 3)
	assert.InDelta(t, 10.0, out[0], 1e-9)
	assert.InDelta(t, 15.0, out[1], 1e-9)
	assert.InDelta(t, 22.5, out[2], 1e-9)
}

func TestEngine_ConstantSeries(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 250
	}

	for _, kind := range []Kind{KindEMA, KindSMA, KindWMA, KindDEMA, KindTEMA, KindTRIMA} {
		e, err := NewEngine(kind, 10)
		require.NoError(t, err)

		out := e.Recompute(closes)
		require.Len(t, out, len(closes), "kind %s", kind)
		for i, v := range out {
			assert.InDelta(t, 250.0, v, 1e-6, "kind %s index %d", kind, i)
		}
	}
}

func TestEngine_SMAWarmupFilled(t *testing.T) {
	e, err := NewEngine(KindSMA, 3)
	require.NoError(t, err)

	out := e.Recompute([]float64{1, 2, 3, 4})
	require.Len(t, out, 4)
	// Прогрев: значения совпадают с закрытиями
	assert.Equal(t, 1.0, out[0])
	assert.Equal(t, 2.0, out[1])
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
}

func TestEngine_ShortHistoryForTalib(t *testing.T) {
	e, err := NewEngine(KindTEMA, 30)
	require.NoError(t, err)

	closes := []float64{1, 2, 3}
	assert.Equal(t, closes, e.Recompute(closes))
}

func TestEngine_PeriodChangeRecomputes(t *testing.T) {
	e, err := NewEngine(KindEMA, 3)
	require.NoError(t, err)
	closes := []float64{10, 20, 30}
	before := e.Recompute(closes)

	require.NoError(t, e.SetPeriod(1))
	after := e.Recompute(closes)

	assert.NotEqual(t, before, after)
	// Период 1: a = 1, ряд повторяет закрытия
	assert.Equal(t, closes, after)
	assert.Equal(t, "EMA(1)", e.Label())
}

func TestEngine_Validation(t *testing.T) {
	_, err := NewEngine(KindEMA, 0)
	assert.True(t, errors.Is(err, ErrInvalidPeriod))

	_, err = NewEngine("hull", 10)
	assert.True(t, errors.Is(err, ErrUnknownKind))

	k, err := ParseKind(" SMA ")
	require.NoError(t, err)
	assert.Equal(t, KindSMA, k)
}

func TestEngine_NoNaN(t *testing.T) {
	e, err := NewEngine(KindDEMA, 5)
	require.NoError(t, err)

	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	for _, v := range e.Recompute(closes) {
		assert.False(t, math.IsNaN(v))
	}
}
