package candles

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/bfmon/pkg/models"
)

const minute = int64(60_000)

func candleAt(ts int64, close float64) models.Candle {
	return models.Candle{Timestamp: ts, Open: close, High: close, Low: close, Close: close, Volume: 1}
}

func TestStore_OrderedTimestampsAscendingUnique(t *testing.T) {
	s := NewStore()
	rng := rand.New(rand.NewSource(42))

	// Вставляем в случайном порядке, часть ключей повторяется
	for i := 0; i < 500; i++ {
		ts := int64(rng.Intn(200)) * minute
		s.Upsert(candleAt(ts, float64(i)))
	}

	keys := s.OrderedTimestamps()
	require.Equal(t, s.Len(), len(keys))
	for i := 1; i < len(keys); i++ {
		assert.Less(t, keys[i-1], keys[i], "keys must be strictly ascending")
	}
}

func TestStore_UpsertReplaces(t *testing.T) {
	s := NewStore()
	s.Upsert(candleAt(minute, 10))
	s.Upsert(models.Candle{Timestamp: minute, Open: 1, High: 2, Low: 0.5, Close: 11, Volume: 5})

	require.Equal(t, 1, s.Len())
	c, ok := s.Get(minute)
	require.True(t, ok)
	assert.Equal(t, 11.0, c.Close)
	assert.Equal(t, 5.0, c.Volume)
}

func TestStore_PatchLastClose(t *testing.T) {
	s := NewStore()
	s.Upsert(candleAt(3*minute, 30))
	s.Upsert(candleAt(minute, 10))
	s.Upsert(candleAt(2*minute, 20))

	assert.True(t, s.PatchLastClose(31.5))

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 3*minute, last.Timestamp)
	assert.Equal(t, 31.5, last.Close)
	assert.Equal(t, []float64{10, 20, 31.5}, s.Closes())
}

func TestStore_PatchLastCloseEmpty(t *testing.T) {
	s := NewStore()

	assert.NotPanics(t, func() {
		assert.False(t, s.PatchLastClose(100))
	})
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.OrderedTimestamps())
	assert.Empty(t, s.Closes())
}

func TestStore_CacheInvalidatedOnInsert(t *testing.T) {
	s := NewStore()
	s.Upsert(candleAt(2*minute, 2))
	assert.Equal(t, []int64{2 * minute}, s.OrderedTimestamps())

	s.Upsert(candleAt(minute, 1))
	assert.Equal(t, []int64{minute, 2 * minute}, s.OrderedTimestamps())

	// Новая свеча становится последней для патча цены
	s.Upsert(candleAt(5*minute, 5))
	s.PatchLastClose(6)
	c, _ := s.Get(5 * minute)
	assert.Equal(t, 6.0, c.Close)
}

func TestStore_OrderedTimestampsIsCopy(t *testing.T) {
	s := NewStore()
	s.Upsert(candleAt(minute, 1))
	keys := s.OrderedTimestamps()
	keys[0] = 999

	assert.Equal(t, []int64{minute}, s.OrderedTimestamps())
}
