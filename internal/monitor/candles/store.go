// Package candles хранит минутные свечи текущей сессии.
package candles

import (
	"sort"

	"github.com/skalibog/bfmon/pkg/models"
)

// Store накапливает свечи по времени открытия. Хранилище не ограничено
// по размеру и живет всю сессию. Не потокобезопасно: владеет им цикл событий
type Store struct {
	candles map[int64]models.Candle
	// ordered кэш отсортированных ключей, nil после вставки нового ключа
	ordered []int64
}

// NewStore создает пустое хранилище свечей
func NewStore() *Store {
	return &Store{
		candles: make(map[int64]models.Candle),
	}
}

// Upsert заменяет свечу с тем же временем открытия или добавляет новую
func (s *Store) Upsert(candle models.Candle) {
	if _, ok := s.candles[candle.Timestamp]; !ok {
		s.ordered = nil
	}
	s.candles[candle.Timestamp] = candle
}

// PatchLastClose выставляет цену закрытия последней свечи.
// На пустом хранилище ничего не делает и возвращает false
func (s *Store) PatchLastClose(price float64) bool {
	keys := s.keys()
	if len(keys) == 0 {
		return false
	}

	last := keys[len(keys)-1]
	c := s.candles[last]
	c.Close = price
	s.candles[last] = c
	return true
}

// OrderedTimestamps возвращает времена открытия по возрастанию
func (s *Store) OrderedTimestamps() []int64 {
	keys := s.keys()
	out := make([]int64, len(keys))
	copy(out, keys)
	return out
}

// Closes возвращает цены закрытия в хронологическом порядке
func (s *Store) Closes() []float64 {
	keys := s.keys()
	closes := make([]float64, len(keys))
	for i, ts := range keys {
		closes[i] = s.candles[ts].Close
	}
	return closes
}

// Get возвращает свечу по времени открытия
func (s *Store) Get(ts int64) (models.Candle, bool) {
	c, ok := s.candles[ts]
	return c, ok
}

// Last возвращает свечу с наибольшим временем открытия
func (s *Store) Last() (models.Candle, bool) {
	keys := s.keys()
	if len(keys) == 0 {
		return models.Candle{}, false
	}
	return s.candles[keys[len(keys)-1]], true
}

// Len количество свечей
func (s *Store) Len() int {
	return len(s.candles)
}

func (s *Store) keys() []int64 {
	if s.ordered != nil && len(s.ordered) == len(s.candles) {
		return s.ordered
	}

	keys := make([]int64, 0, len(s.candles))
	for ts := range s.candles {
		keys = append(keys, ts)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	s.ordered = keys
	return keys
}
