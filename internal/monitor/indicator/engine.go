// Package indicator пересчитывает скользящую среднюю по всей истории закрытий.
package indicator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/markcheno/go-talib"
)

// Kind вид скользящей средней
type Kind string

const (
	KindEMA   Kind = "ema"
	KindSMA   Kind = "sma"
	KindWMA   Kind = "wma"
	KindDEMA  Kind = "dema"
	KindTEMA  Kind = "tema"
	KindTRIMA Kind = "trima"
)

var (
	ErrInvalidPeriod = errors.New("период индикатора должен быть не меньше 1")
	ErrUnknownKind   = errors.New("неизвестный вид индикатора")
)

// talibKinds виды, которые считает go-talib, и их период прогрева
var talibKinds = map[Kind]struct {
	maType   talib.MaType
	lookback func(period int) int
}{
	KindSMA:   {talib.SMA, func(p int) int { return p - 1 }},
	KindWMA:   {talib.WMA, func(p int) int { return p - 1 }},
	KindDEMA:  {talib.DEMA, func(p int) int { return 2 * (p - 1) }},
	KindTEMA:  {talib.TEMA, func(p int) int { return 3 * (p - 1) }},
	KindTRIMA: {talib.TRIMA, func(p int) int { return p - 1 }},
}

// ParseKind разбирает название вида индикатора
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == KindEMA {
		return k, nil
	}
	if _, ok := talibKinds[k]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Engine пересчитывает ряд индикатора целиком при каждом вызове
type Engine struct {
	kind   Kind
	period int
}

// NewEngine создает движок индикатора
func NewEngine(kind Kind, period int) (*Engine, error) {
	e := &Engine{kind: KindEMA, period: 1}
	if err := e.SetKind(kind); err != nil {
		return nil, err
	}
	if err := e.SetPeriod(period); err != nil {
		return nil, err
	}
	return e, nil
}

// SetPeriod меняет период; следующий Recompute пересчитает ряд заново
func (e *Engine) SetPeriod(period int) error {
	if period < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPeriod, period)
	}
	e.period = period
	return nil
}

// SetKind меняет вид скользящей средней
func (e *Engine) SetKind(kind Kind) error {
	k, err := ParseKind(string(kind))
	if err != nil {
		return err
	}
	e.kind = k
	return nil
}

func (e *Engine) Period() int { return e.period }
func (e *Engine) Kind() Kind  { return e.kind }

// Label подпись для графика, например EMA(30)
func (e *Engine) Label() string {
	return fmt.Sprintf("%s(%d)", strings.ToUpper(string(e.kind)), e.period)
}

// Recompute возвращает ряд индикатора, выровненный 1:1 с закрытиями
func (e *Engine) Recompute(closes []float64) []float64 {
	if len(closes) == 0 {
		return []float64{}
	}
	if e.kind == KindEMA {
		return ema(closes, e.period)
	}
	return e.talibMA(closes)
}

// ema экспоненциальная средняя без прогрева: первое значение равно первому закрытию
func ema(closes []float64, period int) []float64 {
	a := 2.0 / float64(period+1)
	out := make([]float64, len(closes))
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = a*closes[i] + (1-a)*out[i-1]
	}
	return out
}

// talibMA считает среднюю через go-talib. Слоты прогрева, которые talib
// оставляет нулевыми, заполняются закрытием того же слота
func (e *Engine) talibMA(closes []float64) []float64 {
	spec := talibKinds[e.kind]
	lookback := spec.lookback(e.period)

	out := make([]float64, len(closes))
	copy(out, closes)
	if e.period < 2 || len(closes) <= lookback {
		return out
	}

	values := talib.Ma(closes, e.period, spec.maType)
	for i := lookback; i < len(values) && i < len(out); i++ {
		out[i] = values[i]
	}
	return out
}
