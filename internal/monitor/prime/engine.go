// Package prime реализует одноразовые условные правила ("праймы"), которые
// при срабатывании отправляют рыночный ордер.
//
// Движок находится в состоянии Idle без правил и Primed с правилами. На
// каждой сделке правила просматриваются от последнего добавленного к первому;
// просроченные удаляются в том же проходе, первое совпавшее правило срабатывает.
// После срабатывания по умолчанию очищается весь набор (политика ClearAll).
package prime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skalibog/bfmon/pkg/models"
)

var (
	ErrDuplicateRule   = errors.New("правило с таким типом и порогом уже существует")
	ErrUnknownType     = errors.New("неизвестный тип правила")
	ErrZeroThreshold   = errors.New("порог правила не может быть нулевым")
	ErrOrderSubmission = errors.New("ошибка отправки ордера")
)

// State состояние движка
type State int

const (
	StateIdle State = iota
	StatePrimed
)

func (s State) String() string {
	if s == StatePrimed {
		return "PRIMED"
	}
	return "Idle"
}

// Policy что очищать после срабатывания
type Policy int

const (
	// ClearAll очищает весь набор правил
	ClearAll Policy = iota
	// ClearFired удаляет только сработавшее правило
	ClearFired
)

// Condition проверяет условие правила на сделке
type Condition func(rule models.PrimeRule, trade models.Trade) bool

// SizeCondition: положительный порог - объем >= порога, отрицательный - объем <= порога
func SizeCondition(rule models.PrimeRule, trade models.Trade) bool {
	return (rule.Threshold > 0 && trade.Amount >= rule.Threshold) ||
		(rule.Threshold < 0 && trade.Amount <= rule.Threshold)
}

// Submitter отправляет ордер на биржу
type Submitter interface {
	SubmitOrder(ctx context.Context, spec models.OrderSpec) error
}

// Notifier получает уведомление о срабатывании до отправки ордера
type Notifier interface {
	PrimeTriggered(ctx context.Context, t Trigger)
}

// Trigger описание срабатывания
type Trigger struct {
	Rule        models.PrimeRule
	TradeAmount float64
	Order       models.OrderSpec
}

// Result итог оценки одной сделки
type Result struct {
	Expired   []models.PrimeRule
	Triggered *Trigger
	// StateChanged движок перешел в Idle
	StateChanged bool
}

// Engine владеет набором активных правил
type Engine struct {
	symbol      string
	rules       []models.PrimeRule
	conditions  map[models.PrimeType]Condition
	policy      Policy
	defaultSize float64

	submitter Submitter
	notifier  Notifier
	now       func() time.Time
	newID     func() string
}

// Option настройка движка
type Option func(*Engine)

// WithClock подменяет часы (для тестов)
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithNotifier задает получателя уведомлений о срабатывании
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithPolicy задает политику очистки
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithIDGenerator задает генератор клиентских идентификаторов ордеров
func WithIDGenerator(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// NewEngine создает движок для инструмента symbol
func NewEngine(symbol string, submitter Submitter, opts ...Option) *Engine {
	e := &Engine{
		symbol: symbol,
		conditions: map[models.PrimeType]Condition{
			models.PrimeTypeSize: SizeCondition,
		},
		submitter: submitter,
		now:       time.Now,
		newID:     func() string { return "" },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register добавляет новый тип правил
func (e *Engine) Register(t models.PrimeType, c Condition) {
	e.conditions[t] = c
}

// Add добавляет правило. Возвращает true, если движок перешел из Idle в Primed
func (e *Engine) Add(rule models.PrimeRule) (bool, error) {
	if _, ok := e.conditions[rule.Type]; !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownType, rule.Type)
	}
	if rule.Threshold == 0 {
		return false, ErrZeroThreshold
	}
	for _, r := range e.rules {
		if r.Type == rule.Type && r.Threshold == rule.Threshold {
			return false, fmt.Errorf("%w: %s %v", ErrDuplicateRule, rule.Type, rule.Threshold)
		}
	}

	e.rules = append(e.rules, rule)
	return len(e.rules) == 1, nil
}

// Rules копия активных правил в порядке добавления
func (e *Engine) Rules() []models.PrimeRule {
	out := make([]models.PrimeRule, len(e.rules))
	copy(out, e.rules)
	return out
}

// State текущее состояние движка
func (e *Engine) State() State {
	if len(e.rules) == 0 {
		return StateIdle
	}
	return StatePrimed
}

// SetSymbol задает инструмент для ордеров
func (e *Engine) SetSymbol(symbol string) { e.symbol = symbol }

// SetDefaultSize размер ордера для правил без фиксированного объема
func (e *Engine) SetDefaultSize(size float64) { e.defaultSize = size }

func (e *Engine) DefaultSize() float64 { return e.defaultSize }

func (e *Engine) SetPolicy(p Policy) { e.policy = p }

func (e *Engine) Policy() Policy { return e.policy }

// Evaluate проверяет правила на сделке. Срабатывает не больше одного правила.
// Набор правил очищается до отправки ордера и при ошибке отправки не
// восстанавливается; ошибка возвращается вызывающему
func (e *Engine) Evaluate(ctx context.Context, trade models.Trade) (Result, error) {
	var res Result
	if len(e.rules) == 0 {
		return res, nil
	}

	now := e.now()
	fired := -1

	for i := len(e.rules) - 1; i >= 0; i-- {
		rule := e.rules[i]

		if rule.Expired(now) {
			res.Expired = append(res.Expired, rule)
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			continue
		}

		if e.conditions[rule.Type](rule, trade) {
			fired = i
			break
		}
	}

	if fired < 0 {
		res.StateChanged = len(res.Expired) > 0 && len(e.rules) == 0
		return res, nil
	}

	rule := e.rules[fired]
	trigger := Trigger{
		Rule:        rule,
		TradeAmount: trade.Amount,
		Order: models.OrderSpec{
			ClientID: e.newID(),
			Symbol:   e.symbol,
			Type:     models.OrderTypeMarket,
			Amount:   e.orderAmount(rule),
		},
	}
	res.Triggered = &trigger

	if e.policy == ClearFired {
		e.rules = append(e.rules[:fired], e.rules[fired+1:]...)
	} else {
		e.rules = nil
	}
	res.StateChanged = len(e.rules) == 0

	if e.notifier != nil {
		e.notifier.PrimeTriggered(ctx, trigger)
	}

	if err := e.submitter.SubmitOrder(ctx, trigger.Order); err != nil {
		return res, fmt.Errorf("%w: %w", ErrOrderSubmission, err)
	}
	return res, nil
}

func (e *Engine) orderAmount(rule models.PrimeRule) float64 {
	if rule.Amount != 0 {
		return rule.Amount
	}
	if rule.Threshold < 0 {
		return -e.defaultSize
	}
	return e.defaultSize
}
