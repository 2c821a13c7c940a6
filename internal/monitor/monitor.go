// Package monitor связывает поток событий биржи с компонентами ядра.
//
// Все события (сделки, свечи, маржа, позиции, команды, таймеры) обрабатываются
// одной горутиной строго по очереди. Компоненты ядра принадлежат этой горутине
// и не защищены блокировками. Отправка ордера выполняется внутри обработчика,
// остальные события в это время ждут в очереди.
//
// Очередь ограничена. Рыночные данные (сделки, свечи) при переполнении
// отбрасываются с учетом в метриках, управляющие события (маржа, позиции,
// команды) ждут свободного места.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skalibog/bfmon/internal/config"
	"github.com/skalibog/bfmon/internal/metrics"
	"github.com/skalibog/bfmon/internal/monitor/candles"
	"github.com/skalibog/bfmon/internal/monitor/chart"
	"github.com/skalibog/bfmon/internal/monitor/indicator"
	"github.com/skalibog/bfmon/internal/monitor/prime"
	"github.com/skalibog/bfmon/internal/monitor/session"
	"github.com/skalibog/bfmon/internal/monitor/tradegroup"
	"github.com/skalibog/bfmon/internal/notify"
	"github.com/skalibog/bfmon/internal/storage"
	"github.com/skalibog/bfmon/pkg/logger"
	"github.com/skalibog/bfmon/pkg/models"
)

var (
	ErrUnknownSymbolConfig = errors.New("инструмент не найден в конфигурации рынка")
	ErrAlreadyConnected    = errors.New("монитор уже подключен")
	ErrNotConnected        = errors.New("монитор не подключен")
	ErrStopped             = errors.New("цикл событий остановлен")
	ErrInvalidValue        = errors.New("некорректное значение")
)

// Exchange сессия биржи
type Exchange interface {
	FetchMarginInfo(ctx context.Context) (models.MarginSnapshot, error)
	FetchMarketConfig(ctx context.Context) ([]models.MarketConfig, error)
	Subscribe(ctx context.Context, symbol string, sink EventSink) error
	SubmitOrder(ctx context.Context, spec models.OrderSpec) error
	// RequestCalc запрашивает пересчет маржи и позиции; результат приходит через EventSink
	RequestCalc(ctx context.Context) error
}

// EventSink принимает события потоков биржи. Методы безопасны для вызова из любых горутин
type EventSink interface {
	OnTrade(trade models.Trade)
	OnCandles(candles ...models.Candle)
	OnMarginInfo(info models.MarginSnapshot)
	OnPositionSnapshot(positions []models.PositionSnapshot)
	OnPositionNew(p models.PositionSnapshot)
	OnPositionUpdate(p models.PositionSnapshot)
	OnPositionClose(p models.PositionSnapshot)
}

// Deps внешние зависимости монитора
type Deps struct {
	Exchange Exchange
	Display  Display
	Notifier notify.Notifier
	Storage  storage.Storage
	Metrics  *metrics.Metrics
	// Now и NewID подменяются в тестах
	Now   func() time.Time
	NewID func() string
}

// Monitor оркестратор событий ядра
type Monitor struct {
	cfg      config.MonitorConfig
	exchange Exchange
	display  Display
	notifier notify.Notifier
	storage  storage.Storage
	metrics  *metrics.Metrics
	now      func() time.Time
	newID    func() string

	events   chan event
	stopped  chan struct{}
	stopOnce sync.Once
	calcBusy atomic.Bool

	// Состояние ниже принадлежит горутине Run
	symbol         string
	candles        *candles.Store
	indicator      *indicator.Engine
	projector      *chart.Projector
	groups         *tradegroup.Aggregator
	primes         *prime.Engine
	session        *session.Tracker
	lastPrice      float64
	quickOrderSize float64
	orders         []models.Order
	blinkOn        bool
}

// New создает монитор по настройкам ядра
func New(cfg config.MonitorConfig, deps Deps) (*Monitor, error) {
	if err := cfg.ValidateTimers(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	kind, err := indicator.ParseKind(cfg.Indicator.Type)
	if err != nil {
		return nil, err
	}
	ind, err := indicator.NewEngine(kind, cfg.Indicator.Period)
	if err != nil {
		return nil, err
	}
	projector, err := chart.NewProjector(cfg.LeftChartWindow, cfg.RightChartWindow)
	if err != nil {
		return nil, err
	}
	policy, err := parsePolicy(cfg.PrimePolicy)
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		cfg:       cfg,
		exchange:  deps.Exchange,
		display:   deps.Display,
		notifier:  deps.Notifier,
		storage:   deps.Storage,
		metrics:   deps.Metrics,
		now:       deps.Now,
		newID:     deps.NewID,
		events:    make(chan event, cfg.QueueSize),
		stopped:   make(chan struct{}),
		candles:   candles.NewStore(),
		indicator: ind,
		projector: projector,
		groups:    tradegroup.NewAggregator(cfg.TradeSizeAlert, cfg.GroupSizeAlert),
		session:   session.NewTracker(),
		lastPrice: math.NaN(),
	}
	if m.display == nil {
		m.display = NopDisplay{}
	}
	if m.notifier == nil {
		m.notifier = notify.NewLogNotifier()
	}
	if m.storage == nil {
		m.storage = storage.NopStorage{}
	}
	if m.metrics == nil {
		m.metrics = metrics.New()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}

	m.primes = prime.NewEngine("", primeSubmitter{m},
		prime.WithClock(m.now),
		prime.WithNotifier(m),
		prime.WithPolicy(policy),
		prime.WithIDGenerator(m.newID),
	)
	return m, nil
}

// Run обрабатывает очередь событий и таймеры до отмены ctx
func (m *Monitor) Run(ctx context.Context) error {
	defer m.stopOnce.Do(func() { close(m.stopped) })

	recalc := time.NewTicker(m.cfg.RecalcInterval())
	defer recalc.Stop()
	refresh := time.NewTicker(m.cfg.RefreshInterval())
	defer refresh.Stop()
	blink := time.NewTicker(m.cfg.BlinkInterval())
	defer blink.Stop()

	m.refreshStatus()
	m.display.Position(m.session.PositionView())
	m.display.EngineStatus(EngineStatus{State: prime.StateIdle})
	m.display.Console("Ready for commands")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Цикл событий остановлен")
			return ctx.Err()

		case ev := <-m.events:
			m.metrics.QueueDepth.Set(float64(len(m.events)))
			m.dispatch(ctx, ev)

		case <-recalc.C:
			m.requestCalc(ctx)

		case <-refresh.C:
			m.refreshOrderLog()

		case <-blink.C:
			if m.primes.State() == prime.StatePrimed {
				m.blinkOn = !m.blinkOn
				m.display.EngineStatus(EngineStatus{State: prime.StatePrimed, Blink: m.blinkOn})
			}
		}
	}
}

func (m *Monitor) dispatch(ctx context.Context, ev event) {
	start := time.Now()
	kind := ev.kind()
	defer func() {
		m.metrics.EventsTotal.WithLabelValues(kind).Inc()
		m.metrics.HandlerDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	switch e := ev.(type) {
	case tradeEvent:
		m.handleTrade(ctx, e.trade)
	case candlesEvent:
		m.handleCandles(ctx, e.candles)
	case marginEvent:
		m.handleMargin(e.info)
	case positionEvent:
		m.handlePosition(e)
	case commandEvent:
		e.reply <- e.fn(ctx)
	}
}

// requestCalc отправляет запрос пересчета, не дожидаясь результата.
// Пока предыдущий запрос не завершен, новый не отправляется;
// каждый запрос ограничен одним интервалом пересчета
func (m *Monitor) requestCalc(ctx context.Context) {
	if m.symbol == "" {
		return
	}
	if !m.calcBusy.CompareAndSwap(false, true) {
		logger.Debug("Пересчет маржи еще выполняется, тик пропущен")
		return
	}
	go func() {
		defer m.calcBusy.Store(false)

		ctx, cancel := context.WithTimeout(ctx, m.cfg.RecalcInterval())
		defer cancel()
		if err := m.exchange.RequestCalc(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("Ошибка запроса пересчета маржи", zap.Error(err))
		} else if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Warn("Таймаут запроса пересчета маржи", zap.Duration("timeout", m.cfg.RecalcInterval()))
		}
	}()
}

// enqueueMarket ставит событие рыночных данных; при переполнении отбрасывает его
func (m *Monitor) enqueueMarket(ev event) {
	select {
	case <-m.stopped:
		return
	default:
	}

	select {
	case m.events <- ev:
	default:
		m.metrics.EventsDropped.WithLabelValues(ev.kind()).Inc()
		logger.Warn("Очередь событий переполнена, событие отброшено", zap.String("type", ev.kind()))
	}
}

// enqueueControl ставит управляющее событие, ожидая места в очереди
func (m *Monitor) enqueueControl(ev event) {
	select {
	case m.events <- ev:
	case <-m.stopped:
	}
}

// do выполняет fn внутри цикла событий и возвращает ее результат.
// Нельзя вызывать из самого цикла
func (m *Monitor) do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	reply := make(chan error, 1)
	ev := commandEvent{name: name, fn: fn, reply: reply}

	select {
	case m.events <- ev:
	case <-m.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-m.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func parsePolicy(s string) (prime.Policy, error) {
	switch s {
	case "", config.PrimePolicyClearAll:
		return prime.ClearAll, nil
	case config.PrimePolicyClearFired:
		return prime.ClearFired, nil
	}
	return 0, fmt.Errorf("%w: политика %q", ErrInvalidValue, s)
}
