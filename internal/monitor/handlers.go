package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/bfmon/internal/monitor/prime"
	"github.com/skalibog/bfmon/internal/notify"
	"github.com/skalibog/bfmon/pkg/format"
	"github.com/skalibog/bfmon/pkg/logger"
	"github.com/skalibog/bfmon/pkg/models"
)

// Порядок обработки сделки: группы, закрытие последней свечи и графики,
// цена и статус, затем праймы
func (m *Monitor) handleTrade(ctx context.Context, trade models.Trade) {
	m.groups.Add(trade)
	m.display.Trade(TradeLine{Trade: trade, Tier: m.groups.ClassifyTrade(trade.Amount)})
	m.display.TradeGroups(m.groupsView())

	if m.candles.PatchLastClose(trade.Price) {
		m.refreshCharts()
	}

	m.lastPrice = trade.Price
	m.refreshStatus()

	if err := m.storage.SaveTrade(ctx, trade); err != nil {
		logger.Warn("Ошибка сохранения сделки", zap.Error(err))
	}

	m.evaluatePrimes(ctx, trade)
}

func (m *Monitor) evaluatePrimes(ctx context.Context, trade models.Trade) {
	if m.primes.State() == prime.StateIdle {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.OrderTimeout())
	defer cancel()

	res, err := m.primes.Evaluate(ctx, trade)

	for _, rule := range res.Expired {
		m.metrics.PrimeExpired.Inc()
		logger.Info("Прайм удален по истечении срока",
			zap.String("type", string(rule.Type)),
			zap.Float64("threshold", rule.Threshold),
			zap.Time("expiry", rule.Expiry))
	}
	if res.Triggered != nil {
		m.metrics.PrimeTriggers.Inc()
	}
	if err != nil {
		logger.Error("Ошибка исполнения прайма", zap.Error(err))
		m.display.Console(fmt.Sprintf("Prime order failed: %v", err))
	}

	m.metrics.PrimesActive.Set(float64(len(m.primes.Rules())))
	if len(res.Expired) > 0 || res.Triggered != nil {
		m.refreshStatus()
	}
	if res.StateChanged {
		m.blinkOn = false
		m.display.EngineStatus(EngineStatus{State: m.primes.State()})
	}
}

func (m *Monitor) handleCandles(ctx context.Context, batch []models.Candle) {
	for _, c := range batch {
		m.candles.Upsert(c)
	}
	m.metrics.CandlesStored.Set(float64(m.candles.Len()))

	if err := m.storage.SaveCandles(ctx, batch); err != nil {
		logger.Warn("Ошибка сохранения свечей", zap.Error(err))
	}

	m.refreshCharts()
}

func (m *Monitor) handleMargin(info models.MarginSnapshot) {
	if info.Scope != models.MarginScopeBase {
		logger.Debug("Снимок маржи пропущен", zap.String("scope", info.Scope))
		return
	}
	m.session.SetMargin(info)
	m.refreshStatus()
}

func (m *Monitor) handlePosition(e positionEvent) {
	var mine []models.PositionSnapshot
	for _, p := range e.positions {
		if p.Symbol == m.symbol {
			mine = append(mine, p)
		}
	}

	switch e.op {
	case positionSnapshot:
		if len(mine) == 0 {
			m.session.SetPosition(nil)
		} else {
			m.session.SetPosition(&mine[0])
		}
	case positionNew, positionUpdate:
		if len(mine) == 0 {
			return
		}
		m.session.SetPosition(&mine[0])
	case positionClose:
		if len(mine) == 0 {
			return
		}
		m.session.SetPosition(nil)
	}

	m.display.Position(m.session.PositionView())
	m.refreshStatus()
}

// submit отправляет ордер и записывает его в журнал; вызывается только из цикла событий
func (m *Monitor) submit(ctx context.Context, spec models.OrderSpec, source string) error {
	if spec.ClientID == "" {
		spec.ClientID = m.newID()
	}
	if spec.Symbol == "" {
		spec.Symbol = m.symbol
	}

	logger.Info("Отправка ордера",
		zap.String("source", source),
		zap.String("symbol", spec.Symbol),
		zap.Float64("amount", spec.Amount),
		zap.String("client_id", spec.ClientID))

	if err := m.exchange.SubmitOrder(ctx, spec); err != nil {
		m.metrics.OrdersTotal.WithLabelValues(source, "error").Inc()
		return err
	}
	m.metrics.OrdersTotal.WithLabelValues(source, "ok").Inc()

	order := models.Order{OrderSpec: spec, CreatedAt: m.now(), Source: source}
	m.orders = append(m.orders, order)
	if err := m.storage.SaveOrder(ctx, order); err != nil {
		logger.Warn("Ошибка сохранения ордера", zap.Error(err))
	}

	m.refreshOrderLog()
	return nil
}

// primeSubmitter отправляет ордера праймов через монитор
type primeSubmitter struct {
	m *Monitor
}

func (s primeSubmitter) SubmitOrder(ctx context.Context, spec models.OrderSpec) error {
	return s.m.submit(ctx, spec, "prime")
}

// PrimeTriggered уведомляет о срабатывании прайма до отправки ордера
func (m *Monitor) PrimeTriggered(ctx context.Context, t prime.Trigger) {
	cmp := ">="
	if t.Rule.Threshold < 0 {
		cmp = "<="
	}
	msg := fmt.Sprintf("Rule (%s) triggered\n%s %s %s",
		t.Rule.Type, format.Amount(t.TradeAmount), cmp, format.Amount(t.Rule.Threshold))

	logger.Info("Прайм сработал",
		zap.String("type", string(t.Rule.Type)),
		zap.Float64("threshold", t.Rule.Threshold),
		zap.Float64("trade_amount", t.TradeAmount),
		zap.Float64("order_amount", t.Order.Amount))
	m.display.Console(fmt.Sprintf("Prime %s %s triggered by %s",
		t.Rule.Type, format.Amount(t.Rule.Threshold), format.Amount(t.TradeAmount)))

	alert := notify.Alert{Title: "Prime Trigger", Message: msg, Time: m.now()}
	if err := m.notifier.Notify(ctx, alert); err != nil {
		logger.Warn("Ошибка уведомления о срабатывании", zap.Error(err))
	}
}

func (m *Monitor) refreshCharts() {
	start := time.Now()
	closes := m.candles.Closes()
	series := m.indicator.Recompute(closes)
	m.metrics.IndicatorComputeDur.Observe(time.Since(start).Seconds())

	m.display.Chart(m.projector.Project(m.candles.OrderedTimestamps(), closes, series, m.indicator.Label()))
}

func (m *Monitor) refreshStatus() {
	m.display.Status(Status{
		Symbol:         m.symbol,
		LastPrice:      format.Price(m.lastPrice),
		Session:        m.session.Derived(),
		TradeSizeAlert: m.groups.TradeThreshold(),
		GroupSizeAlert: m.groups.GroupThreshold(),
		QuickOrderSize: m.quickOrderSize,
		Primes:         m.primes.Rules(),
	})
}

func (m *Monitor) groupsView() GroupsView {
	return GroupsView{
		Current:     m.groups.Current(),
		CurrentTier: m.groups.ClassifyGroup(m.groups.Current()),
		LastBuy:     m.groups.LastBuy(),
		BuyTier:     m.groups.ClassifyGroup(m.groups.LastBuy()),
		LastSell:    m.groups.LastSell(),
		SellTier:    m.groups.ClassifyGroup(m.groups.LastSell()),
	}
}

func (m *Monitor) refreshOrderLog() {
	now := m.now()
	lines := make([]OrderLine, len(m.orders))
	for i, o := range m.orders {
		lines[i] = OrderLine{Order: o, Age: relativeAge(now.Sub(o.CreatedAt))}
	}
	m.display.OrderLog(lines)
}

// relativeAge короткое относительное время: "5s ago", "3m ago", "2h ago"
func relativeAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	}
	return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
}
