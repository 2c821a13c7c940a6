package monitor

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/skalibog/bfmon/internal/monitor/indicator"
	"github.com/skalibog/bfmon/internal/monitor/prime"
	"github.com/skalibog/bfmon/pkg/format"
	"github.com/skalibog/bfmon/pkg/logger"
	"github.com/skalibog/bfmon/pkg/models"
)

// Connect загружает маржу и параметры рынка для symbol и подписывается на потоки.
// Ошибка любого шага прерывает подключение
func (m *Monitor) Connect(ctx context.Context, symbol string) error {
	return m.do(ctx, "connect", func(ctx context.Context) error {
		if m.symbol != "" {
			return ErrAlreadyConnected
		}

		margin, err := m.exchange.FetchMarginInfo(ctx)
		if err != nil {
			return fmt.Errorf("ошибка получения маржи: %w", err)
		}
		if margin.Scope == "" {
			margin.Scope = models.MarginScopeBase
		}
		m.handleMargin(margin)

		markets, err := m.exchange.FetchMarketConfig(ctx)
		if err != nil {
			return fmt.Errorf("ошибка получения конфигурации рынка: %w", err)
		}
		market, ok := findMarket(markets, symbol)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSymbolConfig, symbol)
		}
		if !(market.MarginFactor > 0) {
			return fmt.Errorf("%w: marginFactor %v для %s", ErrInvalidValue, market.MarginFactor, symbol)
		}
		if !format.Finite(market.MinTradeSize) || market.MinTradeSize <= 0 {
			return fmt.Errorf("%w: minTradeSize %v для %s", ErrInvalidValue, market.MinTradeSize, symbol)
		}

		m.session.SetMarket(market.MinTradeSize, 1/market.MarginFactor)
		m.quickOrderSize = market.MinTradeSize
		m.primes.SetDefaultSize(m.quickOrderSize)
		m.primes.SetSymbol(symbol)
		m.symbol = symbol

		if err := m.exchange.Subscribe(ctx, symbol, m); err != nil {
			m.symbol = ""
			return fmt.Errorf("ошибка подписки на потоки: %w", err)
		}

		logger.Info("Монитор подключен",
			zap.String("symbol", symbol),
			zap.Float64("min_trade_size", market.MinTradeSize),
			zap.Float64("max_leverage", m.session.MaxLeverage()))

		m.refreshStatus()
		m.requestCalc(ctx)
		return nil
	})
}

func findMarket(markets []models.MarketConfig, symbol string) (models.MarketConfig, bool) {
	for _, mc := range markets {
		if mc.Symbol == symbol {
			return mc, true
		}
	}
	return models.MarketConfig{}, false
}

// AddPrime добавляет правило; ErrDuplicateRule при совпадении типа и порога
func (m *Monitor) AddPrime(ctx context.Context, rule models.PrimeRule) error {
	return m.do(ctx, "add-prime", func(context.Context) error {
		primed, err := m.primes.Add(rule)
		if err != nil {
			return err
		}

		logger.Info("Прайм добавлен",
			zap.String("type", string(rule.Type)),
			zap.Float64("threshold", rule.Threshold),
			zap.Float64("amount", rule.Amount),
			zap.Bool("has_expiry", rule.HasExpiry()))

		m.metrics.PrimesActive.Set(float64(len(m.primes.Rules())))
		if primed {
			m.blinkOn = false
			m.display.EngineStatus(EngineStatus{State: prime.StatePrimed})
		}
		m.refreshStatus()
		return nil
	})
}

// Primes копия активных правил
func (m *Monitor) Primes(ctx context.Context) ([]models.PrimeRule, error) {
	var rules []models.PrimeRule
	err := m.do(ctx, "primes", func(context.Context) error {
		rules = m.primes.Rules()
		return nil
	})
	return rules, err
}

// SubmitOrder отправляет ручной рыночный ордер: side > 0 покупка, side < 0 продажа.
// amount задается без знака; 0 - размер быстрого ордера
func (m *Monitor) SubmitOrder(ctx context.Context, side int, amount float64) error {
	return m.do(ctx, "submit-order", func(ctx context.Context) error {
		if m.symbol == "" {
			return ErrNotConnected
		}
		if amount == 0 {
			amount = m.quickOrderSize
		}
		if amount <= 0 || math.IsNaN(amount) || side == 0 {
			return fmt.Errorf("%w: объем ордера %v", ErrInvalidValue, amount)
		}
		if side < 0 {
			amount = -amount
		}

		ctx, cancel := context.WithTimeout(ctx, m.cfg.OrderTimeout())
		defer cancel()

		err := m.submit(ctx, models.OrderSpec{
			Symbol: m.symbol,
			Type:   models.OrderTypeMarket,
			Amount: amount,
		}, "manual")
		if err != nil {
			return fmt.Errorf("%w: %w", prime.ErrOrderSubmission, err)
		}
		return nil
	})
}

// SetTradeSizeAlert порог выделения отдельной сделки
func (m *Monitor) SetTradeSizeAlert(ctx context.Context, v float64) error {
	return m.do(ctx, "trade-alert", func(context.Context) error {
		if !(v > 0) {
			return fmt.Errorf("%w: %v", ErrInvalidValue, v)
		}
		m.groups.SetTradeThreshold(v)
		m.refreshStatus()
		m.display.TradeGroups(m.groupsView())
		return nil
	})
}

// SetGroupSizeAlert порог выделения группы
func (m *Monitor) SetGroupSizeAlert(ctx context.Context, v float64) error {
	return m.do(ctx, "group-alert", func(context.Context) error {
		if !(v > 0) {
			return fmt.Errorf("%w: %v", ErrInvalidValue, v)
		}
		m.groups.SetGroupThreshold(v)
		m.refreshStatus()
		m.display.TradeGroups(m.groupsView())
		return nil
	})
}

func (m *Monitor) SetLeftWindow(ctx context.Context, minutes int) error {
	return m.do(ctx, "left-window", func(context.Context) error {
		if err := m.projector.SetLeft(minutes); err != nil {
			return err
		}
		m.refreshCharts()
		return nil
	})
}

func (m *Monitor) SetRightWindow(ctx context.Context, minutes int) error {
	return m.do(ctx, "right-window", func(context.Context) error {
		if err := m.projector.SetRight(minutes); err != nil {
			return err
		}
		m.refreshCharts()
		return nil
	})
}

// SetIndicatorPeriod меняет период и пересчитывает графики
func (m *Monitor) SetIndicatorPeriod(ctx context.Context, period int) error {
	return m.do(ctx, "indicator-period", func(context.Context) error {
		if err := m.indicator.SetPeriod(period); err != nil {
			return err
		}
		m.refreshCharts()
		return nil
	})
}

func (m *Monitor) SetIndicatorKind(ctx context.Context, kind string) error {
	return m.do(ctx, "indicator-kind", func(context.Context) error {
		k, err := indicator.ParseKind(kind)
		if err != nil {
			return err
		}
		if err := m.indicator.SetKind(k); err != nil {
			return err
		}
		m.refreshCharts()
		return nil
	})
}

// SetQuickOrderSize размер быстрого ордера и ордеров праймов без фиксированного объема
func (m *Monitor) SetQuickOrderSize(ctx context.Context, size float64) error {
	return m.do(ctx, "quick-size", func(context.Context) error {
		if !(size > 0) {
			return fmt.Errorf("%w: %v", ErrInvalidValue, size)
		}
		m.quickOrderSize = size
		m.primes.SetDefaultSize(size)
		m.refreshStatus()
		return nil
	})
}

// SetPrimePolicy "all" или "fired"
func (m *Monitor) SetPrimePolicy(ctx context.Context, policy string) error {
	return m.do(ctx, "prime-policy", func(context.Context) error {
		p, err := parsePolicy(policy)
		if err != nil {
			return err
		}
		m.primes.SetPolicy(p)
		return nil
	})
}
