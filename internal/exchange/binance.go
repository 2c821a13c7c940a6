// Package exchange реализует сессию Binance Futures для монитора:
// REST-запросы маржи, позиций и конфигурации рынка, отправку ордеров
// и потоки сделок и свечей через websocket.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/skalibog/bfmon/internal/config"
	"github.com/skalibog/bfmon/internal/metrics"
	"github.com/skalibog/bfmon/internal/monitor"
	"github.com/skalibog/bfmon/pkg/format"
	"github.com/skalibog/bfmon/pkg/logger"
	"github.com/skalibog/bfmon/pkg/models"
)

var ErrNotSubscribed = errors.New("нет подписки на события")

// BinanceClient клиент Binance Futures
type BinanceClient struct {
	futures  *futures.Client
	metrics  *metrics.Metrics
	interval string

	mu        sync.Mutex
	symbol    string
	sink      monitor.EventSink
	positions *positionTracker
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig, interval string, met *metrics.Metrics) *BinanceClient {
	if cfg.Testnet {
		futures.UseTestnet = true
	}
	if met == nil {
		met = metrics.New()
	}

	return &BinanceClient{
		futures:   futures.NewClient(cfg.APIKey, cfg.APISecret),
		metrics:   met,
		interval:  interval,
		positions: newPositionTracker(),
	}
}

// FetchMarginInfo получает сводку по счету
func (c *BinanceClient) FetchMarginInfo(ctx context.Context) (models.MarginSnapshot, error) {
	account, err := c.futures.NewGetAccountService().Do(ctx)
	if err != nil {
		return models.MarginSnapshot{}, fmt.Errorf("ошибка получения счета: %w", err)
	}
	return marginFromAccount(account), nil
}

// FetchMarketConfig получает параметры всех инструментов
func (c *BinanceClient) FetchMarketConfig(ctx context.Context) ([]models.MarketConfig, error) {
	info, err := c.futures.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения конфигурации рынка: %w", err)
	}

	markets := make([]models.MarketConfig, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		markets = append(markets, marketFromSymbol(s))
	}
	return markets, nil
}

// SubmitOrder отправляет рыночный ордер. Знак объема задает сторону
func (c *BinanceClient) SubmitOrder(ctx context.Context, spec models.OrderSpec) error {
	if spec.Amount == 0 || !format.Finite(spec.Amount) {
		return fmt.Errorf("некорректный объем ордера: %v", spec.Amount)
	}

	svc := c.futures.NewCreateOrderService().
		Symbol(spec.Symbol).
		Side(orderSide(spec.Amount)).
		Type(futures.OrderTypeMarket).
		Quantity(format.Quantity(spec.Amount))
	if spec.ClientID != "" {
		svc = svc.NewClientOrderID(spec.ClientID)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return fmt.Errorf("ошибка создания ордера: %w", err)
	}

	logger.Info("Ордер принят биржей",
		zap.String("symbol", resp.Symbol),
		zap.Int64("order_id", resp.OrderID),
		zap.String("client_id", resp.ClientOrderID),
		zap.String("status", string(resp.Status)))
	return nil
}

// RequestCalc запрашивает счет и позицию и передает результат подписчику
func (c *BinanceClient) RequestCalc(ctx context.Context) error {
	c.mu.Lock()
	sink, symbol := c.sink, c.symbol
	c.mu.Unlock()
	if sink == nil {
		return ErrNotSubscribed
	}

	margin, err := c.FetchMarginInfo(ctx)
	if err != nil {
		return err
	}
	sink.OnMarginInfo(margin)

	risks, err := c.futures.NewGetPositionRiskService().Symbol(symbol).Do(ctx)
	if err != nil {
		return fmt.Errorf("ошибка получения позиции: %w", err)
	}

	positions := make([]models.PositionSnapshot, 0, len(risks))
	for _, r := range risks {
		positions = append(positions, positionFromRisk(r))
	}
	c.positions.apply(sink, positions)
	return nil
}

// Subscribe запускает потоки сделок и свечей для symbol.
// Первое подключение синхронное, обрывы переподключаются в фоне до отмены ctx
func (c *BinanceClient) Subscribe(ctx context.Context, symbol string, sink monitor.EventSink) error {
	c.mu.Lock()
	c.symbol = symbol
	c.sink = sink
	c.mu.Unlock()

	trades := func() (chan struct{}, chan struct{}, error) {
		return futures.WsAggTradeServe(symbol, func(e *futures.WsAggTradeEvent) {
			if t, ok := tradeFromEvent(e); ok {
				sink.OnTrade(t)
			}
		}, streamErrHandler("aggTrade"))
	}
	if err := c.keepAlive(ctx, "aggTrade", trades); err != nil {
		return fmt.Errorf("ошибка подписки на сделки: %w", err)
	}

	klines := func() (chan struct{}, chan struct{}, error) {
		return futures.WsKlineServe(symbol, c.interval, func(e *futures.WsKlineEvent) {
			if k, ok := candleFromKline(e.Kline); ok {
				sink.OnCandles(k)
			}
		}, streamErrHandler("kline"))
	}
	if err := c.keepAlive(ctx, "kline", klines); err != nil {
		return fmt.Errorf("ошибка подписки на свечи: %w", err)
	}

	logger.Info("Подписка на потоки Binance", zap.String("symbol", symbol), zap.String("interval", c.interval))
	return nil
}

type serveFunc func() (doneC, stopC chan struct{}, err error)

// keepAlive открывает поток и переподключает его с растущей задержкой после обрыва
func (c *BinanceClient) keepAlive(ctx context.Context, name string, serve serveFunc) error {
	doneC, stopC, err := serve()
	if err != nil {
		return err
	}

	go func() {
		b := &backoff.Backoff{
			Min:    500 * time.Millisecond,
			Max:    30 * time.Second,
			Factor: 2,
			Jitter: true,
		}

		for {
			select {
			case <-ctx.Done():
				close(stopC)
				return
			case <-doneC:
			}

			for {
				delay := b.Duration()
				logger.Warn("Поток прерван, переподключение",
					zap.String("stream", name),
					zap.Duration("delay", delay))

				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
				}

				doneC, stopC, err = serve()
				if err == nil {
					break
				}
				logger.Error("Ошибка переподключения потока", zap.String("stream", name), zap.Error(err))
			}

			c.metrics.WSReconnects.WithLabelValues(name).Inc()
			b.Reset()
		}
	}()

	return nil
}

func streamErrHandler(name string) futures.ErrHandler {
	return func(err error) {
		logger.Warn("Ошибка потока Binance", zap.String("stream", name), zap.Error(err))
	}
}

func orderSide(amount float64) futures.SideType {
	if amount < 0 {
		return futures.SideTypeSell
	}
	return futures.SideTypeBuy
}

// parseFloat разбирает числовую строку биржи; пустая или битая строка дает NaN
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
