// internal/storage/influxdb.go
package storage

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/skalibog/bfmon/internal/config"
	"github.com/skalibog/bfmon/pkg/logger"
	"github.com/skalibog/bfmon/pkg/models"
	"go.uber.org/zap"
)

// InfluxDBStorage реализует интерфейс Storage с использованием InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	symbol   string
	done     chan struct{}
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(ctx context.Context, cfg config.StorageConfig, symbol string) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	s := &InfluxDBStorage{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Organization, cfg.Bucket),
		symbol:   symbol,
		done:     make(chan struct{}),
	}

	// Асинхронные ошибки записи только логируем
	go func() {
		for {
			select {
			case err, ok := <-s.writeAPI.Errors():
				if !ok {
					return
				}
				logger.Warn("Ошибка записи в InfluxDB", zap.Error(err))
			case <-s.done:
				return
			}
		}
	}()

	return s, nil
}

// Close сбрасывает буфер и закрывает соединение
func (s *InfluxDBStorage) Close() {
	s.writeAPI.Flush()
	close(s.done)
	s.client.Close()
}

// SaveCandles сохраняет свечи
func (s *InfluxDBStorage) SaveCandles(_ context.Context, candles []models.Candle) error {
	for _, c := range candles {
		s.writeAPI.WritePoint(CandlePoint(s.symbol, c))
	}
	return nil
}

// SaveTrade сохраняет сделку
func (s *InfluxDBStorage) SaveTrade(_ context.Context, trade models.Trade) error {
	s.writeAPI.WritePoint(TradePoint(s.symbol, trade))
	return nil
}

// SaveOrder сохраняет отправленный ордер. Буфер сбрасывается в фоне и при Close
func (s *InfluxDBStorage) SaveOrder(_ context.Context, order models.Order) error {
	s.writeAPI.WritePoint(OrderPoint(order))
	return nil
}

// CandlePoint точка измерения "candles"
func CandlePoint(symbol string, c models.Candle) *write.Point {
	return influxdb2.NewPoint(
		"candles",
		map[string]string{
			"symbol":   symbol,
			"interval": "1m",
		},
		map[string]interface{}{
			"open":   c.Open,
			"high":   c.High,
			"low":    c.Low,
			"close":  c.Close,
			"volume": c.Volume,
		},
		time.UnixMilli(c.Timestamp),
	)
}

// TradePoint точка измерения "trades"
func TradePoint(symbol string, t models.Trade) *write.Point {
	side := "buy"
	if t.Amount < 0 {
		side = "sell"
	}
	return influxdb2.NewPoint(
		"trades",
		map[string]string{
			"symbol": symbol,
			"side":   side,
		},
		map[string]interface{}{
			"amount": t.Amount,
			"price":  t.Price,
		},
		time.UnixMilli(t.Timestamp),
	)
}

// OrderPoint точка измерения "orders"
func OrderPoint(o models.Order) *write.Point {
	return influxdb2.NewPoint(
		"orders",
		map[string]string{
			"symbol": o.Symbol,
			"type":   string(o.Type),
			"source": o.Source,
		},
		map[string]interface{}{
			"amount":    o.Amount,
			"client_id": o.ClientID,
		},
		o.CreatedAt,
	)
}

// Storage интерфейс записи событий сессии. Данные не читаются обратно:
// состояние монитора при перезапуске не восстанавливается
type Storage interface {
	SaveCandles(ctx context.Context, candles []models.Candle) error
	SaveTrade(ctx context.Context, trade models.Trade) error
	SaveOrder(ctx context.Context, order models.Order) error
	Close()
}

// NopStorage хранилище, которое ничего не сохраняет
type NopStorage struct{}

func (NopStorage) SaveCandles(context.Context, []models.Candle) error { return nil }
func (NopStorage) SaveTrade(context.Context, models.Trade) error      { return nil }
func (NopStorage) SaveOrder(context.Context, models.Order) error      { return nil }
func (NopStorage) Close()                                             {}
