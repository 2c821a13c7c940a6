package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skalibog/bfmon/internal/commands"
	"github.com/skalibog/bfmon/internal/config"
	"github.com/skalibog/bfmon/internal/exchange"
	"github.com/skalibog/bfmon/internal/metrics"
	"github.com/skalibog/bfmon/internal/monitor"
	"github.com/skalibog/bfmon/internal/notify"
	"github.com/skalibog/bfmon/internal/storage"
	"github.com/skalibog/bfmon/internal/ui"
	"github.com/skalibog/bfmon/pkg/logger"
)

func main() {
	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	envPath := flag.String("env", ".env", "файл с переменными окружения BFMON_API_KEY / BFMON_API_SECRET")
	flag.Parse()

	// Загружаем конфигурацию
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.File, cfg.Log.JSONFile); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer logger.GetLogger().Sync()

	if err := cfg.LoadCredentials(*envPath); err != nil {
		logger.Fatal("Ошибка чтения ключей API", zap.Error(err))
	}

	if err := run(cfg); err != nil {
		logger.Error("Монитор остановлен с ошибкой", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
	logger.Info("Монитор остановлен")
}

func run(cfg *config.Config) error {
	// Контекст отменяется сигналом завершения или выходом из UI
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	met := metrics.New()

	// Инициализируем хранилище
	var store storage.Storage = storage.NopStorage{}
	if cfg.Storage.Enabled {
		influx, err := storage.NewInfluxDBStorage(ctx, cfg.Storage, cfg.Trading.Symbol)
		if err != nil {
			return fmt.Errorf("ошибка инициализации хранилища: %w", err)
		}
		store = influx
	}
	defer store.Close()

	// Уведомления о срабатывании праймов
	notifiers := notify.Multi{notify.NewLogNotifier()}
	if cfg.Notify.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Notify.WebhookURL))
	}

	// Инициализируем клиент биржи
	client := exchange.NewBinanceClient(cfg.Binance, cfg.Trading.CandleInterval, met)

	// Инициализируем UI
	userInterface := ui.NewTermUI(cfg.UI, cfg.Log.JSONFile)

	mon, err := monitor.New(cfg.Monitor, monitor.Deps{
		Exchange: client,
		Display:  userInterface,
		Notifier: notify.NewAsync(notifiers, 10*time.Second),
		Storage:  store,
		Metrics:  met,
	})
	if err != nil {
		return fmt.Errorf("ошибка инициализации монитора: %w", err)
	}
	userInterface.SetExecutor(commands.NewDispatcher(mon, userInterface))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := mon.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := mon.Connect(gctx, cfg.Trading.Symbol); err != nil {
			return fmt.Errorf("ошибка подключения к %s: %w", cfg.Trading.Symbol, err)
		}
		return nil
	})

	if cfg.Metrics.Addr != "" {
		server := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(met)}
		g.Go(func() error {
			logger.Info("Запуск HTTP-сервера метрик", zap.String("addr", cfg.Metrics.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("ошибка сервера метрик: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	// UI в основном потоке; выход из UI завершает остальные горутины
	uiCtx, cancelUI := context.WithCancel(gctx)
	defer cancelUI()
	uiErr := userInterface.Run(uiCtx)
	stop()

	if err := g.Wait(); err != nil {
		return err
	}
	return uiErr
}

func metricsMux(met *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", met.Handler())
	return mux
}
