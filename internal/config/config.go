package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/skalibog/bfmon/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Значения по умолчанию
const (
	DefaultTradeSizeAlert   = 0.75
	DefaultGroupSizeAlert   = 3
	DefaultLeftChartWindow  = 180
	DefaultRightChartWindow = 30
	DefaultIndicatorType    = "ema"
	DefaultIndicatorPeriod  = 30
	DefaultQueueSize        = 1024
	DefaultRecalcInterval   = 5000
	DefaultRefreshInterval  = 1000
	DefaultBlinkInterval    = 500
	DefaultOrderTimeout     = 10
	DefaultCandleInterval   = "1m"
)

// Политики очистки праймов после срабатывания
const (
	PrimePolicyClearAll   = "all"
	PrimePolicyClearFired = "fired"
)

// Config представляет полную конфигурацию приложения
type Config struct {
	Binance BinanceConfig `yaml:"binance"`
	Trading TradingConfig `yaml:"trading"`
	Monitor MonitorConfig `yaml:"monitor"`
	Storage StorageConfig `yaml:"storage"`
	Notify  NotifyConfig  `yaml:"notify"`
	Metrics MetricsConfig `yaml:"metrics"`
	UI      UIConfig      `yaml:"ui"`
	Log     LogConfig     `yaml:"log"`
}

// BinanceConfig содержит настройки подключения к Binance.
// Ключи читаются только из окружения
type BinanceConfig struct {
	APIKey    string `yaml:"-"`
	APISecret string `yaml:"-"`
	Testnet   bool   `yaml:"testnet"`
}

// Credentials ключи API из переменных окружения BFMON_API_KEY / BFMON_API_SECRET
type Credentials struct {
	APIKey    string `envconfig:"API_KEY" required:"true"`
	APISecret string `envconfig:"API_SECRET" required:"true"`
}

// TradingConfig содержит настройки инструмента
type TradingConfig struct {
	Symbol         string `yaml:"symbol"`
	CandleInterval string `yaml:"candle_interval"`
}

// MonitorConfig настройки ядра монитора
type MonitorConfig struct {
	TradeSizeAlert   float64         `yaml:"trade_size_alert"`
	GroupSizeAlert   float64         `yaml:"group_size_alert"`
	LeftChartWindow  int             `yaml:"left_chart_window"`
	RightChartWindow int             `yaml:"right_chart_window"`
	Indicator        IndicatorConfig `yaml:"indicator"`
	PrimePolicy      string          `yaml:"prime_policy"`
	QueueSize        int             `yaml:"queue_size"`
	// Интервалы таймеров
	RecalcIntervalMs    int `yaml:"recalc_interval_ms"`
	RefreshIntervalMs   int `yaml:"refresh_interval_ms"`
	BlinkIntervalMs     int `yaml:"blink_interval_ms"`
	OrderTimeoutSeconds int `yaml:"order_timeout_seconds"`
}

// IndicatorConfig настройки скользящей средней на графиках
type IndicatorConfig struct {
	Type   string `yaml:"type"`
	Period int    `yaml:"period"`
}

// StorageConfig настройки записи событий в InfluxDB
type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// NotifyConfig настройки уведомлений о срабатывании праймов
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// MetricsConfig настройки Prometheus
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// UIConfig настройки пользовательского интерфейса
type UIConfig struct {
	RefreshRate int `yaml:"refresh_rate_ms"`
	LogLines    int `yaml:"log_lines"`
}

// LogConfig пути к файлам логов
type LogConfig struct {
	File     string `yaml:"file"`
	JSONFile string `yaml:"json_file"`
}

// RecalcInterval интервал запроса пересчета маржи и позиции
func (c MonitorConfig) RecalcInterval() time.Duration {
	return time.Duration(c.RecalcIntervalMs) * time.Millisecond
}

// RefreshInterval интервал обновления журнала ордеров
func (c MonitorConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMs) * time.Millisecond
}

// BlinkInterval интервал мигания статуса PRIMED
func (c MonitorConfig) BlinkInterval() time.Duration {
	return time.Duration(c.BlinkIntervalMs) * time.Millisecond
}

// OrderTimeout таймаут отправки ордера
func (c MonitorConfig) OrderTimeout() time.Duration {
	return time.Duration(c.OrderTimeoutSeconds) * time.Second
}

// ValidateTimers проверяет, что интервалы таймеров и таймаут ордера положительны
func (c MonitorConfig) ValidateTimers() error {
	for _, d := range []struct {
		name  string
		value int
	}{
		{"recalc_interval_ms", c.RecalcIntervalMs},
		{"refresh_interval_ms", c.RefreshIntervalMs},
		{"blink_interval_ms", c.BlinkIntervalMs},
		{"order_timeout_seconds", c.OrderTimeoutSeconds},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s должен быть положительным: %d", d.name, d.value)
		}
	}
	return nil
}

// Load загружает конфигурацию из файла
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	logger.Debug("Загружена конфигурация", zap.String("path", path), zap.Any("config", cfg.Monitor))
	logger.Info("Загружена конфигурация", zap.String("symbol", cfg.Trading.Symbol))
	return cfg, nil
}

// Parse разбирает YAML, подставляет значения по умолчанию и проверяет результат
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadCredentials читает ключи API из окружения, предварительно подгружая .env, если он есть
func (c *Config) LoadCredentials(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("ошибка чтения %s: %w", envFile, err)
		}
	}

	var creds Credentials
	if err := envconfig.Process("bfmon", &creds); err != nil {
		return fmt.Errorf("ошибка чтения ключей API: %w", err)
	}

	c.Binance.APIKey = creds.APIKey
	c.Binance.APISecret = creds.APISecret
	return nil
}

func (c *Config) applyDefaults() {
	m := &c.Monitor
	if m.TradeSizeAlert == 0 {
		m.TradeSizeAlert = DefaultTradeSizeAlert
	}
	if m.GroupSizeAlert == 0 {
		m.GroupSizeAlert = DefaultGroupSizeAlert
	}
	if m.LeftChartWindow == 0 {
		m.LeftChartWindow = DefaultLeftChartWindow
	}
	if m.RightChartWindow == 0 {
		m.RightChartWindow = DefaultRightChartWindow
	}
	if m.Indicator.Type == "" {
		m.Indicator.Type = DefaultIndicatorType
	}
	if m.Indicator.Period == 0 {
		m.Indicator.Period = DefaultIndicatorPeriod
	}
	if m.PrimePolicy == "" {
		m.PrimePolicy = PrimePolicyClearAll
	}
	if m.QueueSize == 0 {
		m.QueueSize = DefaultQueueSize
	}
	if m.RecalcIntervalMs == 0 {
		m.RecalcIntervalMs = DefaultRecalcInterval
	}
	if m.RefreshIntervalMs == 0 {
		m.RefreshIntervalMs = DefaultRefreshInterval
	}
	if m.BlinkIntervalMs == 0 {
		m.BlinkIntervalMs = DefaultBlinkInterval
	}
	if m.OrderTimeoutSeconds == 0 {
		m.OrderTimeoutSeconds = DefaultOrderTimeout
	}
	if c.Trading.CandleInterval == "" {
		c.Trading.CandleInterval = DefaultCandleInterval
	}
	if c.UI.RefreshRate == 0 {
		c.UI.RefreshRate = 250
	}
	if c.UI.LogLines == 0 {
		c.UI.LogLines = 50
	}
	if c.Log.File == "" {
		c.Log.File = logger.DefaultReadableFile
	}
	if c.Log.JSONFile == "" {
		c.Log.JSONFile = logger.DefaultJSONFile
	}
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	if c.Trading.Symbol == "" {
		return errors.New("не задан торговый инструмент (trading.symbol)")
	}
	m := c.Monitor
	if m.LeftChartWindow < 0 || m.RightChartWindow < 0 {
		return fmt.Errorf("окно графика должно быть положительным: %d/%d", m.LeftChartWindow, m.RightChartWindow)
	}
	if err := m.ValidateTimers(); err != nil {
		return err
	}
	if m.TradeSizeAlert < 0 || m.GroupSizeAlert < 0 {
		return fmt.Errorf("пороги объема должны быть положительными: %v/%v", m.TradeSizeAlert, m.GroupSizeAlert)
	}
	if m.Indicator.Period < 0 {
		return fmt.Errorf("период индикатора должен быть положительным: %d", m.Indicator.Period)
	}
	if m.QueueSize < 0 {
		return fmt.Errorf("размер очереди событий должен быть положительным: %d", m.QueueSize)
	}
	switch m.PrimePolicy {
	case PrimePolicyClearAll, PrimePolicyClearFired:
	default:
		return fmt.Errorf("неизвестная политика праймов: %q", m.PrimePolicy)
	}
	if c.Storage.Enabled && (c.Storage.URL == "" || c.Storage.Bucket == "") {
		return errors.New("для записи в InfluxDB нужны storage.url и storage.bucket")
	}
	return nil
}
