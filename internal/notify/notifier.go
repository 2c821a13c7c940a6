// Package notify доставляет уведомления о срабатывании праймов во внешние каналы.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/skalibog/bfmon/pkg/logger"
	"go.uber.org/zap"
)

// Alert уведомление
type Alert struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"ts"`
}

// Notifier канал доставки уведомлений
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier пишет уведомления в лог
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(_ context.Context, alert Alert) error {
	logger.Info(alert.Title, zap.String("message", alert.Message))
	return nil
}

// WebhookNotifier отправляет уведомления POST-запросом на HTTP-адрес
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier создает webhook-уведомитель
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookNotifier) Notify(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("webhook: ошибка сериализации: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: ошибка отправки: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: неожиданный статус %d", resp.StatusCode)
	}
	return nil
}

// Multi рассылает уведомление во все каналы и собирает ошибки
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async доставляет уведомления в отдельной горутине, чтобы не задерживать цикл событий
type Async struct {
	next    Notifier
	timeout time.Duration
}

// NewAsync оборачивает канал доставки
func NewAsync(next Notifier, timeout time.Duration) *Async {
	return &Async{next: next, timeout: timeout}
}

func (a *Async) Notify(_ context.Context, alert Alert) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.next.Notify(ctx, alert); err != nil {
			logger.Warn("Не удалось доставить уведомление", zap.String("title", alert.Title), zap.Error(err))
		}
	}()
	return nil
}
