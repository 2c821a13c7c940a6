package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/bfmon/internal/config"
	"github.com/skalibog/bfmon/internal/monitor"
	"github.com/skalibog/bfmon/internal/monitor/chart"
	"github.com/skalibog/bfmon/internal/monitor/prime"
	"github.com/skalibog/bfmon/pkg/models"
)

func TestSparkline(t *testing.T) {
	assert.Equal(t, "", sparkline(nil, 10, 0, 1))
	assert.Equal(t, "▁▄█", sparkline([]float64{0, 0.5, 1}, 10, 0, 1))
	assert.Equal(t, "▁▁", sparkline([]float64{3, 3}, 10, 3, 3), "flat series")

	// Прореживание сохраняет последнее значение
	s := []rune(sparkline([]float64{0, 0, 0, 0, 1}, 2, 0, 1))
	require.Len(t, s, 2)
	assert.Equal(t, '█', s[1])
}

func TestFormatLogLine(t *testing.T) {
	line := `{"level":"\u001b[34mINFO\u001b[0m","ts":"01.03.2024 - 12:00:05.123456789+00:00","caller":"monitor/commands.go:56","msg":"Монитор подключен","symbol":"BTCUSDT","max_leverage":10}`
	assert.Equal(t, "[12:00:05] [INFO] Монитор подключен (max_leverage: 10) (symbol: BTCUSDT)", formatLogLine(line))

	assert.Equal(t, "plain text", formatLogLine("plain text"))
}

func TestLoadLogsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bfmon.json.log")
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteString(`{"level":"WARN","msg":"m"}` + "\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	ui := NewTermUI(config.UIConfig{LogLines: 3}, path)
	require.NoError(t, ui.loadLogsFromFile())
	assert.Len(t, ui.logs, 3)

	missing := NewTermUI(config.UIConfig{}, filepath.Join(t.TempDir(), "none.log"))
	assert.NoError(t, missing.loadLogsFromFile())
}

type recordingExecutor struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingExecutor) Execute(_ context.Context, line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	return nil
}

func TestHandleKey_ConsoleInput(t *testing.T) {
	ui := NewTermUI(config.UIConfig{}, "")
	exec := &recordingExecutor{}
	ui.SetExecutor(exec)
	ctx := context.Background()

	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("prime")},
		{Type: tea.KeySpace},
		{Type: tea.KeyRunes, Runes: []rune("size 55")},
		{Type: tea.KeyBackspace},
	} {
		assert.Nil(t, ui.handleKey(ctx, msg))
	}
	assert.Equal(t, "prime size 5", ui.input)

	cmd := ui.handleKey(ctx, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Nil(t, cmd())

	assert.Equal(t, []string{"prime size 5"}, exec.lines)
	assert.Empty(t, ui.input)
	assert.Equal(t, "> prime size 5", ui.console[len(ui.console)-1])

	ui.handleKey(ctx, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	ui.handleKey(ctx, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, ui.input)
}

func TestDisplay_StateUpdates(t *testing.T) {
	ui := NewTermUI(config.UIConfig{}, "")

	for i := 0; i < maxTradeLines+5; i++ {
		ui.Trade(monitor.TradeLine{Trade: models.Trade{Amount: float64(i)}})
	}
	assert.Len(t, ui.trades, maxTradeLines)
	assert.Equal(t, float64(maxTradeLines+4), ui.trades[len(ui.trades)-1].Trade.Amount)

	ui.Console("hello")
	ui.Clear()
	assert.Empty(t, ui.console)

	ui.EngineStatus(monitor.EngineStatus{State: prime.StatePrimed, Blink: true})
	assert.Equal(t, prime.StatePrimed, ui.engine.State)
}

func TestRender_EmptyAndPopulated(t *testing.T) {
	ui := NewTermUI(config.UIConfig{}, "")
	assert.Contains(t, ui.render(), "Waiting for candles...")

	ui.Status(monitor.Status{Symbol: "BTCUSDT", LastPrice: "64000", Primes: []models.PrimeRule{{Type: models.PrimeTypeSize, Threshold: -5}}})
	ui.Chart(chart.Chart{Left: chart.Window{
		Title:     "180min Price & EMA(30)",
		Labels:    []string{"12:00:00", "12:01:00"},
		Price:     []float64{100, 101},
		Indicator: []float64{100, 100.5},
		MinY:      100,
	}})
	ui.OrderLog([]monitor.OrderLine{{Order: models.Order{OrderSpec: models.OrderSpec{Symbol: "BTCUSDT", Amount: -0.01}, Source: "prime"}, Age: "5s ago"}})

	out := ui.render()
	assert.Contains(t, out, "BFMON - BTCUSDT")
	assert.Contains(t, out, "size <= -5")
	assert.Contains(t, out, "180min Price & EMA(30)")
	assert.Contains(t, out, "5s ago")
}
