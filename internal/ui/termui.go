package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/skalibog/bfmon/internal/config"
	"github.com/skalibog/bfmon/internal/monitor"
	"github.com/skalibog/bfmon/internal/monitor/chart"
	"github.com/skalibog/bfmon/internal/monitor/session"
	"github.com/skalibog/bfmon/pkg/logger"
)

const (
	maxTradeLines   = 20
	maxConsoleLines = 100
)

// Executor выполняет строку консоли
type Executor interface {
	Execute(ctx context.Context, line string) error
}

// TermUI представляет терминальный интерфейс монитора.
// Методы monitor.Display вызываются из цикла событий и только обновляют состояние,
// перерисовка идет по таймеру
type TermUI struct {
	config   config.UIConfig
	logFile  string
	executor Executor

	mu       sync.RWMutex
	status   monitor.Status
	position session.PositionView
	groups   monitor.GroupsView
	trades   []monitor.TradeLine
	chart    chart.Chart
	orders   []monitor.OrderLine
	engine   monitor.EngineStatus
	console  []string
	logs     []string
	input    string
	width    int
	height   int
}

// Сообщения для обновления UI
type tickMsg time.Time

// bubbleModel - модель для bubbletea
type bubbleModel struct {
	ui  *TermUI
	ctx context.Context
}

// NewTermUI создает интерфейс; logFile - JSON-лог, который показывается в панели логов
func NewTermUI(cfg config.UIConfig, logFile string) *TermUI {
	return &TermUI{
		config:  cfg,
		logFile: logFile,
		console: []string{"BFMON запущен. Введите help для списка команд"},
		width:   140,
		height:  48,
	}
}

// SetExecutor подключает обработчик команд консоли
func (ui *TermUI) SetExecutor(e Executor) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	ui.executor = e
}

// Run запускает интерфейс и блокируется до выхода пользователя или отмены ctx
func (ui *TermUI) Run(ctx context.Context) error {
	go ui.tailLogs(ctx)

	program := tea.NewProgram(bubbleModel{ui: ui, ctx: ctx}, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("ошибка запуска UI: %w", err)
	}
	return nil
}

func (ui *TermUI) tailLogs(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		if err := ui.loadLogsFromFile(); err != nil {
			logger.Warn("Ошибка загрузки логов", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (ui *TermUI) Status(s monitor.Status) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	ui.status = s
}

func (ui *TermUI) Position(p session.PositionView) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	ui.position = p
}

func (ui *TermUI) TradeGroups(g monitor.GroupsView) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	ui.groups = g
}

func (ui *TermUI) Trade(t monitor.TradeLine) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	ui.trades = appendCapped(ui.trades, t, maxTradeLines)
}

func (ui *TermUI) Chart(c chart.Chart) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	ui.chart = c
}

func (ui *TermUI) OrderLog(lines []monitor.OrderLine) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	ui.orders = lines
}

func (ui *TermUI) EngineStatus(s monitor.EngineStatus) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	ui.engine = s
}

func (ui *TermUI) Console(line string) {
	ui.Print(line)
}

// Print добавляет строку в панель вывода консоли
func (ui *TermUI) Print(line string) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	ui.console = appendCapped(ui.console, line, maxConsoleLines)
}

// Clear очищает панель вывода консоли
func (ui *TermUI) Clear() {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	ui.console = nil
}

func appendCapped[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s
}

func (ui *TermUI) tick() tea.Cmd {
	rate := time.Duration(ui.config.RefreshRate) * time.Millisecond
	if rate <= 0 {
		rate = 250 * time.Millisecond
	}
	return tea.Tick(rate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Методы для bubbletea
func (m bubbleModel) Init() tea.Cmd {
	return m.ui.tick()
}

func (m bubbleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.ui.handleKey(m.ctx, msg)

	case tea.WindowSizeMsg:
		m.ui.mu.Lock()
		m.ui.width = msg.Width
		m.ui.height = msg.Height
		m.ui.mu.Unlock()

	case tickMsg:
		return m, m.ui.tick()
	}

	return m, nil
}

func (ui *TermUI) handleKey(ctx context.Context, msg tea.KeyMsg) tea.Cmd {
	ui.mu.Lock()
	defer ui.mu.Unlock()

	switch msg.Type {
	case tea.KeyCtrlC:
		return tea.Quit
	case tea.KeyEsc:
		ui.input = ""
	case tea.KeyBackspace:
		if r := []rune(ui.input); len(r) > 0 {
			ui.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		ui.input += " "
	case tea.KeyRunes:
		ui.input += string(msg.Runes)
	case tea.KeyEnter:
		line := ui.input
		ui.input = ""
		executor := ui.executor
		if executor == nil || line == "" {
			return nil
		}
		ui.console = appendCapped(ui.console, "> "+line, maxConsoleLines)
		// Команда ждет цикл событий, поэтому выполняется вне Update
		return func() tea.Msg {
			_ = executor.Execute(ctx, line)
			return nil
		}
	}
	return nil
}

func (m bubbleModel) View() string {
	m.ui.mu.RLock()
	defer m.ui.mu.RUnlock()
	return m.ui.render()
}
