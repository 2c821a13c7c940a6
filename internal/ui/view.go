package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/skalibog/bfmon/internal/monitor"
	"github.com/skalibog/bfmon/internal/monitor/chart"
	"github.com/skalibog/bfmon/internal/monitor/prime"
	"github.com/skalibog/bfmon/internal/monitor/session"
	"github.com/skalibog/bfmon/internal/monitor/tradegroup"
	"github.com/skalibog/bfmon/pkg/format"
	"github.com/skalibog/bfmon/pkg/models"
)

// Стили UI
var (
	// Основные цвета
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	errorColor     = lipgloss.Color("#cc3300")
	successColor   = lipgloss.Color("#33cc33")
	warningColor   = lipgloss.Color("#cccc00")
	mutedColor     = lipgloss.Color("#999999")

	appStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(secondaryColor).
			Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	buyStyle      = lipgloss.NewStyle().Foreground(successColor)
	sellStyle     = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	elevatedStyle = lipgloss.NewStyle().Foreground(warningColor)
	alertStyle    = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	primedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(errorColor).Padding(0, 1)
	idleStyle     = lipgloss.NewStyle().Foreground(mutedColor).Padding(0, 1)
)

func (ui *TermUI) render() string {
	width := ui.width - 6
	if width < 60 {
		width = 60
	}
	half := width/2 - 2
	third := width/3 - 2

	title := titleStyle.Render(fmt.Sprintf("BFMON - %s", orPlaceholder(ui.status.Symbol)))

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		section("STATUS", renderStatus(ui.status), half),
		section("POSITION", renderPosition(ui.position), third),
		section("AUTO", renderEngine(ui.engine), width-half-third-8),
	)

	groups := lipgloss.JoinHorizontal(lipgloss.Top,
		section("GROUP", renderGroup(ui.groups.Current, ui.groups.CurrentTier), third),
		section("LAST BUY", renderGroup(ui.groups.LastBuy, ui.groups.BuyTier), third),
		section("LAST SELL", renderGroup(ui.groups.LastSell, ui.groups.SellTier), third),
	)

	charts := lipgloss.JoinHorizontal(lipgloss.Top,
		section(windowTitle(ui.chart.Left), renderWindow(ui.chart.Left, half-2), half),
		section(windowTitle(ui.chart.Right), renderWindow(ui.chart.Right, half-2), half),
	)

	logs := lipgloss.JoinHorizontal(lipgloss.Top,
		section("TRADES", renderTrades(ui.trades), half),
		section("ORDERS", renderOrders(ui.orders), half),
	)

	console := section("CONSOLE", renderConsole(ui.console, ui.input, 8), width)
	appLogs := section("LOGS", renderLogs(ui.logs, ui.config.LogLines), width)
	footer := footerStyle.Render("Enter - выполнить команду, Esc - очистить ввод, Ctrl+C - выход")

	return appStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			top,
			groups,
			charts,
			logs,
			console,
			appLogs,
			footer,
		),
	)
}

func section(header, body string, width int) string {
	return sectionStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			headerStyle.Render(header),
			body,
		),
	)
}

func renderStatus(s monitor.Status) string {
	d := s.Session
	var b strings.Builder

	fmt.Fprintf(&b, "Last price:    %s\n", orPlaceholder(s.LastPrice))
	fmt.Fprintf(&b, "Margin P/L:    %s\n", signStyle(d.PLSign).Render(orPlaceholder(d.UserPL)))
	fmt.Fprintf(&b, "Margin bal:    %s\n", orPlaceholder(d.MarginBalance))
	fmt.Fprintf(&b, "Margin net:    %s\n", orPlaceholder(d.MarginNet))
	fmt.Fprintf(&b, "Tradable bal:  %s\n", orPlaceholder(d.TradableBalance))
	fmt.Fprintf(&b, "Min trade:     %s\n", orPlaceholder(d.MinTradeSize))
	fmt.Fprintf(&b, "Max leverage:  %s\n", orPlaceholder(d.MaxLeverage))
	fmt.Fprintf(&b, "Quick size:    %s\n", amountOrPlaceholder(s.QuickOrderSize))
	fmt.Fprintf(&b, "Alerts:        trade %s / group %s\n", format.Amount(s.TradeSizeAlert), format.Amount(s.GroupSizeAlert))

	if len(s.Primes) == 0 {
		b.WriteString(mutedStyle.Render("Primes:        none"))
	} else {
		b.WriteString("Primes:")
		for _, r := range s.Primes {
			b.WriteString("\n  " + describePrime(r))
		}
	}
	return b.String()
}

func renderPosition(p session.PositionView) string {
	if !p.Open {
		return mutedStyle.Render("No position")
	}

	side := buyStyle.Render("LONG")
	if p.Side < 0 {
		side = sellStyle.Render("SHORT")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", side, p.Amount)
	fmt.Fprintf(&b, "Base:  %s\n", p.BasePrice)
	fmt.Fprintf(&b, "P/L:   %s\n", signStyle(p.PLSign).Render(p.PL+" ("+p.PLPerc+")"))
	fmt.Fprintf(&b, "Liq:   %s", p.LiquidationPrice)
	return b.String()
}

func renderEngine(e monitor.EngineStatus) string {
	if e.State != prime.StatePrimed {
		return idleStyle.Render(e.State.String())
	}
	if e.Blink {
		return lipgloss.NewStyle().Padding(0, 1).Render(e.State.String())
	}
	return primedStyle.Render(e.State.String())
}

func renderGroup(g models.TradeGroup, tier tradegroup.Tier) string {
	if g.Empty() {
		return mutedStyle.Render("-")
	}
	line := fmt.Sprintf("%s  x%d", format.Amount(g.TotalAmount), g.TradeCount)
	return tierStyle(tier, g.Side).Render(line)
}

func renderTrades(trades []monitor.TradeLine) string {
	if len(trades) == 0 {
		return mutedStyle.Render("Waiting for trades...")
	}

	lines := make([]string, 0, len(trades))
	for i := len(trades) - 1; i >= 0; i-- {
		t := trades[i]
		line := fmt.Sprintf("%12s @ %s", format.Amount(t.Trade.Amount), format.Price(t.Trade.Price))
		lines = append(lines, tierStyle(t.Tier, t.Trade.Sign()).Render(line))
	}
	return strings.Join(lines, "\n")
}

func renderOrders(orders []monitor.OrderLine) string {
	if len(orders) == 0 {
		return mutedStyle.Render("No orders")
	}

	lines := make([]string, 0, len(orders))
	for i := len(orders) - 1; i >= 0; i-- {
		o := orders[i]
		style := buyStyle
		side := "BUY"
		if o.Order.Amount < 0 {
			style, side = sellStyle, "SELL"
		}
		lines = append(lines, style.Render(fmt.Sprintf("%-4s %s %s (%s) %s",
			side, format.Amount(o.Order.Amount), o.Order.Symbol, o.Order.Source, o.Age)))
	}
	return strings.Join(lines, "\n")
}

func renderConsole(lines []string, input string, limit int) string {
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	out := append([]string(nil), lines...)
	out = append(out, "> "+input+"_")
	return strings.Join(out, "\n")
}

func windowTitle(w chart.Window) string {
	if w.Title == "" {
		return "CHART"
	}
	return w.Title
}

func renderWindow(w chart.Window, width int) string {
	if w.Empty() {
		return mutedStyle.Render("Waiting for candles...")
	}

	lo, hi := w.MinY, w.MinY
	for _, v := range append(append([]float64(nil), w.Price...), w.Indicator...) {
		if v > hi {
			hi = v
		}
	}

	last := len(w.Price) - 1
	var b strings.Builder
	b.WriteString(buyStyle.Render(sparkline(w.Price, width, lo, hi)) + "\n")
	b.WriteString(elevatedStyle.Render(sparkline(w.Indicator, width, lo, hi)) + "\n")
	ind := format.Placeholder
	if len(w.Indicator) > last {
		ind = format.Price(w.Indicator[last])
	}
	fmt.Fprintf(&b, "%s .. %s  price %s  ind %s",
		w.Labels[0], w.Labels[last], format.Price(w.Price[last]), ind)
	return b.String()
}

func tierStyle(t tradegroup.Tier, side int) lipgloss.Style {
	switch t {
	case tradegroup.TierAlert:
		return alertStyle
	case tradegroup.TierElevated:
		return elevatedStyle
	}
	return signStyle(side)
}

func signStyle(sign int) lipgloss.Style {
	switch {
	case sign > 0:
		return buyStyle
	case sign < 0:
		return sellStyle
	}
	return lipgloss.NewStyle()
}

func describePrime(r models.PrimeRule) string {
	cmp := ">="
	if r.Threshold < 0 {
		cmp = "<="
	}
	s := fmt.Sprintf("%s %s %s", r.Type, cmp, format.Amount(r.Threshold))
	if r.HasExpiry() {
		s += " until " + r.Expiry.Local().Format("15:04:05")
	}
	return s
}

func orPlaceholder(s string) string {
	if s == "" {
		return format.Placeholder
	}
	return s
}

func amountOrPlaceholder(v float64) string {
	if v == 0 {
		return format.Placeholder
	}
	return format.Amount(v)
}
