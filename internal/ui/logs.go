package ui

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Регулярное выражение для удаления ANSI-цветов
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

const logTimeLayout = "02.01.2006 - 15:04:05.999999999Z07:00"

// loadLogsFromFile перечитывает хвост JSON-лога
func (ui *TermUI) loadLogsFromFile() error {
	file, err := os.Open(ui.logFile)
	if err != nil {
		if os.IsNotExist(err) {
			// Файл не существует, это не ошибка
			return nil
		}
		return err
	}
	defer file.Close()

	limit := ui.config.LogLines
	if limit <= 0 {
		limit = 50
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var logs []string
	for scanner.Scan() {
		logs = appendCapped(logs, formatLogLine(scanner.Text()), limit)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	ui.mu.Lock()
	defer ui.mu.Unlock()
	if len(logs) > 0 {
		ui.logs = logs
	}
	return nil
}

// formatLogLine приводит JSON-строку zap к виду "[15:04:05] [LEVEL] msg (k: v)"
func formatLogLine(line string) string {
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		// Не удалось распарсить JSON, добавляем как есть
		return line
	}

	level, _ := entry["level"].(string)
	ts, _ := entry["ts"].(string)
	msg, _ := entry["msg"].(string)

	level = ansiRegex.ReplaceAllString(level, "")

	timestamp := ""
	if t, err := time.Parse(logTimeLayout, ts); err == nil {
		timestamp = t.Format("15:04:05")
	}

	keys := make([]string, 0, len(entry))
	for k := range entry {
		if k != "level" && k != "ts" && k != "msg" && k != "caller" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", timestamp, level, msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " (%s: %v)", k, entry[k])
	}
	return b.String()
}

func renderLogs(logs []string, limit int) string {
	if limit <= 0 || limit > 10 {
		limit = 10
	}
	if len(logs) > limit {
		logs = logs[len(logs)-limit:]
	}

	lines := make([]string, 0, len(logs))
	for _, log := range logs {
		// Выделение по уровню логирования
		switch {
		case strings.Contains(log, "[ERROR]"), strings.Contains(log, "[FATAL]"):
			log = lipgloss.NewStyle().Foreground(errorColor).Render(log)
		case strings.Contains(log, "[WARN]"):
			log = lipgloss.NewStyle().Foreground(warningColor).Render(log)
		case strings.Contains(log, "[INFO]"):
			log = lipgloss.NewStyle().Foreground(successColor).Render(log)
		case strings.Contains(log, "[DEBUG]"):
			log = lipgloss.NewStyle().Foreground(lipgloss.Color("#9999ff")).Render(log)
		}
		lines = append(lines, log)
	}
	return strings.Join(lines, "\n")
}
