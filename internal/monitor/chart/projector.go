// Package chart нарезает ряды цены и индикатора на два скользящих окна для графиков.
package chart

import (
	"errors"
	"fmt"
	"time"
)

// Окна по умолчанию, в минутах
const (
	DefaultLeftWindow  = 180
	DefaultRightWindow = 30
)

var ErrInvalidWindow = errors.New("окно графика должно быть больше нуля")

// Window данные одного графика
type Window struct {
	Title     string
	Minutes   int
	Labels    []string
	Price     []float64
	Indicator []float64
	// MinY нижняя граница оси; 0 для пустого окна
	MinY float64
}

// Empty сообщает, что в окне нет данных
func (w Window) Empty() bool {
	return len(w.Price) == 0
}

// Chart пара окон: левое (длинное) и правое (короткое)
type Chart struct {
	Left  Window
	Right Window
}

// Projector хранит длины окон и строит графики
type Projector struct {
	left     int
	right    int
	location *time.Location
}

// NewProjector создает проектор с заданными окнами
func NewProjector(left, right int) (*Projector, error) {
	p := &Projector{location: time.Local}
	if err := p.SetLeft(left); err != nil {
		return nil, err
	}
	if err := p.SetRight(right); err != nil {
		return nil, err
	}
	return p, nil
}

// SetLocation задает часовой пояс подписей
func (p *Projector) SetLocation(loc *time.Location) {
	p.location = loc
}

// SetLeft меняет длину левого окна; действует со следующей проекции
func (p *Projector) SetLeft(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWindow, minutes)
	}
	p.left = minutes
	return nil
}

// SetRight меняет длину правого окна
func (p *Projector) SetRight(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWindow, minutes)
	}
	p.right = minutes
	return nil
}

func (p *Projector) Left() int  { return p.left }
func (p *Projector) Right() int { return p.right }

// Project строит оба окна. timestamps, closes и indicator выровнены по индексу.
// Если истории меньше окна, ряд просто короче
func (p *Projector) Project(timestamps []int64, closes, indicator []float64, indicatorLabel string) Chart {
	return Chart{
		Left:  p.window(p.left, timestamps, closes, indicator, indicatorLabel),
		Right: p.window(p.right, timestamps, closes, indicator, indicatorLabel),
	}
}

func (p *Projector) window(minutes int, timestamps []int64, closes, indicator []float64, label string) Window {
	w := Window{
		Title:   fmt.Sprintf("%dmin Price & %s", minutes, label),
		Minutes: minutes,
	}

	ts := tail(timestamps, minutes)
	w.Labels = make([]string, len(ts))
	for i, mts := range ts {
		w.Labels[i] = time.UnixMilli(mts).In(p.location).Format("15:04:05")
	}
	w.Price = append([]float64{}, tail(closes, minutes)...)
	w.Indicator = append([]float64{}, tail(indicator, minutes)...)

	for i, v := range w.Price {
		if i == 0 || v < w.MinY {
			w.MinY = v
		}
	}
	return w
}

func tail[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
