package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/bfmon/pkg/models"
)

type fakeController struct {
	rules    []models.PrimeRule
	orders   [][2]float64
	settings map[string]interface{}
	err      error
}

func newFakeController() *fakeController {
	return &fakeController{settings: map[string]interface{}{}}
}

func (f *fakeController) AddPrime(_ context.Context, rule models.PrimeRule) error {
	if f.err != nil {
		return f.err
	}
	f.rules = append(f.rules, rule)
	return nil
}

func (f *fakeController) Primes(context.Context) ([]models.PrimeRule, error) {
	return f.rules, nil
}

func (f *fakeController) SubmitOrder(_ context.Context, side int, amount float64) error {
	if f.err != nil {
		return f.err
	}
	f.orders = append(f.orders, [2]float64{float64(side), amount})
	return nil
}

func (f *fakeController) set(key string, v interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.settings[key] = v
	return nil
}

func (f *fakeController) SetTradeSizeAlert(_ context.Context, v float64) error {
	return f.set("trade-alert", v)
}
func (f *fakeController) SetGroupSizeAlert(_ context.Context, v float64) error {
	return f.set("group-alert", v)
}
func (f *fakeController) SetLeftWindow(_ context.Context, v int) error  { return f.set("left", v) }
func (f *fakeController) SetRightWindow(_ context.Context, v int) error { return f.set("right", v) }
func (f *fakeController) SetIndicatorPeriod(_ context.Context, v int) error {
	return f.set("period", v)
}
func (f *fakeController) SetIndicatorKind(_ context.Context, v string) error {
	return f.set("kind", v)
}
func (f *fakeController) SetQuickOrderSize(_ context.Context, v float64) error {
	return f.set("quick", v)
}
func (f *fakeController) SetPrimePolicy(_ context.Context, v string) error {
	return f.set("policy", v)
}

type bufferOutput struct {
	lines   []string
	cleared int
}

func (b *bufferOutput) Print(line string) { b.lines = append(b.lines, line) }
func (b *bufferOutput) Clear()            { b.lines = nil; b.cleared++ }

func newTestDispatcher() (*Dispatcher, *fakeController, *bufferOutput) {
	ctrl := newFakeController()
	out := &bufferOutput{}
	d := NewDispatcher(ctrl, out)
	d.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return d, ctrl, out
}

func TestExecute_Prime(t *testing.T) {
	d, ctrl, out := newTestDispatcher()
	ctx := context.Background()

	require.NoError(t, d.Execute(ctx, "prime size 5"))
	require.NoError(t, d.Execute(ctx, "  PRIME   size -2.5 0.1 TIF=30 "))

	require.Len(t, ctrl.rules, 2)
	assert.Equal(t, models.PrimeRule{Type: models.PrimeTypeSize, Threshold: 5}, ctrl.rules[0])

	r := ctrl.rules[1]
	assert.Equal(t, -2.5, r.Threshold)
	assert.Equal(t, -0.1, r.Amount, "amount takes the threshold sign")
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 30, 0, time.UTC), r.Expiry)

	assert.Contains(t, out.lines[0], "size >= 5 quick size")

	require.NoError(t, d.Execute(ctx, "primes"))
	assert.Contains(t, out.lines[len(out.lines)-1], "2. size <= -2.5 amount 0.1")
}

func TestExecute_PrimeExpiryWithoutAmount(t *testing.T) {
	d, ctrl, _ := newTestDispatcher()
	ctx := context.Background()

	require.NoError(t, d.Execute(ctx, "prime size 5 tif=45"))
	require.Len(t, ctrl.rules, 1)
	assert.Zero(t, ctrl.rules[0].Amount, "quick size is used")
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 45, 0, time.UTC), ctrl.rules[0].Expiry)

	// Второе число без ключа всегда объем, а не срок
	require.NoError(t, d.Execute(ctx, "prime size 6 30"))
	require.Len(t, ctrl.rules, 2)
	assert.Equal(t, 30.0, ctrl.rules[1].Amount)
	assert.True(t, ctrl.rules[1].Expiry.IsZero())

	err := d.Execute(ctx, "prime size 7 0.1 30")
	assert.True(t, errors.Is(err, ErrUnknownCommand))
	assert.Len(t, ctrl.rules, 2)
}

func TestExecute_Orders(t *testing.T) {
	d, ctrl, _ := newTestDispatcher()
	ctx := context.Background()

	require.NoError(t, d.Execute(ctx, "buy"))
	require.NoError(t, d.Execute(ctx, "sell 0.25"))

	assert.Equal(t, [][2]float64{{1, 0}, {-1, 0.25}}, ctrl.orders)
}

func TestExecute_Setters(t *testing.T) {
	d, ctrl, _ := newTestDispatcher()
	ctx := context.Background()

	for _, line := range []string{
		"trade-alert 1.5",
		"group-alert 4",
		"left-window 240",
		"right-window 15",
		"ema 50",
		"indicator SMA",
		"quick-size 0.002",
		"prime-policy fired",
	} {
		require.NoError(t, d.Execute(ctx, line), line)
	}

	assert.Equal(t, map[string]interface{}{
		"trade-alert": 1.5,
		"group-alert": 4.0,
		"left":        240,
		"right":       15,
		"period":      50,
		"kind":        "sma",
		"quick":       0.002,
		"policy":      "fired",
	}, ctrl.settings)
}

func TestExecute_Errors(t *testing.T) {
	d, ctrl, out := newTestDispatcher()
	ctx := context.Background()

	err := d.Execute(ctx, "moon 1")
	assert.True(t, errors.Is(err, ErrUnknownCommand))
	assert.Contains(t, out.lines[len(out.lines)-1], "Unknown command")

	// Некорректные аргументы не совпадают с шаблоном
	err = d.Execute(ctx, "left-window -5")
	assert.True(t, errors.Is(err, ErrUnknownCommand))

	ctrl.err = errors.New("duplicate")
	err = d.Execute(ctx, "prime size 5")
	assert.EqualError(t, err, "duplicate")
	assert.Equal(t, "Error: duplicate", out.lines[len(out.lines)-1])

	assert.NoError(t, d.Execute(ctx, "   "))
}

func TestExecute_HelpAndClear(t *testing.T) {
	d, _, out := newTestDispatcher()
	ctx := context.Background()

	require.NoError(t, d.Execute(ctx, "help"))
	assert.Equal(t, "Commands:", out.lines[0])
	assert.Len(t, out.lines, len(d.commands)+1)

	require.NoError(t, d.Execute(ctx, "clear"))
	assert.Empty(t, out.lines)
	assert.Equal(t, 1, out.cleared)
}
