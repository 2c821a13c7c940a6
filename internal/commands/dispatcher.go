// Package commands разбирает строки консоли и вызывает команды монитора.
package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/bfmon/pkg/format"
	"github.com/skalibog/bfmon/pkg/logger"
	"github.com/skalibog/bfmon/pkg/models"
)

var ErrUnknownCommand = errors.New("неизвестная команда")

// Controller команды монитора, доступные из консоли
type Controller interface {
	AddPrime(ctx context.Context, rule models.PrimeRule) error
	Primes(ctx context.Context) ([]models.PrimeRule, error)
	SubmitOrder(ctx context.Context, side int, amount float64) error
	SetTradeSizeAlert(ctx context.Context, v float64) error
	SetGroupSizeAlert(ctx context.Context, v float64) error
	SetLeftWindow(ctx context.Context, minutes int) error
	SetRightWindow(ctx context.Context, minutes int) error
	SetIndicatorPeriod(ctx context.Context, period int) error
	SetIndicatorKind(ctx context.Context, kind string) error
	SetQuickOrderSize(ctx context.Context, size float64) error
	SetPrimePolicy(ctx context.Context, policy string) error
}

// Output панель вывода консоли
type Output interface {
	Print(line string)
	Clear()
}

type command struct {
	usage   string
	pattern *regexp.Regexp
	run     func(ctx context.Context, d *Dispatcher, args []string) error
}

// Dispatcher сопоставляет строку с шаблонами команд
type Dispatcher struct {
	ctrl     Controller
	out      Output
	now      func() time.Time
	commands []command
}

// NewDispatcher создает диспетчер команд
func NewDispatcher(ctrl Controller, out Output) *Dispatcher {
	d := &Dispatcher{ctrl: ctrl, out: out, now: time.Now}
	d.commands = []command{
		{"help", regexp.MustCompile(`^help$`), runHelp},
		{"prime <type> <threshold> [amount] [tif=<seconds>]", regexp.MustCompile(`^prime\s+(\w+)\s+(-?\d*\.?\d+)(?:\s+(\d*\.?\d+))?(?:\s+tif=(\d+))?$`), runPrime},
		{"primes", regexp.MustCompile(`^primes$`), runPrimes},
		{"buy|sell [amount]", regexp.MustCompile(`^(buy|sell)(?:\s+(\d*\.?\d+))?$`), runOrder},
		{"trade-alert <size>", regexp.MustCompile(`^trade-alert\s+(\d*\.?\d+)$`), floatSetter(Controller.SetTradeSizeAlert, "Trade size alert")},
		{"group-alert <size>", regexp.MustCompile(`^group-alert\s+(\d*\.?\d+)$`), floatSetter(Controller.SetGroupSizeAlert, "Group size alert")},
		{"left-window <minutes>", regexp.MustCompile(`^left-window\s+(\d+)$`), intSetter(Controller.SetLeftWindow, "Left chart window")},
		{"right-window <minutes>", regexp.MustCompile(`^right-window\s+(\d+)$`), intSetter(Controller.SetRightWindow, "Right chart window")},
		{"ema <period>", regexp.MustCompile(`^ema\s+(\d+)$`), intSetter(Controller.SetIndicatorPeriod, "Indicator period")},
		{"indicator <ema|sma|wma|dema|tema|trima>", regexp.MustCompile(`^indicator\s+(\w+)$`), runIndicator},
		{"quick-size <amount>", regexp.MustCompile(`^quick-size\s+(\d*\.?\d+)$`), floatSetter(Controller.SetQuickOrderSize, "Quick order size")},
		{"prime-policy <all|fired>", regexp.MustCompile(`^prime-policy\s+(\w+)$`), runPolicy},
		{"clear", regexp.MustCompile(`^clear$`), runClear},
	}
	return d
}

// Execute выполняет строку консоли. Результат и ошибки выводятся в Output
func (d *Dispatcher) Execute(ctx context.Context, line string) error {
	line = strings.Join(strings.Fields(strings.ToLower(line)), " ")
	if line == "" {
		return nil
	}

	for _, c := range d.commands {
		args := c.pattern.FindStringSubmatch(line)
		if args == nil {
			continue
		}

		logger.Debug("Команда консоли", zap.String("line", line))
		if err := c.run(ctx, d, args[1:]); err != nil {
			d.out.Print("Error: " + err.Error())
			return err
		}
		return nil
	}

	d.out.Print(fmt.Sprintf("Unknown command %q, type help", line))
	return fmt.Errorf("%w: %s", ErrUnknownCommand, line)
}

func runHelp(_ context.Context, d *Dispatcher, _ []string) error {
	d.out.Print("Commands:")
	for _, c := range d.commands {
		d.out.Print("  " + c.usage)
	}
	return nil
}

// runPrime: объем без знака получает знак порога, срок задается ключом tif=<секунды>
func runPrime(ctx context.Context, d *Dispatcher, args []string) error {
	threshold, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return err
	}
	rule := models.PrimeRule{Type: models.PrimeType(args[0]), Threshold: threshold}

	if args[2] != "" {
		amount, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return err
		}
		if threshold < 0 {
			amount = -amount
		}
		rule.Amount = amount
	}
	if args[3] != "" {
		secs, err := strconv.Atoi(args[3])
		if err != nil {
			return err
		}
		if secs > 0 {
			rule.Expiry = d.now().Add(time.Duration(secs) * time.Second)
		}
	}

	if err := d.ctrl.AddPrime(ctx, rule); err != nil {
		return err
	}
	d.out.Print("Prime added: " + describeRule(rule))
	return nil
}

func runPrimes(ctx context.Context, d *Dispatcher, _ []string) error {
	rules, err := d.ctrl.Primes(ctx)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		d.out.Print("No active primes")
		return nil
	}
	for i, r := range rules {
		d.out.Print(fmt.Sprintf("%d. %s", i+1, describeRule(r)))
	}
	return nil
}

func runOrder(ctx context.Context, d *Dispatcher, args []string) error {
	side := 1
	if args[0] == "sell" {
		side = -1
	}

	var amount float64
	if args[1] != "" {
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return err
		}
		amount = v
	}

	if err := d.ctrl.SubmitOrder(ctx, side, amount); err != nil {
		return err
	}
	if amount == 0 {
		d.out.Print(fmt.Sprintf("Order sent: %s quick size", args[0]))
	} else {
		d.out.Print(fmt.Sprintf("Order sent: %s %s", args[0], format.Amount(amount)))
	}
	return nil
}

func runIndicator(ctx context.Context, d *Dispatcher, args []string) error {
	if err := d.ctrl.SetIndicatorKind(ctx, args[0]); err != nil {
		return err
	}
	d.out.Print("Indicator set to " + strings.ToUpper(args[0]))
	return nil
}

func runPolicy(ctx context.Context, d *Dispatcher, args []string) error {
	if err := d.ctrl.SetPrimePolicy(ctx, args[0]); err != nil {
		return err
	}
	d.out.Print("Prime policy set to " + args[0])
	return nil
}

func runClear(_ context.Context, d *Dispatcher, _ []string) error {
	d.out.Clear()
	return nil
}

func floatSetter(set func(Controller, context.Context, float64) error, label string) func(context.Context, *Dispatcher, []string) error {
	return func(ctx context.Context, d *Dispatcher, args []string) error {
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return err
		}
		if err := set(d.ctrl, ctx, v); err != nil {
			return err
		}
		d.out.Print(fmt.Sprintf("%s set to %s", label, format.Amount(v)))
		return nil
	}
}

func intSetter(set func(Controller, context.Context, int) error, label string) func(context.Context, *Dispatcher, []string) error {
	return func(ctx context.Context, d *Dispatcher, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		if err := set(d.ctrl, ctx, v); err != nil {
			return err
		}
		d.out.Print(fmt.Sprintf("%s set to %d", label, v))
		return nil
	}
}

func describeRule(r models.PrimeRule) string {
	cmp := ">="
	if r.Threshold < 0 {
		cmp = "<="
	}

	s := fmt.Sprintf("%s %s %s", r.Type, cmp, format.Amount(r.Threshold))
	if r.Amount != 0 {
		s += " amount " + format.Amount(math.Abs(r.Amount))
	} else {
		s += " quick size"
	}
	if r.HasExpiry() {
		s += " until " + r.Expiry.Local().Format("15:04:05")
	}
	return s
}
