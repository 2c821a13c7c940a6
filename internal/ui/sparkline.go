package ui

import (
	"math"
	"strings"
)

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// sparkline рисует ряд в одну строку шириной не больше width.
// Длинный ряд прореживается с сохранением последнего значения
func sparkline(values []float64, width int, lo, hi float64) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	points := values
	if len(values) > width {
		points = make([]float64, width)
		for i := range points {
			points[i] = values[(i+1)*len(values)/width-1]
		}
	}

	span := hi - lo
	var b strings.Builder
	for _, v := range points {
		level := 0
		if span > 0 && !math.IsNaN(v) {
			level = int((v - lo) / span * float64(len(sparkLevels)-1))
		}
		level = max(0, min(level, len(sparkLevels)-1))
		b.WriteRune(sparkLevels[level])
	}
	return b.String()
}
