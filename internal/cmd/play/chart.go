package play

import (
	"math"
	"strings"
)

// sparkLevels orders glyphs from lowest to highest.
const sparkLevels = "_.-~=+*#"

// maxChartPoints keeps the chart on one terminal line.
const maxChartPoints = 60

// sparkline renders values scaled to [lo, hi], keeping only the most recent
// maxChartPoints values.
func sparkline(values []float64, lo, hi float64) string {
	if len(values) > maxChartPoints {
		values = values[len(values)-maxChartPoints:]
	}
	var b strings.Builder
	top := len(sparkLevels) - 1
	for _, v := range values {
		level := top / 2
		if hi > lo {
			level = int(math.Round((v - lo) / (hi - lo) * float64(top)))
		}
		level = min(max(level, 0), top)
		b.WriteByte(sparkLevels[level])
	}
	return b.String()
}

// bounds returns the shared range of all series over their charted tails.
func bounds(series ...[]float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		if len(s) > maxChartPoints {
			s = s[len(s)-maxChartPoints:]
		}
		for _, v := range s {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}
