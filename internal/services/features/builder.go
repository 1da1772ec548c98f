package features

import (
	"math"

	"MarketRegime/internal/domain/models"
	domsvc "MarketRegime/internal/domain/service"
)

// Builder derives returns, simple moving averages and rolling volatility
// from a validated, date-ascending price series.
type Builder struct {
	w models.Windows
}

var _ domsvc.FeatureBuilder = (*Builder)(nil)

// NewBuilder returns a builder for the given windows. Invalid windows fall back to defaults.
func NewBuilder(w models.Windows) *Builder {
	return &Builder{w: models.NormalizeWindows(w)}
}

// Windows returns the lookbacks in use.
func (b *Builder) Windows() models.Windows { return b.w }

// Build returns one feature row per input row. Features without enough
// history stay nil.
func (b *Builder) Build(rows []models.PriceRow) []models.FeatureRow {
	out := make([]models.FeatureRow, len(rows))
	if len(rows) == 0 {
		return out
	}
	closes := make([]float64, len(rows))
	for i, r := range rows {
		closes[i] = r.Close
	}

	simple, logs := ComputeReturns(closes)
	short := RollingMean(closes, b.w.SMAShort)
	mid := RollingMean(closes, b.w.SMAMid)
	long := RollingMean(closes, b.w.SMALong)
	vol := RollingSampleStd(logs, b.w.Volatility)

	for i, r := range rows {
		out[i] = models.FeatureRow{
			PriceRow:     r,
			DailyReturn:  simple[i],
			LogReturn:    logs[i],
			SMA10:        short[i],
			SMA20:        mid[i],
			SMA50:        long[i],
			Volatility20: vol[i],
		}
	}
	return out
}

// ComputeReturns computes r_t = C_t/C_{t-1} - 1 and ln(C_t/C_{t-1}).
// Both are nil at index 0.
func ComputeReturns(closes []float64) (simple, logs []*float64) {
	simple = make([]*float64, len(closes))
	logs = make([]*float64, len(closes))
	for i := 1; i < len(closes); i++ {
		ratio := closes[i] / closes[i-1]
		simple[i] = models.Float(ratio - 1)
		logs[i] = models.Float(math.Log(ratio))
	}
	return simple, logs
}

// RollingMean returns the trailing mean over window values ending at each
// index, nil until window values are available.
func RollingMean(xs []float64, window int) []*float64 {
	out := make([]*float64, len(xs))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(xs); i++ {
		// shift by the first value so constant windows are exact
		base := xs[i-window+1]
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += xs[j] - base
		}
		out[i] = models.Float(base + sum/float64(window))
	}
	return out
}

// RollingSampleStd returns the trailing sample standard deviation (n-1
// denominator) over window values ending at each index. A window containing
// any nil value yields nil.
func RollingSampleStd(xs []*float64, window int) []*float64 {
	out := make([]*float64, len(xs))
	if window < 2 {
		return out
	}
	for i := window - 1; i < len(xs); i++ {
		sum := 0.0
		complete := true
		for j := i - window + 1; j <= i; j++ {
			if xs[j] == nil {
				complete = false
				break
			}
			sum += *xs[j]
		}
		if !complete {
			continue
		}
		n := float64(window)
		mean := sum / n
		ss := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := *xs[j] - mean
			ss += d * d
		}
		out[i] = models.Float(math.Sqrt(ss / (n - 1)))
	}
	return out
}
