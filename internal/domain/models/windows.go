package models

import "fmt"

// Windows holds the rolling lookbacks used by the feature builder.
type Windows struct {
	SMAShort   int `yaml:"sma_short" json:"sma_short" default:"10"`
	SMAMid     int `yaml:"sma_mid" json:"sma_mid" default:"20"`
	SMALong    int `yaml:"sma_long" json:"sma_long" default:"50"`
	Volatility int `yaml:"volatility" json:"volatility" default:"20"`
}

// DefaultWindows returns the 10/20/50 moving averages and 20-day volatility.
func DefaultWindows() Windows {
	return Windows{SMAShort: 10, SMAMid: 20, SMALong: 50, Volatility: 20}
}

// Validate reports whether the windows are strictly increasing and usable.
func (w Windows) Validate() error {
	if w.SMAShort <= 0 || w.SMAShort >= w.SMAMid || w.SMAMid >= w.SMALong {
		return fmt.Errorf("windows: need 0 < sma_short < sma_mid < sma_long, got %d/%d/%d", w.SMAShort, w.SMAMid, w.SMALong)
	}
	if w.Volatility < 2 {
		return fmt.Errorf("windows: volatility window must be >= 2, got %d", w.Volatility)
	}
	return nil
}

// NormalizeWindows returns w, or the defaults when w is unset or invalid.
func NormalizeWindows(w Windows) Windows {
	if w == (Windows{}) || w.Validate() != nil {
		return DefaultWindows()
	}
	return w
}
