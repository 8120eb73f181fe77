package calculator

import (
	"math"
	"testing"

	"CoinSentinel/internal/model"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestRSI_InsufficientData(t *testing.T) {
	closes := make([]float64, RSIPeriod)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	if got := RSI(closes, RSIPeriod); got != 0 {
		t.Errorf("expected 0 for %d closes, got %.2f", len(closes), got)
	}
}

func TestRSI_NoLosses(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6}
	if got := RSI(closes, 5); got != 100 {
		t.Errorf("expected 100 for a rising series, got %.2f", got)
	}
}

func TestRSI_UsesTrailingWindowOnly(t *testing.T) {
	// The drop from 10 to 1 is outside the 2-delta window.
	closes := []float64{10, 1, 2, 3}
	if got := RSI(closes, 2); got != 100 {
		t.Errorf("expected 100, got %.2f", got)
	}
}

func TestRSI_Balanced(t *testing.T) {
	closes := []float64{1, 2, 1}
	if got := RSI(closes, 2); !approx(got, 50) {
		t.Errorf("expected 50, got %.4f", got)
	}
}

func TestRSI_Known(t *testing.T) {
	// deltas +2, -1, +1: avg gain 1, avg loss 1/3, rs 3 -> 75
	closes := []float64{10, 12, 11, 12}
	if got := RSI(closes, 3); !approx(got, 75) {
		t.Errorf("expected 75, got %.4f", got)
	}
}

func TestRSI_NaN(t *testing.T) {
	closes := []float64{1, 2, math.NaN(), 4}
	if got := RSI(closes, 3); got != 0 {
		t.Errorf("expected 0 for NaN input, got %.2f", got)
	}
}

func TestBollingerBands(t *testing.T) {
	tests := []struct {
		name         string
		closes       []float64
		period       int
		upper, lower float64
	}{
		{"insufficient", []float64{1, 2, 3}, 5, 0, 0},
		{"single window", []float64{1}, 1, 0, 0},
		{"flat", []float64{7, 7, 7, 7}, 4, 7, 7},
		{"known", []float64{100, 1, 2, 3, 4, 5}, 5, 3 + 2*math.Sqrt(2.5), 3 - 2*math.Sqrt(2.5)},
		{"nan", []float64{1, math.NaN(), 3}, 3, 0, 0},
	}
	for _, tt := range tests {
		u, l := BollingerBands(tt.closes, tt.period, BollingerStdDev)
		if !approx(u, tt.upper) || !approx(l, tt.lower) {
			t.Errorf("%s: expected (%.4f, %.4f), got (%.4f, %.4f)", tt.name, tt.upper, tt.lower, u, l)
		}
	}
}

func TestEMA_SeededWithFirstValue(t *testing.T) {
	got := EMA([]float64{1, 2, 3}, 3)
	want := []float64{1, 1.5, 2.25}
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if !approx(got[i], want[i]) {
			t.Errorf("ema[%d]: expected %.4f, got %.4f", i, want[i], got[i])
		}
	}
}

func TestEMACrosses_SkipsUncoveredPeriods(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = float64(i)
	}
	emas := EMACrosses(closes, EMAFast, EMASlow)
	if _, ok := emas[EMAFast]; !ok {
		t.Error("expected fast EMA series")
	}
	if _, ok := emas[EMASlow]; ok {
		t.Error("did not expect slow EMA series for 120 closes")
	}
	if got := EMACross(emas[EMAFast], emas[EMASlow]); got != model.InsufficientData {
		t.Errorf("expected %q, got %q", model.InsufficientData, got)
	}
}

func TestEMACross(t *testing.T) {
	tests := []struct {
		fast, slow []float64
		want       string
	}{
		{[]float64{1, 3}, []float64{2, 2}, model.CrossGolden},
		{[]float64{3, 1}, []float64{2, 2}, model.CrossDeath},
		{[]float64{2, 3}, []float64{2, 2}, model.CrossNone},
		{[]float64{3, 4}, []float64{2, 2}, model.CrossNone},
	}
	for _, tt := range tests {
		if got := EMACross(tt.fast, tt.slow); got != tt.want {
			t.Errorf("fast %v slow %v: expected %q, got %q", tt.fast, tt.slow, tt.want, got)
		}
	}
}

func trend(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestMACDCross(t *testing.T) {
	flat := make([]float64, 60)
	for i := range flat {
		flat[i] = 42
	}
	tests := []struct {
		name   string
		closes []float64
		want   string
	}{
		{"insufficient", trend(100, 1, MACDSlow-1), model.InsufficientData},
		{"tie", flat, model.CrossNone},
		{"bullish", append(trend(200, -1, 60), 300), model.CrossBullish},
		{"bearish", append(trend(100, 1, 60), 10), model.CrossBearish},
		{"steady decline", trend(200, -1, 60), model.CrossNone},
	}
	for _, tt := range tests {
		if got := MACDCross(tt.closes, MACDFast, MACDSlow, MACDSignal); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}
