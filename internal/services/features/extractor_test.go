package features

import (
	"math"
	"testing"
	"time"

	"FinSignal/internal/domain/models"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func minuteBar(i int, o, h, l, c, v float64) models.Candle {
	return models.Candle{
		OpenTime:  t0.Add(time.Duration(i) * time.Minute),
		Open:      o,
		High:      h,
		Low:       l,
		Close:     c,
		Volume:    v,
		CloseTime: t0.Add(time.Duration(i+1)*time.Minute - time.Millisecond),
	}
}

func TestResample10m(t *testing.T) {
	var bars []models.Candle
	for i := 0; i < 25; i++ {
		p := float64(100 + i)
		bars = append(bars, minuteBar(i, p, p+2, p-1, p+1, 1))
	}
	out := Resample10m(bars, 120)
	if len(out) != 3 {
		t.Fatalf("got %d buckets, want 3", len(out))
	}
	first := out[0]
	if first.Open != 100 || first.Close != 110 || first.High != 111 || first.Low != 99 || first.Volume != 10 {
		t.Errorf("unexpected first bucket %+v", first)
	}
	if !first.CloseTime.Equal(bars[9].CloseTime) {
		t.Errorf("close time = %v, want %v", first.CloseTime, bars[9].CloseTime)
	}
	if out[2].Volume != 5 {
		t.Errorf("partial bucket volume = %v, want 5", out[2].Volume)
	}

	if kept := Resample10m(bars, 2); len(kept) != 2 || kept[1].Close != out[2].Close {
		t.Errorf("keep=2 returned %d buckets", len(kept))
	}
}

func TestResampleSkipsGaps(t *testing.T) {
	bars := []models.Candle{
		minuteBar(0, 1, 1, 1, 1, 1),
		minuteBar(35, 2, 2, 2, 2, 1),
	}
	if out := Resample10m(bars, 0); len(out) != 2 {
		t.Fatalf("got %d buckets, want 2", len(out))
	}
}

func TestPressureVote(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		vols   []float64
		want   int
	}{
		{"rising price rising volume", []float64{1, 2, 3, 4, 5, 6}, []float64{10, 11, 12, 13, 14, 15}, 1},
		{"falling price rising volume", []float64{6, 5, 4, 3, 2, 1}, []float64{10, 11, 12, 13, 14, 15}, -1},
		{"rising price falling volume", []float64{1, 2, 3, 4, 5, 6}, []float64{15, 14, 13, 12, 11, 10}, 0},
		{"too short", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars := make([]models.Candle, len(tt.closes))
			for i := range tt.closes {
				bars[i] = minuteBar(i, tt.closes[i], tt.closes[i], tt.closes[i], tt.closes[i], tt.vols[i])
			}
			if got := PressureVote(bars, 5); got != tt.want {
				t.Errorf("PressureVote = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDepthBias(t *testing.T) {
	d := models.DepthSnapshot{
		Bids: []models.BookLevel{{Price: 99, Qty: 3}, {Price: 98, Qty: 1}, {Price: 97, Qty: 100}},
		Asks: []models.BookLevel{{Price: 101, Qty: 1}, {Price: 102, Qty: 1}},
	}
	if got := DepthBias(d, 2); math.Abs(got-(4.0-2.0)/6.0) > 1e-12 {
		t.Errorf("DepthBias = %v", got)
	}
	if got := DepthBias(models.DepthSnapshot{}, 20); got != 0 {
		t.Errorf("empty depth bias = %v, want 0", got)
	}
}

func TestVolumeRatiosClipped(t *testing.T) {
	bars := make([]models.Candle, 21)
	for i := range bars {
		bars[i] = minuteBar(i, 1, 1, 1, 1, 1)
	}
	bars[20].Volume = 1000
	r := VolumeRatios(bars, 20)
	if r[18] != 0 {
		t.Errorf("partial window ratio = %v, want 0", r[18])
	}
	if r[20] != volumeRatioCap {
		t.Errorf("spike ratio = %v, want %v", r[20], volumeRatioCap)
	}
}

func TestMatricesShape(t *testing.T) {
	bars := make([]models.Candle, 40)
	for i := range bars {
		p := 100 + math.Sin(float64(i))
		bars[i] = minuteBar(i, p, p+1, p-1, p+0.2, 10+float64(i%3))
	}
	rm := ReversalMatrix(bars, 14, 14)
	nm := NextMoveMatrix(bars)
	if len(rm) != len(bars) || len(rm[0]) != len(ReversalFeatureNames) {
		t.Fatalf("reversal matrix shape %dx%d", len(rm), len(rm[0]))
	}
	if len(nm) != len(bars) || len(nm[0]) != len(NextMoveFeatureNames) {
		t.Fatalf("next-move matrix shape %dx%d", len(nm), len(nm[0]))
	}
	for i, row := range rm {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("reversal[%d][%d] not finite", i, j)
			}
		}
	}
	if rm[0][3] != 0 {
		t.Errorf("undefined rsi should be 0, got %v", rm[0][3])
	}
}
