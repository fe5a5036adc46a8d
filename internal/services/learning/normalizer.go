package learning

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const minStddev = 1e-10

// Normalizer applies z-score scaling fitted on a training matrix.
type Normalizer struct {
	Means   []float64
	Stddevs []float64
	Fitted  bool
}

// Fit computes per-column mean and population standard deviation. Columns
// with (near) zero spread get a unit deviation so Transform leaves them centered.
func (n *Normalizer) Fit(data [][]float64) {
	if len(data) == 0 {
		return
	}
	rows, cols := len(data), len(data[0])
	m := mat.NewDense(rows, cols, nil)
	for i, row := range data {
		m.SetRow(i, row)
	}
	n.Means = make([]float64, cols)
	n.Stddevs = make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		mean, sd := stat.PopMeanStdDev(col, nil)
		if sd < minStddev {
			sd = 1
		}
		n.Means[j] = mean
		n.Stddevs[j] = sd
	}
	n.Fitted = true
}

// Transform scales one row. An unfitted normalizer or a width mismatch
// returns the row unchanged.
func (n *Normalizer) Transform(row []float64) []float64 {
	if !n.Fitted || len(row) != len(n.Means) {
		return row
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - n.Means[j]) / n.Stddevs[j]
	}
	return out
}

// FitTransform fits on data and returns the scaled copy.
func (n *Normalizer) FitTransform(data [][]float64) [][]float64 {
	n.Fit(data)
	out := make([][]float64, len(data))
	for i, row := range data {
		out[i] = n.Transform(row)
	}
	return out
}
