package learning

import (
	"fmt"
	"math"
	"sort"
)

// GBRTConfig holds the boosting hyper-parameters.
type GBRTConfig struct {
	Trees          int
	LearningRate   float64
	MaxDepth       int
	MinSamplesLeaf int
}

// DefaultGBRTConfig is 100 depth-3 trees with shrinkage 0.1.
func DefaultGBRTConfig() GBRTConfig {
	return GBRTConfig{Trees: 100, LearningRate: 0.1, MaxDepth: 3, MinSamplesLeaf: 1}
}

// GBRT is a least-squares gradient-boosted ensemble of regression trees.
type GBRT struct {
	cfg   GBRTConfig
	init  float64
	trees []*treeNode
}

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
}

func (n *treeNode) leaf() bool { return n.left == nil }

func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf() {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func NewGBRT(cfg GBRTConfig) *GBRT {
	return &GBRT{cfg: cfg}
}

// Fit replaces any previous ensemble with one trained on X, y.
func (g *GBRT) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("gbrt: %d rows, %d targets", len(X), len(y))
	}
	g.init = meanOf(y)
	g.trees = g.trees[:0]

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = g.init
	}
	residual := make([]float64, len(y))
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	for t := 0; t < g.cfg.Trees; t++ {
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}
		tree := g.grow(X, residual, idx, 0)
		g.trees = append(g.trees, tree)
		for i, row := range X {
			pred[i] += g.cfg.LearningRate * tree.predict(row)
		}
	}
	return nil
}

// Predict evaluates the ensemble on one row.
func (g *GBRT) Predict(x []float64) float64 {
	out := g.init
	for _, t := range g.trees {
		out += g.cfg.LearningRate * t.predict(x)
	}
	return out
}

func (g *GBRT) grow(X [][]float64, r []float64, idx []int, depth int) *treeNode {
	sum := 0.0
	for _, i := range idx {
		sum += r[i]
	}
	node := &treeNode{value: sum / float64(len(idx))}
	if depth >= g.cfg.MaxDepth || len(idx) < 2*g.cfg.MinSamplesLeaf {
		return node
	}

	bestGain := 0.0
	bestFeature := -1
	var bestThreshold float64
	sorted := make([]int, len(idx))
	for f := 0; f < len(X[idx[0]]); f++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool { return X[sorted[a]][f] < X[sorted[b]][f] })

		left := 0.0
		base := sum * sum / float64(len(sorted))
		for k := 0; k < len(sorted)-1; k++ {
			left += r[sorted[k]]
			nl := k + 1
			nr := len(sorted) - nl
			if nl < g.cfg.MinSamplesLeaf || nr < g.cfg.MinSamplesLeaf {
				continue
			}
			lo, hi := X[sorted[k]][f], X[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			right := sum - left
			gain := left*left/float64(nl) + right*right/float64(nr) - base
			if gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				if bestThreshold >= hi {
					bestThreshold = lo
				}
			}
		}
	}
	if bestFeature < 0 {
		return node
	}

	var li, ri []int
	for _, i := range idx {
		if X[i][bestFeature] <= bestThreshold {
			li = append(li, i)
		} else {
			ri = append(ri, i)
		}
	}
	if len(li) == 0 || len(ri) == 0 {
		return node
	}
	node.feature = bestFeature
	node.threshold = bestThreshold
	node.left = g.grow(X, r, li, depth+1)
	node.right = g.grow(X, r, ri, depth+1)
	return node
}

func meanOf(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
