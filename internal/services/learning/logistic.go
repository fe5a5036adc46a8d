package learning

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LogisticConfig controls the L2-regularised Newton solver.
type LogisticConfig struct {
	// C is the inverse regularisation strength.
	C         float64
	MaxIter   int
	Tolerance float64
}

func DefaultLogisticConfig() LogisticConfig {
	return LogisticConfig{C: 1, MaxIter: 250, Tolerance: 1e-8}
}

var errSingular = errors.New("singular hessian")

// Logistic is a binary logistic regression over z-scored features. The
// intercept is not penalised.
type Logistic struct {
	cfg     LogisticConfig
	norm    Normalizer
	weights []float64 // weights[0] is the intercept
}

func NewLogistic(cfg LogisticConfig) *Logistic {
	return &Logistic{cfg: cfg}
}

// Fit trains on X with labels y in {0,1} using iteratively reweighted least squares.
func (l *Logistic) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("logistic: %d rows, %d labels", len(X), len(y))
	}
	Z := l.norm.FitTransform(X)
	n, p := len(Z), len(Z[0])+1
	design := mat.NewDense(n, p, nil)
	for i, z := range Z {
		design.Set(i, 0, 1)
		for j, v := range z {
			design.Set(i, j+1, v)
		}
	}
	w := mat.NewVecDense(p, nil)
	eta := mat.NewVecDense(n, nil)
	resid := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(p, nil)
	lambda := 1 / l.cfg.C

	for iter := 0; iter < l.cfg.MaxIter; iter++ {
		eta.MulVec(design, w)
		hess := mat.NewSymDense(p, nil)
		for i := 0; i < n; i++ {
			mu := sigmoid(eta.AtVec(i))
			resid.SetVec(i, mu-y[i])
			hess.SymRankOne(hess, mu*(1-mu), design.RowView(i))
		}
		grad.MulVec(design.T(), resid)
		for j := 1; j < p; j++ {
			grad.SetVec(j, grad.AtVec(j)+lambda*w.AtVec(j))
			hess.SetSym(j, j, hess.At(j, j)+lambda)
		}

		step, err := newtonStep(hess, grad)
		if err != nil {
			return err
		}
		w.SubVec(w, step)
		maxStep := mat.Norm(step, math.Inf(1))
		if !finite(maxStep) {
			return fmt.Errorf("logistic: diverged at iteration %d", iter)
		}
		if maxStep < l.cfg.Tolerance {
			break
		}
	}
	l.weights = mat.Col(nil, 0, w)
	return nil
}

// newtonStep solves hess * step = grad through a Cholesky factorisation.
func newtonStep(hess *mat.SymDense, grad *mat.VecDense) (*mat.VecDense, error) {
	var chol mat.Cholesky
	if !chol.Factorize(hess) {
		return nil, errSingular
	}
	step := mat.NewVecDense(grad.Len(), nil)
	if err := chol.SolveVecTo(step, grad); err != nil {
		return nil, fmt.Errorf("logistic: %w", err)
	}
	return step, nil
}

// PredictProb returns P(y=1 | x).
func (l *Logistic) PredictProb(x []float64) float64 {
	if l.weights == nil {
		return 0.5
	}
	return sigmoid(dot(l.weights, l.norm.Transform(x)))
}

// dot treats w[0] as the intercept for row z.
func dot(w, z []float64) float64 {
	s := w[0]
	for j, v := range z {
		s += w[j+1] * v
	}
	return s
}

func sigmoid(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	e := math.Exp(v)
	return e / (1 + e)
}
