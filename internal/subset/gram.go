package subset

import (
	"fmt"
	"math"
	"slices"

	"github.com/KaramelBytes/airfit-cli/internal/dataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// maxCond rejects subsets whose correlation matrix is numerically singular.
const maxCond = 1e12

// gram holds the centered cross-products every subset fit is solved from.
type gram struct {
	n    int
	xbar []float64
	ybar float64
	sxx  *mat.SymDense // centered XᵀX
	sx   []float64     // centered Xᵀy
	syy  float64
	// norm[j] is the length of centered column j; zero for constant columns.
	norm []float64
}

type evaluation struct {
	rss  float64
	beta []float64
}

func newGram(t *dataset.Table, target string, cands []string) (*gram, error) {
	y, err := t.Col(target)
	if err != nil {
		return nil, fmt.Errorf("subset: %w", err)
	}
	n, p := len(y), len(cands)
	g := &gram{n: n, xbar: make([]float64, p), sx: make([]float64, p)}
	g.ybar = stat.Mean(y, nil)
	yc := make([]float64, n)
	copy(yc, y)
	floats.AddConst(-g.ybar, yc)
	g.syy = floats.Dot(yc, yc)

	xc := mat.NewDense(n, p, nil)
	for j, name := range cands {
		if name == target {
			return nil, fmt.Errorf("subset: target %q listed as candidate", target)
		}
		c, err := t.Col(name)
		if err != nil {
			return nil, fmt.Errorf("subset: %w", err)
		}
		g.xbar[j] = stat.Mean(c, nil)
		col := make([]float64, n)
		copy(col, c)
		floats.AddConst(-g.xbar[j], col)
		xc.SetCol(j, col)
		g.sx[j] = floats.Dot(col, yc)
	}
	g.sxx = mat.NewSymDense(p, nil)
	g.sxx.SymOuterK(1, xc.T())
	g.norm = make([]float64, p)
	for j := range g.norm {
		g.norm[j] = math.Sqrt(g.sxx.At(j, j))
	}
	return g, nil
}

// evaluate solves the least-squares fit on the predictor indices idx
// (sorted ascending). The normal equations are scaled to unit-length
// columns first, so a subset is judged singular by its correlation
// structure and not by the units of its columns. ok is false when the
// subset is singular.
func (g *gram) evaluate(idx []int) (evaluation, bool) {
	k := len(idx)
	sub := mat.NewSymDense(k, nil)
	rhs := mat.NewVecDense(k, nil)
	for a, i := range idx {
		if g.norm[i] == 0 {
			return evaluation{}, false
		}
		rhs.SetVec(a, g.sx[i]/g.norm[i])
		for b := a; b < k; b++ {
			j := idx[b]
			sub.SetSym(a, b, g.sxx.At(i, j)/(g.norm[i]*g.norm[j]))
		}
	}
	var ch mat.Cholesky
	if !ch.Factorize(sub) || ch.Cond() > maxCond {
		return evaluation{}, false
	}
	var beta mat.VecDense
	if err := ch.SolveVecTo(&beta, rhs); err != nil {
		return evaluation{}, false
	}
	rss := g.syy - mat.Dot(&beta, rhs)
	if rss < 0 {
		rss = 0
	}
	out := make([]float64, k)
	for a, i := range idx {
		out[a] = beta.AtVec(a) / g.norm[i]
	}
	return evaluation{rss: rss, beta: out}, true
}

// intercept recovers the uncentered intercept ȳ − β·x̄.
func (g *gram) intercept(idx []int, beta []float64) float64 {
	b0 := g.ybar
	for a, i := range idx {
		b0 -= beta[a] * g.xbar[i]
	}
	return b0
}

func sorted(idx []int) []int {
	slices.Sort(idx)
	return idx
}
