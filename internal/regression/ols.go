package regression

import (
	"errors"
	"fmt"
	"math"

	"github.com/KaramelBytes/airfit-cli/internal/dataset"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// InterceptName labels the constant term in coefficient tables.
const InterceptName = "(Intercept)"

// rankTol is the share of a column's norm below which its diagonal entry of
// R marks it as linearly dependent on earlier columns.
const rankTol = 1e-10

var (
	// ErrSingular is returned when the design matrix is rank deficient.
	ErrSingular = errors.New("singular design matrix")
	// ErrTooFewRows is returned when there are not more rows than parameters.
	ErrTooFewRows = errors.New("too few observations")
)

// Coefficient is one row of a regression coefficient table.
type Coefficient struct {
	Name     string  `yaml:"name"`
	Estimate float64 `yaml:"estimate"`
	StdErr   float64 `yaml:"std_err"`
	TValue   float64 `yaml:"t_value"`
	PValue   float64 `yaml:"p_value"`
}

// Fit is an ordinary least-squares fit with intercept.
type Fit struct {
	Target       string        `yaml:"target"`
	Predictors   []string      `yaml:"predictors"`
	N            int           `yaml:"n"`
	DF           int           `yaml:"df_residual"`
	Coefficients []Coefficient `yaml:"coefficients"` // intercept first
	RSS          float64       `yaml:"rss"`
	TSS          float64       `yaml:"tss"`
	RSquared     float64       `yaml:"r_squared"`
	AdjRSquared  float64       `yaml:"adj_r_squared"`
	Sigma        float64       `yaml:"sigma"` // residual standard error
	FStatistic   float64       `yaml:"f_statistic"`
	FPValue      float64       `yaml:"f_p_value"`
}

// Model returns the fitted coefficients as a prediction model.
func (f *Fit) Model() *Model {
	coef := make([]float64, len(f.Predictors))
	for i := range f.Predictors {
		coef[i] = f.Coefficients[i+1].Estimate
	}
	preds := make([]string, len(f.Predictors))
	copy(preds, f.Predictors)
	return &Model{Target: f.Target, Predictors: preds, Intercept: f.Coefficients[0].Estimate, Coef: coef}
}

// OLS regresses target on predictors (plus an intercept) over every row of t.
func OLS(t *dataset.Table, target string, predictors []string) (*Fit, error) {
	y, err := t.Col(target)
	if err != nil {
		return nil, fmt.Errorf("ols: %w", err)
	}
	cols := make([][]float64, len(predictors))
	for j, p := range predictors {
		if p == target {
			return nil, fmt.Errorf("ols: target %q listed as predictor", target)
		}
		if cols[j], err = t.Col(p); err != nil {
			return nil, fmt.Errorf("ols: %w", err)
		}
	}
	n, k := len(y), len(predictors)+1
	if n <= k {
		return nil, fmt.Errorf("ols: %w: %d rows for %d parameters", ErrTooFewRows, n, k)
	}

	x := designMatrix(cols, n)
	var qr mat.QR
	qr.Factorize(x)
	var r mat.Dense
	qr.RTo(&r)
	if j := dependentColumn(&r, x, k); j >= 0 {
		name := InterceptName
		if j > 0 {
			name = predictors[j-1]
		}
		return nil, fmt.Errorf("ols: %w: %s is a linear combination of earlier columns", ErrSingular, name)
	}
	yv := mat.NewVecDense(n, y)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, yv); err != nil {
		return nil, fmt.Errorf("ols: %w: %v", ErrSingular, err)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	ybar := stat.Mean(y, nil)
	var rss, tss float64
	for i := 0; i < n; i++ {
		e := y[i] - fitted.AtVec(i)
		rss += e * e
		d := y[i] - ybar
		tss += d * d
	}

	f := &Fit{
		Target:     target,
		Predictors: append([]string(nil), predictors...),
		N:          n,
		DF:         n - k,
		RSS:        rss,
		TSS:        tss,
	}
	sigma2 := rss / float64(f.DF)
	f.Sigma = math.Sqrt(sigma2)
	if tss > 0 {
		f.RSquared = 1 - rss/tss
		f.AdjRSquared = 1 - (1-f.RSquared)*float64(n-1)/float64(f.DF)
	}

	cov, err := unscaledCovariance(x)
	if err != nil {
		return nil, fmt.Errorf("ols: %w", err)
	}
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(f.DF)}
	f.Coefficients = make([]Coefficient, k)
	for j := 0; j < k; j++ {
		name := InterceptName
		if j > 0 {
			name = predictors[j-1]
		}
		c := Coefficient{Name: name, Estimate: beta.AtVec(j)}
		c.StdErr = math.Sqrt(sigma2 * cov.At(j, j))
		if c.StdErr > 0 {
			c.TValue = c.Estimate / c.StdErr
			c.PValue = 2 * (1 - tdist.CDF(math.Abs(c.TValue)))
		}
		f.Coefficients[j] = c
	}

	p := k - 1
	switch {
	case p == 0:
		f.FPValue = 1
	case rss == 0:
		f.FStatistic = math.Inf(1)
	default:
		f.FStatistic = ((tss - rss) / float64(p)) / sigma2
		fdist := distuv.F{D1: float64(p), D2: float64(f.DF)}
		f.FPValue = 1 - fdist.CDF(f.FStatistic)
	}
	return f, nil
}

// designMatrix stacks an intercept column and the given columns.
func designMatrix(cols [][]float64, n int) *mat.Dense {
	k := len(cols) + 1
	data := make([]float64, n*k)
	for i := 0; i < n; i++ {
		row := data[i*k : (i+1)*k]
		row[0] = 1
		for j, c := range cols {
			row[j+1] = c[i]
		}
	}
	return mat.NewDense(n, k, data)
}

// dependentColumn returns the first column whose R diagonal is negligible
// relative to the column's own norm, or -1.
func dependentColumn(r, x *mat.Dense, k int) int {
	for j := 0; j < k; j++ {
		norm := mat.Norm(x.ColView(j), 2)
		if norm == 0 || math.Abs(r.At(j, j)) <= rankTol*norm {
			return j
		}
	}
	return -1
}

// unscaledCovariance returns (XᵀX)⁻¹.
func unscaledCovariance(x *mat.Dense) (*mat.SymDense, error) {
	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	var ch mat.Cholesky
	if ok := ch.Factorize(&xtx); !ok {
		return nil, ErrSingular
	}
	var inv mat.SymDense
	if err := ch.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return &inv, nil
}
