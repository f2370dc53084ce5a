// Package crossval scores best-subset models of every size with seeded
// k-fold cross-validation.
package crossval

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"

	"github.com/KaramelBytes/airfit-cli/internal/dataset"
	"github.com/KaramelBytes/airfit-cli/internal/regression"
	"github.com/KaramelBytes/airfit-cli/internal/subset"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Options configures Run.
type Options struct {
	Target string
	K      int
	NVMax  int
	Seed   int64
	Method subset.Method
	// Workers bounds concurrent folds; 0 means GOMAXPROCS.
	Workers int
	// Candidates restricts the predictors; default is every non-target column.
	Candidates []string
}

// Result is the cross-validation error matrix and its per-size aggregates.
type Result struct {
	K      int   `yaml:"k"`
	NVMax  int   `yaml:"nvmax"`
	N      int   `yaml:"n"`
	Seed   int64 `yaml:"seed"`
	Labels []int `yaml:"-"`
	// Errors[size-1][fold-1] is the held-out MSE.
	Errors  [][]float64 `yaml:"errors"`
	Mean    []float64   `yaml:"mean_mse"`
	StdErr  []float64   `yaml:"std_err"`
	MinSize int         `yaml:"min_size"`
}

// Run fits the best-subset search on each training partition and scores every
// size on the held-out fold. Folds run concurrently; the result does not
// depend on the worker count.
func Run(ctx context.Context, t *dataset.Table, opt Options) (*Result, error) {
	if !t.Has(opt.Target) {
		return nil, fmt.Errorf("crossval: %w: target %s", dataset.ErrUnknownColumn, opt.Target)
	}
	if opt.NVMax < 1 {
		return nil, fmt.Errorf("crossval: nvmax must be >= 1, got %d", opt.NVMax)
	}
	n := t.NumRows()
	labels, err := Folds(n, opt.K, opt.Seed)
	if err != nil {
		return nil, fmt.Errorf("crossval: %w", err)
	}
	cands := opt.Candidates
	if len(cands) == 0 {
		cands = t.Predictors(opt.Target)
	}
	nvmax := min(opt.NVMax, len(cands))
	if nvmax == 0 {
		return nil, fmt.Errorf("crossval: no candidate predictors")
	}

	res := &Result{K: opt.K, NVMax: nvmax, N: n, Seed: opt.Seed, Labels: labels}
	res.Errors = make([][]float64, nvmax)
	for s := range res.Errors {
		res.Errors[s] = make([]float64, opt.K)
	}

	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for fold := 1; fold <= opt.K; fold++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mses, err := runFold(t, labels, fold, nvmax, cands, opt)
			if err != nil {
				return fmt.Errorf("crossval: fold %d: %w", fold, err)
			}
			for s, v := range mses {
				res.Errors[s][fold-1] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Mean = make([]float64, nvmax)
	res.StdErr = make([]float64, nvmax)
	for s, row := range res.Errors {
		res.Mean[s] = stat.Mean(row, nil)
		res.StdErr[s] = stat.StdDev(row, nil) / math.Sqrt(float64(opt.K))
	}
	res.MinSize = slices.Index(res.Mean, slices.Min(res.Mean)) + 1
	return res, nil
}

func runFold(t *dataset.Table, labels []int, fold, nvmax int, cands []string, opt Options) ([]float64, error) {
	trainIdx, testIdx := split(labels, fold)
	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return nil, fmt.Errorf("%w: fold %d is empty or covers every row", ErrFolds, fold)
	}
	train, test := t.Rows(trainIdx), t.Rows(testIdx)
	sum, err := subset.Select(train, subset.Options{
		Target:     opt.Target,
		NVMax:      nvmax,
		Method:     opt.Method,
		Candidates: cands,
	})
	if err != nil {
		return nil, err
	}
	actual, err := test.Col(opt.Target)
	if err != nil {
		return nil, err
	}
	out := make([]float64, nvmax)
	for s := 1; s <= nvmax; s++ {
		m, err := sum.Model(s)
		if err != nil {
			return nil, err
		}
		x, err := test.Select(m.Predictors...)
		if err != nil {
			return nil, fmt.Errorf("size %d: %w: %v", s, regression.ErrColumnMismatch, err)
		}
		pred, err := m.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("size %d: %w", s, err)
		}
		if out[s-1], err = regression.MSE(pred, actual); err != nil {
			return nil, fmt.Errorf("size %d: %w", s, err)
		}
	}
	return out, nil
}

// OneSE returns every size whose mean error is at most the reference size's
// mean plus its standard error, in increasing order.
func (r *Result) OneSE(ref int) ([]int, error) {
	if ref < 1 || ref > len(r.Mean) {
		return nil, fmt.Errorf("crossval: reference size %d outside 1..%d", ref, len(r.Mean))
	}
	limit := r.Mean[ref-1] + r.StdErr[ref-1]
	var sizes []int
	for s, m := range r.Mean {
		if m <= limit {
			sizes = append(sizes, s+1)
		}
	}
	return sizes, nil
}

// Parsimonious returns the smallest size within one standard error of ref.
func (r *Result) Parsimonious(ref int) (int, error) {
	sizes, err := r.OneSE(ref)
	if err != nil {
		return 0, err
	}
	return sizes[0], nil
}
