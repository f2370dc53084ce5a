// Package subset implements best-subset linear regression: for every subset
// size it finds the predictors minimising the residual sum of squares and
// reports fit-quality statistics so a caller can pick a parsimonious model.
package subset

import (
	"errors"
	"fmt"
	"math"

	"github.com/KaramelBytes/airfit-cli/internal/dataset"
	"github.com/KaramelBytes/airfit-cli/internal/regression"
	"gonum.org/v1/gonum/stat/combin"
)

// Method selects the search strategy.
type Method string

const (
	// Exhaustive evaluates every subset of every size.
	Exhaustive Method = "exhaustive"
	// Forward adds the predictor that most reduces RSS at each size.
	Forward Method = "forward"
	// Backward starts from all predictors and removes the least useful one.
	Backward Method = "backward"
)

// MaxExhaustive caps the number of subsets an exhaustive search may evaluate.
const MaxExhaustive = 5_000_000

var (
	// ErrNoSubset is returned when every subset of some size is singular.
	ErrNoSubset = errors.New("no non-singular subset")
	// ErrSearchTooLarge is returned when exhaustive search exceeds MaxExhaustive.
	ErrSearchTooLarge = errors.New("exhaustive search too large")
)

// ParseMethod validates a method name; empty means Exhaustive.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", Exhaustive:
		return Exhaustive, nil
	case Forward, Backward:
		return Method(s), nil
	}
	return "", fmt.Errorf("unknown subset method %q (use exhaustive, forward or backward)", s)
}

// Options configures Select.
type Options struct {
	Target string
	// NVMax is the largest subset size; capped at the candidate count.
	NVMax  int
	Method Method
	// Candidates restricts the predictors searched; default is every non-target column.
	Candidates []string
}

// Size is the best model of one subset size.
type Size struct {
	Size        int       `yaml:"size"`
	Predictors  []string  `yaml:"predictors"`
	Intercept   float64   `yaml:"intercept"`
	Coef        []float64 `yaml:"coefficients"`
	RSS         float64   `yaml:"rss"`
	RSquared    float64   `yaml:"r_squared"`
	AdjRSquared float64   `yaml:"adj_r_squared"`
	Cp          float64   `yaml:"cp"`
	BIC         float64   `yaml:"bic"`
}

// Summary is the per-size outcome of a best-subset search.
type Summary struct {
	Target     string   `yaml:"target"`
	Method     Method   `yaml:"method"`
	N          int      `yaml:"n"`
	Candidates []string `yaml:"candidates"`
	Sizes      []Size   `yaml:"sizes"`
	// Best sizes (1-based) by criterion.
	BestBIC   int `yaml:"best_bic"`
	BestAdjR2 int `yaml:"best_adj_r2"`
	BestCp    int `yaml:"best_cp"`
	Evaluated int `yaml:"subsets_evaluated"`
}

// NVMax returns the largest size in the summary.
func (s *Summary) NVMax() int { return len(s.Sizes) }

// Model returns the best model of the given size.
func (s *Summary) Model(size int) (*regression.Model, error) {
	if size < 1 || size > len(s.Sizes) {
		return nil, fmt.Errorf("subset: size %d outside 1..%d", size, len(s.Sizes))
	}
	b := s.Sizes[size-1]
	return &regression.Model{
		Target:     s.Target,
		Predictors: append([]string(nil), b.Predictors...),
		Intercept:  b.Intercept,
		Coef:       append([]float64(nil), b.Coef...),
	}, nil
}

// Sequence extracts one statistic across sizes: "rss", "r2", "adjr2", "cp" or "bic".
func (s *Summary) Sequence(stat string) []float64 {
	out := make([]float64, len(s.Sizes))
	for i, b := range s.Sizes {
		switch stat {
		case "rss":
			out[i] = b.RSS
		case "r2":
			out[i] = b.RSquared
		case "adjr2":
			out[i] = b.AdjRSquared
		case "cp":
			out[i] = b.Cp
		case "bic":
			out[i] = b.BIC
		default:
			out[i] = math.NaN()
		}
	}
	return out
}

// Select runs the best-subset search over t.
func Select(t *dataset.Table, opt Options) (*Summary, error) {
	if opt.NVMax < 1 {
		return nil, fmt.Errorf("subset: nvmax must be >= 1, got %d", opt.NVMax)
	}
	method, err := ParseMethod(string(opt.Method))
	if err != nil {
		return nil, err
	}
	cands := opt.Candidates
	if len(cands) == 0 {
		cands = t.Predictors(opt.Target)
	}
	if len(cands) == 0 {
		return nil, fmt.Errorf("subset: no candidate predictors")
	}
	g, err := newGram(t, opt.Target, cands)
	if err != nil {
		return nil, err
	}
	nvmax := opt.NVMax
	if nvmax > len(cands) {
		nvmax = len(cands)
	}
	if nvmax > g.n-2 {
		return nil, fmt.Errorf("subset: %w: %d rows cannot support %d predictors", regression.ErrTooFewRows, g.n, nvmax)
	}

	var best [][]int
	var evaluated int
	switch method {
	case Exhaustive:
		best, evaluated, err = g.exhaustive(nvmax)
	case Forward:
		best, evaluated, err = g.forward(nvmax)
	case Backward:
		best, evaluated, err = g.backward(nvmax)
	}
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		Target:     opt.Target,
		Method:     method,
		N:          g.n,
		Candidates: append([]string(nil), cands...),
		Evaluated:  evaluated,
	}
	sigma2 := math.NaN()
	// Cp scales by the residual variance of the model on every candidate.
	if df := g.n - len(cands) - 1; df > 0 {
		if e, ok := g.evaluate(seq(len(cands))); ok {
			sigma2 = e.rss / float64(df)
		}
	}
	n := float64(g.n)
	for s, idx := range best {
		e, ok := g.evaluate(idx)
		if !ok {
			return nil, fmt.Errorf("subset: %w of size %d", ErrNoSubset, s+1)
		}
		k := float64(len(idx))
		b := Size{Size: len(idx), RSS: e.rss, Coef: e.beta}
		for _, j := range idx {
			b.Predictors = append(b.Predictors, cands[j])
		}
		b.Intercept = g.intercept(idx, e.beta)
		if g.syy > 0 {
			b.RSquared = 1 - e.rss/g.syy
		}
		b.AdjRSquared = 1 - (1-b.RSquared)*(n-1)/(n-k-1)
		b.BIC = n*math.Log(e.rss/n) + (k+1)*math.Log(n)
		b.Cp = e.rss/sigma2 - n + 2*(k+1)
		sum.Sizes = append(sum.Sizes, b)
	}
	sum.BestBIC = argBest(sum.Sequence("bic"), false)
	sum.BestAdjR2 = argBest(sum.Sequence("adjr2"), true)
	sum.BestCp = argBest(sum.Sequence("cp"), false)
	return sum, nil
}

// argBest returns the 1-based index of the smallest (or largest) finite
// value, or 0 when none is finite. Ties keep the smaller size.
func argBest(vals []float64, largest bool) int {
	best := 0
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if best == 0 || (largest && v > vals[best-1]) || (!largest && v < vals[best-1]) {
			best = i + 1
		}
	}
	return best
}

func (g *gram) exhaustive(nvmax int) ([][]int, int, error) {
	p := len(g.sx)
	total := 0
	for s := 1; s <= nvmax; s++ {
		total += combin.Binomial(p, s)
		if total > MaxExhaustive {
			return nil, 0, fmt.Errorf("subset: %w: more than %d subsets of %d predictors; use forward or backward", ErrSearchTooLarge, MaxExhaustive, p)
		}
	}
	best := make([][]int, 0, nvmax)
	evaluated := 0
	for s := 1; s <= nvmax; s++ {
		var bestIdx []int
		bestRSS := math.Inf(1)
		gen := combin.NewCombinationGenerator(p, s)
		for gen.Next() {
			idx := gen.Combination(nil)
			evaluated++
			e, ok := g.evaluate(idx)
			if ok && e.rss < bestRSS {
				bestRSS, bestIdx = e.rss, idx
			}
		}
		if bestIdx == nil {
			return nil, evaluated, fmt.Errorf("subset: %w of size %d", ErrNoSubset, s)
		}
		best = append(best, bestIdx)
	}
	return best, evaluated, nil
}

func (g *gram) forward(nvmax int) ([][]int, int, error) {
	p := len(g.sx)
	in := make([]bool, p)
	var cur []int
	best := make([][]int, 0, nvmax)
	evaluated := 0
	for s := 1; s <= nvmax; s++ {
		add := -1
		bestRSS := math.Inf(1)
		for j := 0; j < p; j++ {
			if in[j] {
				continue
			}
			evaluated++
			if e, ok := g.evaluate(sorted(append(append([]int(nil), cur...), j))); ok && e.rss < bestRSS {
				bestRSS, add = e.rss, j
			}
		}
		if add < 0 {
			return nil, evaluated, fmt.Errorf("subset: %w of size %d", ErrNoSubset, s)
		}
		in[add] = true
		cur = sorted(append(cur, add))
		best = append(best, append([]int(nil), cur...))
	}
	return best, evaluated, nil
}

func (g *gram) backward(nvmax int) ([][]int, int, error) {
	p := len(g.sx)
	if p > g.n-2 {
		return nil, 0, fmt.Errorf("subset: %w: backward search needs more rows than %d predictors", regression.ErrTooFewRows, p)
	}
	cur := seq(p)
	if _, ok := g.evaluate(cur); !ok {
		return nil, 1, fmt.Errorf("subset: %w: full model is singular; backward search cannot start", ErrNoSubset)
	}
	bySize := make([][]int, p+1)
	bySize[p] = append([]int(nil), cur...)
	evaluated := 1
	for s := p - 1; s >= 1; s-- {
		drop := -1
		bestRSS := math.Inf(1)
		for pos := range cur {
			trial := make([]int, 0, len(cur)-1)
			trial = append(trial, cur[:pos]...)
			trial = append(trial, cur[pos+1:]...)
			evaluated++
			if e, ok := g.evaluate(trial); ok && e.rss < bestRSS {
				bestRSS, drop = e.rss, pos
			}
		}
		if drop < 0 {
			return nil, evaluated, fmt.Errorf("subset: %w of size %d", ErrNoSubset, s)
		}
		cur = append(cur[:drop:drop], cur[drop+1:]...)
		bySize[s] = append([]int(nil), cur...)
	}
	return bySize[1 : nvmax+1], evaluated, nil
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
