package regression

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/airfit-cli/internal/dataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// collinearityTol bounds 1 - R²_j; below it predictor j is treated as an
// exact linear combination of the others.
const collinearityTol = 1e-10

// ErrPerfectCollinearity marks predictors whose VIF is undefined.
var ErrPerfectCollinearity = errors.New("perfect collinearity")

// CollinearityError names the predictors that are exact linear combinations
// of the other predictors (or constant).
type CollinearityError struct {
	Predictors []string
}

func (e *CollinearityError) Error() string {
	return fmt.Sprintf("%s: %s explained exactly by the other predictors",
		ErrPerfectCollinearity, strings.Join(e.Predictors, ", "))
}

// Is lets errors.Is match ErrPerfectCollinearity.
func (e *CollinearityError) Is(target error) bool { return target == ErrPerfectCollinearity }

// VIF is the variance inflation factor of one predictor.
type VIF struct {
	Name     string  `yaml:"name"`
	RSquared float64 `yaml:"r_squared"` // R² of the predictor on the others
	Value    float64 `yaml:"vif"`       // 1/(1-R²); +Inf when undefined
}

// Infinite reports whether the predictor is perfectly explained by the others.
func (v VIF) Infinite() bool { return math.IsInf(v.Value, 1) }

// VIFs computes 1/(1-R²_j) for every predictor, where R²_j comes from
// regressing predictor j on the remaining predictors with an intercept.
// Perfectly explained predictors get +Inf and the returned error is a
// *CollinearityError listing them; the slice is returned in either case.
func VIFs(t *dataset.Table, predictors []string) ([]VIF, error) {
	centered := make([][]float64, len(predictors))
	for j, p := range predictors {
		c, err := t.Col(p)
		if err != nil {
			return nil, fmt.Errorf("vif: %w", err)
		}
		centered[j] = center(c)
	}
	out := make([]VIF, len(predictors))
	var bad []string
	for j, name := range predictors {
		others := make([][]float64, 0, len(predictors)-1)
		for k := range predictors {
			if k != j {
				others = append(others, centered[k])
			}
		}
		tss := floats.Dot(centered[j], centered[j])
		v := VIF{Name: name, RSquared: 1, Value: math.Inf(1)}
		if tss > 0 {
			rss := residualSS(centered[j], orthonormalBasis(others))
			v.RSquared = 1 - rss/tss
			if rss/tss > collinearityTol {
				v.Value = tss / rss
			}
		}
		if v.Infinite() {
			v.RSquared = 1
			bad = append(bad, name)
		}
		out[j] = v
	}
	if len(bad) > 0 {
		return out, &CollinearityError{Predictors: bad}
	}
	return out, nil
}

func center(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	floats.AddConst(-stat.Mean(x, nil), out)
	return out
}

// orthonormalBasis runs modified Gram-Schmidt over cols, skipping columns
// that are (numerically) in the span of the ones already accepted.
func orthonormalBasis(cols [][]float64) [][]float64 {
	var basis [][]float64
	for _, c := range cols {
		norm := floats.Norm(c, 2)
		if norm == 0 {
			continue
		}
		v := make([]float64, len(c))
		copy(v, c)
		// two passes keep the basis orthogonal for nearly dependent columns
		for pass := 0; pass < 2; pass++ {
			for _, q := range basis {
				floats.AddScaled(v, -floats.Dot(q, v), q)
			}
		}
		vn := floats.Norm(v, 2)
		if vn <= math.Sqrt(collinearityTol)*norm {
			continue
		}
		floats.Scale(1/vn, v)
		basis = append(basis, v)
	}
	return basis
}

// residualSS returns ‖x − P x‖² where P projects onto span(basis).
func residualSS(x []float64, basis [][]float64) float64 {
	r := make([]float64, len(x))
	copy(r, x)
	for pass := 0; pass < 2; pass++ {
		for _, q := range basis {
			floats.AddScaled(r, -floats.Dot(q, r), q)
		}
	}
	return floats.Dot(r, r)
}
