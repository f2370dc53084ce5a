package regression

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/KaramelBytes/airfit-cli/internal/dataset"
)

// ErrColumnMismatch is returned when a prediction table does not hold
// exactly the predictors a model was fitted on.
var ErrColumnMismatch = errors.New("column mismatch")

// Model is a fitted linear model: ordered predictor names and their
// coefficients plus an intercept.
type Model struct {
	Target     string    `yaml:"target"`
	Predictors []string  `yaml:"predictors"`
	Intercept  float64   `yaml:"intercept"`
	Coef       []float64 `yaml:"coefficients"`
}

// Predict computes [1, X]·β for every row of x. The columns of x must equal
// the model's predictors, in the same order.
func (m *Model) Predict(x *dataset.Table) ([]float64, error) {
	if len(m.Coef) != len(m.Predictors) {
		return nil, fmt.Errorf("predict: model has %d coefficients for %d predictors", len(m.Coef), len(m.Predictors))
	}
	got := x.Names()
	if !slices.Equal(got, m.Predictors) {
		return nil, fmt.Errorf("predict: %w: model expects [%s], table has [%s]",
			ErrColumnMismatch, strings.Join(m.Predictors, ", "), strings.Join(got, ", "))
	}
	n := x.NumRows()
	out := make([]float64, n)
	for i := range out {
		out[i] = m.Intercept
	}
	for j, name := range m.Predictors {
		col, err := x.Col(name)
		if err != nil {
			return nil, fmt.Errorf("predict: %w: %v", ErrColumnMismatch, err)
		}
		b := m.Coef[j]
		for i, v := range col {
			out[i] += b * v
		}
	}
	return out, nil
}

// PredictFrom selects the model's predictors from t and predicts.
func (m *Model) PredictFrom(t *dataset.Table) ([]float64, error) {
	x, err := t.Select(m.Predictors...)
	if err != nil {
		return nil, fmt.Errorf("predict: %w: %v", ErrColumnMismatch, err)
	}
	return m.Predict(x)
}

// RSS returns the residual sum of squares of the model over t.
func (m *Model) RSS(t *dataset.Table) (float64, error) {
	pred, err := m.PredictFrom(t)
	if err != nil {
		return 0, err
	}
	y, err := t.Col(m.Target)
	if err != nil {
		return 0, err
	}
	var rss float64
	for i, p := range pred {
		e := y[i] - p
		rss += e * e
	}
	return rss, nil
}

// MSE returns the mean squared difference between predicted and actual.
func MSE(pred, actual []float64) (float64, error) {
	if len(pred) != len(actual) {
		return 0, fmt.Errorf("mse: %d predictions for %d observations", len(pred), len(actual))
	}
	if len(pred) == 0 {
		return 0, fmt.Errorf("mse: no observations")
	}
	var s float64
	for i := range pred {
		e := actual[i] - pred[i]
		s += e * e
	}
	return s / float64(len(pred)), nil
}
