package regression

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_PredictValidatesColumns(t *testing.T) {
	m := &Model{Target: "y", Predictors: []string{"a", "b"}, Intercept: 1, Coef: []float64{2, -1}}
	tbl := table(t, []string{"a", "b"}, []float64{1, 2}, []float64{3, 0})

	pred, err := m.Predict(tbl)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5}, pred)

	swapped := table(t, []string{"b", "a"}, []float64{3, 0}, []float64{1, 2})
	_, err = m.Predict(swapped)
	assert.True(t, errors.Is(err, ErrColumnMismatch), "got %v", err)

	extra := table(t, []string{"a", "b", "c"}, []float64{1}, []float64{1}, []float64{1})
	_, err = m.Predict(extra)
	assert.True(t, errors.Is(err, ErrColumnMismatch))

	missing := table(t, []string{"a", "y"}, []float64{1}, []float64{1})
	_, err = m.PredictFrom(missing)
	assert.True(t, errors.Is(err, ErrColumnMismatch))
}

func TestFitModel_ReproducesRSS(t *testing.T) {
	tbl := synthetic(t, 120, 2)
	fit, err := OLS(tbl, "SO2", []string{"x1", "x2"})
	require.NoError(t, err)
	rss, err := fit.Model().RSS(tbl)
	require.NoError(t, err)
	assert.InDelta(t, fit.RSS, rss, 1e-8*fit.RSS)
}

func TestMSE(t *testing.T) {
	got, err := MSE([]float64{1, 2, 3}, []float64{1, 4, 0})
	require.NoError(t, err)
	assert.InDelta(t, 13.0/3, got, 1e-12)
	_, err = MSE([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
	_, err = MSE(nil, nil)
	assert.Error(t, err)
}
