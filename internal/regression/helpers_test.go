package regression

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/KaramelBytes/airfit-cli/internal/dataset"
	"github.com/stretchr/testify/require"
)

func table(t *testing.T, names []string, cols ...[]float64) *dataset.Table {
	t.Helper()
	tbl, err := dataset.NewTable(names, cols)
	require.NoError(t, err)
	return tbl
}

// synthetic returns SO2 = 2 + 1.5 x1 - 2 x2 + 0.5 x3 + noise with x4, x5 unrelated.
func synthetic(t *testing.T, n int, seed int64) *dataset.Table {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	names := []string{"SO2"}
	cols := make([][]float64, 6)
	for j := range cols {
		cols[j] = make([]float64, n)
	}
	for j := 1; j <= 5; j++ {
		names = append(names, fmt.Sprintf("x%d", j))
	}
	for i := 0; i < n; i++ {
		for j := 1; j <= 5; j++ {
			cols[j][i] = rng.NormFloat64()
		}
		cols[0][i] = 2 + 1.5*cols[1][i] - 2*cols[2][i] + 0.5*cols[3][i] + 0.3*rng.NormFloat64()
	}
	return table(t, names, cols...)
}
