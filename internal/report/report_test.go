package report

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/airfit-cli/internal/dataset"
	"github.com/KaramelBytes/airfit-cli/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runPipeline(t *testing.T, until pipeline.Stage) *pipeline.Result {
	t.Helper()
	rng := rand.New(rand.NewSource(5))
	var b strings.Builder
	b.WriteString("SO2,x1,x2,x3,x4,station\n")
	for i := 0; i < 90; i++ {
		x1 := math.Round(rng.NormFloat64()*1000) / 1000
		x2 := math.Round(rng.NormFloat64()*1000) / 1000
		x3 := rng.NormFloat64()
		y := 1 + x1 - x2 + 0.4*x3 + 0.2*rng.NormFloat64()
		fmt.Fprintf(&b, "%.6f,%.6f,%.6f,%.6f,%.6f,S1\n", y, x1, x2, x3, x1-x2)
	}
	path := filepath.Join(t.TempDir(), "s1.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	cfg := pipeline.Config{
		Load:          dataset.LoadOptions{StationColumn: "station", Station: "S1"},
		Target:        "SO2",
		DropCollinear: []string{"x4"},
		NVMax:         3,
		Folds:         5,
		Seed:          1,
	}
	res, err := pipeline.New(cfg, nil).Run(context.Background(), path, until)
	require.NoError(t, err)
	return res
}

func TestMarkdown_Sections(t *testing.T) {
	res := runPipeline(t, pipeline.StageCV)
	md := Markdown(res)
	for _, want := range []string{
		"[DATASET]", "[CLEANING]", "[FULL FIT]", "[VIF]", "[REDUCED FIT]",
		"[SUBSET SELECTION]", "[CROSS-VALIDATION]", "[NOTES]",
		"Run: " + res.RunID,
		"Station: S1",
		"inf (perfect collinearity)",
		"x4: inf (perfect collinearity) [dropped]",
		"Parsimonious choice: size",
		"(Intercept)",
	} {
		assert.Contains(t, md, want)
	}
}

func TestMarkdown_OmitsStagesNotRun(t *testing.T) {
	res := runPipeline(t, pipeline.StageReduce)
	md := Markdown(res)
	assert.Contains(t, md, "[REDUCED FIT]")
	assert.NotContains(t, md, "[SUBSET SELECTION]")
	assert.NotContains(t, md, "[CROSS-VALIDATION]")
}

func TestYAML_KeepsInfiniteVIF(t *testing.T) {
	res := runPipeline(t, pipeline.StageCV)
	out, err := Render(res, "yaml")
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "run_id: "+res.RunID)
	assert.Contains(t, text, ".inf")
	assert.Contains(t, text, "mean_mse:")

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, "SO2", back["target"])

	_, err = Render(res, "json")
	assert.Error(t, err)
	md, err := Render(res, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "[DATASET]"))
}

func TestCVMatrix(t *testing.T) {
	res := runPipeline(t, pipeline.StageCV)
	m := CVMatrix(res.CV)
	assert.Contains(t, m, "[CV ERROR MATRIX]")
	assert.Contains(t, m, "fold 5")
	assert.Equal(t, 3+3, strings.Count(m, "\n"))
}

func TestPlots_WritesPNGs(t *testing.T) {
	res := runPipeline(t, pipeline.StageCV)
	dir := filepath.Join(t.TempDir(), "plots")
	paths, err := Plots(res, dir)
	require.NoError(t, err)
	require.Len(t, paths, 5)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0), p)
		assert.Equal(t, ".png", filepath.Ext(p))
	}

	partial := runPipeline(t, pipeline.StageReduce)
	paths, err = Plots(partial, filepath.Join(t.TempDir(), "none"))
	require.NoError(t, err)
	assert.Empty(t, paths)
}
