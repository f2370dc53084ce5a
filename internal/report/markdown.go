// Package report renders pipeline results as Markdown, YAML and PNG plots.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/airfit-cli/internal/crossval"
	"github.com/KaramelBytes/airfit-cli/internal/pipeline"
	"github.com/KaramelBytes/airfit-cli/internal/regression"
)

// Markdown renders res as a plain-text report with bracketed sections.
// Sections for stages that did not run are omitted.
func Markdown(res *pipeline.Result) string {
	var b strings.Builder
	b.WriteString("[DATASET]\n")
	fmt.Fprintf(&b, "Run: %s\n", res.RunID)
	fmt.Fprintf(&b, "File: %s\n", res.Source)
	if res.Station != "" {
		fmt.Fprintf(&b, "Station: %s\n", res.Station)
	}
	fmt.Fprintf(&b, "Target: %s\n", res.Target)
	if res.Load != nil {
		fmt.Fprintf(&b, "Rows read: %d, kept: %d\n", res.Load.RowsRead, res.Load.RowsKept)
		if len(res.Load.Skipped) > 0 {
			fmt.Fprintf(&b, "Skipped columns: %s\n", strings.Join(res.Load.Skipped, ", "))
		}
	}
	for _, c := range res.Profile {
		fmt.Fprintf(&b, "- %s: non-null %d, missing %.1f%%", c.Name, c.NonNull, c.MissingPct())
		if c.NonNull > 0 {
			fmt.Fprintf(&b, "; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std)
		}
		b.WriteString("\n")
	}

	if res.Clean != nil {
		b.WriteString("\n[CLEANING]\n")
		dropped := "none"
		if len(res.Clean.DroppedColumns) > 0 {
			dropped = strings.Join(res.Clean.DroppedColumns, ", ")
		}
		fmt.Fprintf(&b, "Dropped columns: %s\n", dropped)
		if len(res.Clean.AbsentColumns) > 0 {
			fmt.Fprintf(&b, "Not present: %s\n", strings.Join(res.Clean.AbsentColumns, ", "))
		}
		fmt.Fprintf(&b, "Rows: %d -> %d (%d incomplete rows dropped)\n",
			res.Clean.RowsBefore, res.Clean.RowsAfter, res.Clean.RowsDropped())
		fmt.Fprintf(&b, "Columns: %s\n", strings.Join(res.Columns, ", "))
	}

	if red := res.Reduction; red != nil {
		b.WriteString("\n[FULL FIT]\n")
		if red.Full != nil {
			writeFit(&b, red.Full)
		} else {
			fmt.Fprintf(&b, "Skipped: perfectly collinear predictors %s\n", strings.Join(red.FullCollinear, ", "))
		}
		b.WriteString("\n[VIF]\n")
		writeVIF(&b, red.FullVIF, red.Dropped)
		if len(red.Dropped) > 0 {
			fmt.Fprintf(&b, "Dropped for collinearity: %s\n", strings.Join(red.Dropped, ", "))
		}
		b.WriteString("\n[REDUCED FIT]\n")
		if red.Reduced != nil {
			writeFit(&b, red.Reduced)
		}
		b.WriteString("VIF after reduction:\n")
		writeVIF(&b, red.ReducedVIF, nil)
	}

	if s := res.Subsets; s != nil {
		b.WriteString("\n[SUBSET SELECTION]\n")
		fmt.Fprintf(&b, "Method: %s, n=%d, candidates=%d, subsets evaluated=%d\n", s.Method, s.N, len(s.Candidates), s.Evaluated)
		b.WriteString("| size | RSS | R2 | adj R2 | Cp | BIC | predictors |\n")
		b.WriteString("|---:|---:|---:|---:|---:|---:|---|\n")
		for _, z := range s.Sizes {
			fmt.Fprintf(&b, "| %d | %.4g | %.4f | %.4f | %.3f | %.3f | %s |\n",
				z.Size, z.RSS, z.RSquared, z.AdjRSquared, z.Cp, z.BIC, strings.Join(z.Predictors, ", "))
		}
		fmt.Fprintf(&b, "Best by BIC: %d; by adjusted R2: %d; by Cp: %d\n", s.BestBIC, s.BestAdjR2, s.BestCp)
	}

	if cv := res.CV; cv != nil {
		b.WriteString("\n[CROSS-VALIDATION]\n")
		fmt.Fprintf(&b, "Folds: %d, seed %d, n=%d\n", cv.K, cv.Seed, cv.N)
		b.WriteString("| size | mean MSE | std err |\n")
		b.WriteString("|---:|---:|---:|\n")
		for s := range cv.Mean {
			mark := ""
			if s+1 == cv.MinSize {
				mark = " *"
			}
			fmt.Fprintf(&b, "| %d%s | %.5g | %.5g |\n", s+1, mark, cv.Mean[s], cv.StdErr[s])
		}
		fmt.Fprintf(&b, "Minimum mean error: size %d\n", cv.MinSize)
		if len(res.OneSE) > 0 {
			fmt.Fprintf(&b, "Within one SE of size %d: %s\n", res.ReferenceSize, joinInts(res.OneSE))
			fmt.Fprintf(&b, "Parsimonious choice: size %d\n", res.Parsimonious)
		}
	}

	if len(res.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

func writeFit(b *strings.Builder, f *regression.Fit) {
	fmt.Fprintf(b, "%s ~ %s (n=%d, df=%d)\n", f.Target, strings.Join(f.Predictors, " + "), f.N, f.DF)
	b.WriteString("| term | estimate | std err | t | p |\n")
	b.WriteString("|---|---:|---:|---:|---:|\n")
	for _, c := range f.Coefficients {
		fmt.Fprintf(b, "| %s | %.5g | %.4g | %.3f | %s |\n", c.Name, c.Estimate, c.StdErr, c.TValue, pValue(c.PValue))
	}
	fmt.Fprintf(b, "Residual SE %.4g; R2 %.4f; adj R2 %.4f; F %.4g (p %s)\n",
		f.Sigma, f.RSquared, f.AdjRSquared, f.FStatistic, pValue(f.FPValue))
}

func writeVIF(b *strings.Builder, vifs []regression.VIF, dropped []string) {
	marked := make(map[string]bool, len(dropped))
	for _, d := range dropped {
		marked[d] = true
	}
	for _, v := range vifs {
		val := fmt.Sprintf("%.3f", v.Value)
		if v.Infinite() {
			val = "inf (perfect collinearity)"
		}
		fmt.Fprintf(b, "- %s: %s", v.Name, val)
		if marked[v.Name] {
			b.WriteString(" [dropped]")
		}
		b.WriteString("\n")
	}
}

func pValue(p float64) string {
	switch {
	case math.IsNaN(p):
		return "NA"
	case p < 2e-16:
		return "<2e-16"
	}
	return fmt.Sprintf("%.3g", p)
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}

// CVMatrix renders the per-fold held-out MSE matrix, one row per size.
func CVMatrix(cv *crossval.Result) string {
	var b strings.Builder
	b.WriteString("[CV ERROR MATRIX]\n| size |")
	for k := 1; k <= cv.K; k++ {
		fmt.Fprintf(&b, " fold %d |", k)
	}
	b.WriteString(" mean | std err |\n|---:|")
	b.WriteString(strings.Repeat("---:|", cv.K+2))
	b.WriteString("\n")
	for s, row := range cv.Errors {
		fmt.Fprintf(&b, "| %d |", s+1)
		for _, v := range row {
			fmt.Fprintf(&b, " %.5g |", v)
		}
		fmt.Fprintf(&b, " %.5g | %.5g |\n", cv.Mean[s], cv.StdErr[s])
	}
	return b.String()
}
