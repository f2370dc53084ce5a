package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnSummary captures missingness and numeric statistics per column.
type ColumnSummary struct {
	Name    string  `yaml:"name"`
	NonNull int     `yaml:"non_null"`
	Missing int     `yaml:"missing"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Mean    float64 `yaml:"mean"`
	Std     float64 `yaml:"std"`
	// Outliers (robust Z via MAD)
	OutliersCount    int     `yaml:"outliers"`
	OutliersMaxAbsZ  float64 `yaml:"outliers_max_abs_z"`
	OutlierThreshold float64 `yaml:"outlier_threshold"`
}

// MissingPct returns the missing share in percent.
func (c ColumnSummary) MissingPct() float64 {
	total := c.NonNull + c.Missing
	if total == 0 {
		return 0
	}
	return float64(c.Missing) * 100 / float64(total)
}

// Profile summarizes every column of t. Outliers are counted when at least
// eight values are present and |z| exceeds threshold (3.5 when <= 0).
func Profile(t *Table, threshold float64) []ColumnSummary {
	if threshold <= 0 {
		threshold = 3.5
	}
	out := make([]ColumnSummary, 0, t.NumCols())
	for j, name := range t.names {
		s := ColumnSummary{Name: name}
		vals := make([]float64, 0, t.NumRows())
		for _, x := range t.cols[j] {
			if math.IsNaN(x) {
				s.Missing++
				continue
			}
			s.NonNull++
			vals = append(vals, x)
		}
		switch s.NonNull {
		case 0:
			s.Min, s.Max = 0, 0
		case 1:
			s.Min, s.Max, s.Mean = vals[0], vals[0], vals[0]
		default:
			s.Min, s.Max = floats.Min(vals), floats.Max(vals)
			s.Mean, s.Std = stat.MeanStdDev(vals, nil)
		}
		if len(vals) >= 8 {
			median, mad := medianMAD(vals)
			s.OutlierThreshold = threshold
			if mad > 0 {
				for _, v := range vals {
					az := math.Abs(0.6745 * (v - median) / mad)
					if az > threshold {
						s.OutliersCount++
					}
					if az > s.OutliersMaxAbsZ {
						s.OutliersMaxAbsZ = az
					}
				}
			}
		}
		out = append(out, s)
	}
	return out
}

// ProfileMarkdown renders column summaries in the report's section style.
func ProfileMarkdown(name string, rows int, cols []ColumnSummary) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(cols)))
	b.WriteString("[SCHEMA]\n")
	for _, c := range cols {
		b.WriteString(fmt.Sprintf("- %s: non-null %d, missing %.1f%%", c.Name, c.NonNull, c.MissingPct()))
		if c.NonNull > 0 {
			b.WriteString(fmt.Sprintf(" — min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
		}
		if c.OutlierThreshold > 0 {
			b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// medianMAD returns the median and the median absolute deviation of vals.
func medianMAD(vals []float64) (median, mad float64) {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	dev := make([]float64, len(sorted))
	for i, v := range sorted {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	return median, stat.Quantile(0.5, stat.Empirical, dev, nil)
}
