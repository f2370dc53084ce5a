package dataset

import (
	"fmt"
	"math"
)

// CleanOptions configures missing-value handling.
type CleanOptions struct {
	// DropColumns are removed before any row filtering.
	DropColumns []string
	// MaxMissingFraction additionally drops columns whose share of missing
	// cells exceeds it. Zero disables the rule.
	MaxMissingFraction float64
}

// CleanReport records what Clean removed.
type CleanReport struct {
	DroppedColumns []string `yaml:"dropped_columns"`
	// AbsentColumns lists drop-list names the table did not hold.
	AbsentColumns []string `yaml:"absent_columns,omitempty"`
	RowsBefore    int      `yaml:"rows_before"`
	RowsAfter     int      `yaml:"rows_after"`
}

// RowsDropped returns how many incomplete rows were removed.
func (r *CleanReport) RowsDropped() int { return r.RowsBefore - r.RowsAfter }

// Clean drops the configured columns and then every row holding a missing
// value. The result is fully numeric and complete. Names in DropColumns that
// are already absent are recorded rather than rejected, so Clean applied to
// its own output returns an identical table.
func Clean(t *Table, opt CleanOptions) (*Table, *CleanReport, error) {
	rep := &CleanReport{RowsBefore: t.NumRows()}
	if opt.MaxMissingFraction < 0 || opt.MaxMissingFraction > 1 {
		return nil, nil, fmt.Errorf("clean: max missing fraction %.3f outside [0,1]", opt.MaxMissingFraction)
	}
	seen := map[string]bool{}
	var drop []string
	for _, n := range opt.DropColumns {
		if seen[n] {
			continue
		}
		seen[n] = true
		if !t.Has(n) {
			rep.AbsentColumns = append(rep.AbsentColumns, n)
			continue
		}
		drop = append(drop, n)
	}
	if opt.MaxMissingFraction > 0 && t.NumRows() > 0 {
		for _, n := range t.names {
			if seen[n] {
				continue
			}
			frac := float64(t.MissingCount(n)) / float64(t.NumRows())
			if frac > opt.MaxMissingFraction {
				seen[n] = true
				drop = append(drop, n)
			}
		}
	}
	kept, err := t.Drop(drop...)
	if err != nil {
		return nil, nil, fmt.Errorf("clean: %w", err)
	}
	rep.DroppedColumns = drop

	var rows []int
	for i := 0; i < kept.NumRows(); i++ {
		complete := true
		for _, c := range kept.cols {
			if math.IsNaN(c[i]) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, i)
		}
	}
	out := kept.Rows(rows)
	rep.RowsAfter = out.NumRows()
	if rep.RowsAfter == 0 {
		return nil, rep, fmt.Errorf("clean: %w: every row has a missing value", ErrNoRows)
	}
	return out, rep, nil
}
