package regression

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/airfit-cli/internal/dataset"
)

// ReduceOptions configures the collinearity reducer.
type ReduceOptions struct {
	Target string
	// DropColumns is the hand-chosen list of high-VIF predictors.
	// No threshold is applied automatically.
	DropColumns []string
}

// Reduction holds the diagnostics before and after dropping collinear predictors.
type Reduction struct {
	// Full is nil when the full predictor set is perfectly collinear.
	Full    *Fit  `yaml:"full_fit,omitempty"`
	FullVIF []VIF `yaml:"full_vif"`
	// FullCollinear lists predictors with undefined VIF in the full set.
	FullCollinear []string `yaml:"full_collinear,omitempty"`
	Dropped       []string `yaml:"dropped"`
	Reduced       *Fit     `yaml:"reduced_fit"`
	ReducedVIF    []VIF    `yaml:"reduced_vif"`

	Table *dataset.Table `yaml:"-"`
}

// Reduce fits the target on every other column, computes VIFs, removes the
// configured predictors and refits. Perfect collinearity in the full set is
// reported in the Reduction; perfect collinearity that survives the drop list
// is returned as an error wrapping ErrPerfectCollinearity.
func Reduce(t *dataset.Table, opt ReduceOptions) (*Reduction, error) {
	if !t.Has(opt.Target) {
		return nil, fmt.Errorf("reduce: %w: target %s", dataset.ErrUnknownColumn, opt.Target)
	}
	for _, d := range opt.DropColumns {
		if d == opt.Target {
			return nil, fmt.Errorf("reduce: cannot drop target %s", d)
		}
	}
	red := &Reduction{}
	full := t.Predictors(opt.Target)
	if len(full) == 0 {
		return nil, fmt.Errorf("reduce: no predictors besides %s", opt.Target)
	}

	vifs, err := VIFs(t, full)
	var cerr *CollinearityError
	switch {
	case errors.As(err, &cerr):
		red.FullCollinear = cerr.Predictors
	case err != nil:
		return nil, fmt.Errorf("reduce: %w", err)
	}
	red.FullVIF = vifs
	if red.FullCollinear == nil {
		if red.Full, err = OLS(t, opt.Target, full); err != nil {
			return nil, fmt.Errorf("reduce: full fit: %w", err)
		}
	}

	reduced, err := t.Drop(opt.DropColumns...)
	if err != nil {
		return nil, fmt.Errorf("reduce: %w", err)
	}
	red.Dropped = append([]string(nil), opt.DropColumns...)
	red.Table = reduced
	preds := reduced.Predictors(opt.Target)
	if len(preds) == 0 {
		return nil, fmt.Errorf("reduce: drop list removes every predictor")
	}
	red.ReducedVIF, err = VIFs(reduced, preds)
	if err != nil {
		return red, fmt.Errorf("reduce: after dropping %d columns: %w", len(opt.DropColumns), err)
	}
	if red.Reduced, err = OLS(reduced, opt.Target, preds); err != nil {
		return red, fmt.Errorf("reduce: reduced fit: %w", err)
	}
	return red, nil
}
