// Package pipeline runs the load, clean, reduce, subset and cross-validation
// stages in order and collects their outputs into one Result.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/KaramelBytes/airfit-cli/internal/config"
	"github.com/KaramelBytes/airfit-cli/internal/crossval"
	"github.com/KaramelBytes/airfit-cli/internal/dataset"
	"github.com/KaramelBytes/airfit-cli/internal/regression"
	"github.com/KaramelBytes/airfit-cli/internal/subset"
	"github.com/google/uuid"
)

// Stage identifies how far a run goes.
type Stage int

const (
	StageLoad Stage = iota
	StageClean
	StageReduce
	StageSubsets
	StageCV
)

func (s Stage) String() string {
	switch s {
	case StageLoad:
		return "load"
	case StageClean:
		return "clean"
	case StageReduce:
		return "reduce"
	case StageSubsets:
		return "subsets"
	case StageCV:
		return "cv"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// DefaultOutlierThreshold is the robust |z| used by the profile stage.
const DefaultOutlierThreshold = 3.5

// Config carries every stage's parameters.
type Config struct {
	Load          dataset.LoadOptions
	Clean         dataset.CleanOptions
	Target        string
	DropCollinear []string
	NVMax         int
	Method        subset.Method
	Folds         int
	Seed          int64
	// ReferenceSize anchors the one-standard-error rule; 0 uses the
	// minimum-error size.
	ReferenceSize    int
	Workers          int
	OutlierThreshold float64
}

// FromGlobal maps the CLI configuration onto a pipeline Config.
func FromGlobal(g *config.Global) Config {
	return Config{
		Load: dataset.LoadOptions{
			StationColumn:    g.StationColumn,
			Station:          g.Station,
			Skip:             g.SkipColumns,
			Delimiter:        g.DelimiterRune(),
			DecimalSeparator: g.DecimalRune(),
			Sheet:            g.Sheet,
		},
		Clean: dataset.CleanOptions{
			DropColumns:        g.DropMissing,
			MaxMissingFraction: g.MaxMissingFraction,
		},
		Target:           g.Target,
		DropCollinear:    g.DropCollinear,
		NVMax:            g.NVMax,
		Method:           subset.Method(g.Method),
		Folds:            g.Folds,
		Seed:             g.Seed,
		ReferenceSize:    g.ReferenceSize,
		Workers:          g.Workers,
		OutlierThreshold: DefaultOutlierThreshold,
	}
}

// Result is everything a run produced. Fields for stages that did not run are nil.
type Result struct {
	RunID     string        `yaml:"run_id"`
	Source    string        `yaml:"source"`
	Target    string        `yaml:"target"`
	Station   string        `yaml:"station,omitempty"`
	StartedAt time.Time     `yaml:"started_at"`
	Duration  time.Duration `yaml:"duration"`

	Load    *dataset.LoadStats      `yaml:"load"`
	Profile []dataset.ColumnSummary `yaml:"profile,omitempty"`
	Clean   *dataset.CleanReport    `yaml:"clean,omitempty"`
	// Rows and Columns describe the cleaned table.
	Rows    int      `yaml:"rows"`
	Columns []string `yaml:"columns"`

	Reduction *regression.Reduction `yaml:"reduction,omitempty"`
	Subsets   *subset.Summary       `yaml:"subsets,omitempty"`
	CV        *crossval.Result      `yaml:"cross_validation,omitempty"`

	ReferenceSize int   `yaml:"reference_size,omitempty"`
	OneSE         []int `yaml:"one_se_sizes,omitempty"`
	Parsimonious  int   `yaml:"parsimonious_size,omitempty"`

	Warnings []string `yaml:"warnings,omitempty"`
}

// Runner executes the pipeline with one configuration.
type Runner struct {
	cfg    Config
	logger *slog.Logger
}

// New returns a Runner; a nil logger discards output.
func New(cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.OutlierThreshold <= 0 {
		cfg.OutlierThreshold = DefaultOutlierThreshold
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Run loads path and executes every stage up to and including until.
func (r *Runner) Run(ctx context.Context, path string, until Stage) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		Source:    path,
		Target:    r.cfg.Target,
		Station:   r.cfg.Load.Station,
		StartedAt: time.Now(),
	}
	log := r.logger.With("run_id", res.RunID)
	defer func() { res.Duration = time.Since(res.StartedAt) }()

	log.Info("loading", "path", path, "station", r.cfg.Load.Station)
	t, stats, err := dataset.Load(path, r.cfg.Load)
	if err != nil {
		return nil, err
	}
	res.Load = stats
	res.Profile = dataset.Profile(t, r.cfg.OutlierThreshold)
	for col, n := range stats.Unparseable {
		res.warn(log, fmt.Sprintf("column %s: %d unparseable cells treated as missing", col, n))
	}
	log.Debug("loaded", "rows_read", stats.RowsRead, "rows_kept", stats.RowsKept, "columns", t.NumCols())
	res.Rows, res.Columns = t.NumRows(), t.Names()
	if until == StageLoad {
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !t.Has(r.cfg.Target) {
		return nil, fmt.Errorf("%w: target %s", dataset.ErrUnknownColumn, r.cfg.Target)
	}
	for _, d := range r.cfg.Clean.DropColumns {
		if d == r.cfg.Target {
			return nil, fmt.Errorf("clean: cannot drop target %s", d)
		}
	}
	clean, rep, err := dataset.Clean(t, r.cfg.Clean)
	if err != nil {
		return nil, err
	}
	res.Clean = rep
	for _, a := range rep.AbsentColumns {
		res.warn(log, fmt.Sprintf("drop_missing: column %s not present", a))
	}
	log.Info("cleaned", "dropped_columns", len(rep.DroppedColumns), "rows_dropped", rep.RowsDropped(), "rows", clean.NumRows())
	res.Rows, res.Columns = clean.NumRows(), clean.Names()
	if until == StageClean {
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	red, err := regression.Reduce(clean, regression.ReduceOptions{Target: r.cfg.Target, DropColumns: r.cfg.DropCollinear})
	if err != nil {
		return nil, err
	}
	res.Reduction = red
	if len(red.FullCollinear) > 0 {
		res.warn(log, fmt.Sprintf("full predictor set is perfectly collinear (%v); full fit skipped", red.FullCollinear))
	}
	log.Info("reduced", "dropped", len(red.Dropped), "predictors", len(red.Reduced.Predictors), "r_squared", red.Reduced.RSquared)
	if until == StageReduce {
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	work := red.Table
	if r.cfg.NVMax > len(work.Predictors(r.cfg.Target)) {
		res.warn(log, fmt.Sprintf("nvmax %d capped at %d predictors", r.cfg.NVMax, len(work.Predictors(r.cfg.Target))))
	}
	sum, err := subset.Select(work, subset.Options{Target: r.cfg.Target, NVMax: r.cfg.NVMax, Method: r.cfg.Method})
	if err != nil {
		return nil, err
	}
	res.Subsets = sum
	log.Info("subsets selected", "method", sum.Method, "sizes", sum.NVMax(), "evaluated", sum.Evaluated,
		"best_bic", sum.BestBIC, "best_adj_r2", sum.BestAdjR2, "best_cp", sum.BestCp)
	if until == StageSubsets {
		return res, nil
	}

	start := time.Now()
	cv, err := crossval.Run(ctx, work, crossval.Options{
		Target:  r.cfg.Target,
		K:       r.cfg.Folds,
		NVMax:   r.cfg.NVMax,
		Seed:    r.cfg.Seed,
		Method:  r.cfg.Method,
		Workers: r.cfg.Workers,
	})
	if err != nil {
		return nil, err
	}
	res.CV = cv
	ref := r.cfg.ReferenceSize
	if ref == 0 {
		ref = cv.MinSize
	}
	if ref > cv.NVMax {
		res.warn(log, fmt.Sprintf("reference size %d above nvmax %d; using %d", ref, cv.NVMax, cv.NVMax))
		ref = cv.NVMax
	}
	res.ReferenceSize = ref
	if res.OneSE, err = cv.OneSE(ref); err != nil {
		return nil, err
	}
	res.Parsimonious = res.OneSE[0]
	log.Info("cross-validated", "folds", cv.K, "min_size", cv.MinSize, "reference", ref,
		"parsimonious", res.Parsimonious, "elapsed", time.Since(start))
	return res, nil
}

func (res *Result) warn(log *slog.Logger, msg string) {
	res.Warnings = append(res.Warnings, msg)
	log.Warn(msg)
}
