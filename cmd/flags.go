package cmd

import (
	"fmt"
	"path/filepath"

	cfgpkg "github.com/KaramelBytes/airfit-cli/internal/config"
	"github.com/KaramelBytes/airfit-cli/internal/pipeline"
	"github.com/KaramelBytes/airfit-cli/internal/report"
	"github.com/KaramelBytes/airfit-cli/internal/utils"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// runFlags mirror the configuration keys; a flag overrides config only when set.
type runFlags struct {
	target        string
	stationColumn string
	station       string
	skip          []string
	delimiter     string
	decimal       string
	sheet         string
	dropMissing   []string
	dropCollinear []string
	maxMissing    float64
	nvmax         int
	method        string
	folds         int
	seed          int64
	referenceSize int
	workers       int

	format string
	output string
	plots  string
	// matrix appends the per-fold CV error table to a Markdown report.
	matrix bool
}

func addDatasetFlags(cmd *cobra.Command, f *runFlags) {
	fs := cmd.Flags()
	fs.StringVarP(&f.target, "target", "t", "", "response column (default from config: SO2)")
	fs.StringVar(&f.stationColumn, "station-column", "", "column holding the station identifier")
	fs.StringVarP(&f.station, "station", "s", "", "keep only rows for this station (empty keeps all rows)")
	fs.StringSliceVar(&f.skip, "skip", nil, "columns never coerced to numbers (comma-separated)")
	fs.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	fs.StringVar(&f.decimal, "decimal", "", "decimal separator: '.'|'comma' (auto-detect if omitted)")
	fs.StringVar(&f.sheet, "sheet", "", "XLSX: sheet name (default first sheet)")
	fs.StringSliceVar(&f.dropMissing, "drop-missing", nil, "columns to drop for missingness (comma-separated)")
	fs.Float64Var(&f.maxMissing, "max-missing", 0, "also drop columns whose missing fraction exceeds this (0 disables)")
}

func addModelFlags(cmd *cobra.Command, f *runFlags) {
	fs := cmd.Flags()
	fs.StringSliceVar(&f.dropCollinear, "drop-collinear", nil, "high-VIF columns to drop before subset selection (comma-separated)")
	fs.IntVar(&f.nvmax, "nvmax", 0, "largest subset size")
	fs.StringVar(&f.method, "method", "", "subset search: exhaustive|forward|backward")
}

func addCVFlags(cmd *cobra.Command, f *runFlags) {
	fs := cmd.Flags()
	fs.IntVarP(&f.folds, "folds", "k", 0, "number of cross-validation folds")
	fs.Int64Var(&f.seed, "seed", 0, "seed for the fold shuffle")
	fs.IntVar(&f.referenceSize, "reference-size", 0, "reference size for the one-standard-error rule (0 = minimum-error size)")
	fs.IntVar(&f.workers, "workers", 0, "folds evaluated concurrently (0 = GOMAXPROCS)")
}

func addOutputFlags(cmd *cobra.Command, f *runFlags, withPlots bool) {
	fs := cmd.Flags()
	fs.StringVarP(&f.format, "format", "f", "", "report format: markdown|yaml (default from --output extension, else markdown)")
	fs.StringVarP(&f.output, "output", "o", "", "optional path to write the report")
	if withPlots {
		fs.StringVar(&f.plots, "plots", "", "directory to write PNG plots")
	}
}

// settings overlays changed flags on a copy of the loaded config and validates it.
func (f *runFlags) settings(cmd *cobra.Command) (*cfgpkg.Global, error) {
	base, err := requireConfig()
	if err != nil {
		return nil, err
	}
	g := *base
	fs := cmd.Flags()
	changed := func(name string) bool {
		fl := fs.Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("target") {
		g.Target = f.target
	}
	if changed("station-column") {
		g.StationColumn = f.stationColumn
	}
	if changed("station") {
		g.Station = f.station
	}
	if changed("skip") {
		g.SkipColumns = f.skip
	}
	if changed("delimiter") {
		g.Delimiter = f.delimiter
	}
	if changed("decimal") {
		g.Decimal = f.decimal
	}
	if changed("sheet") {
		g.Sheet = f.sheet
	}
	if changed("drop-missing") {
		g.DropMissing = f.dropMissing
	}
	if changed("max-missing") {
		g.MaxMissingFraction = f.maxMissing
	}
	if changed("drop-collinear") {
		g.DropCollinear = f.dropCollinear
	}
	if changed("nvmax") {
		g.NVMax = f.nvmax
	}
	if changed("method") {
		g.Method = f.method
	}
	if changed("folds") {
		g.Folds = f.folds
	}
	if changed("seed") {
		g.Seed = f.seed
	}
	if changed("reference-size") {
		g.ReferenceSize = f.referenceSize
	}
	if changed("workers") {
		g.Workers = f.workers
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// run executes the pipeline up to until with the command's effective settings.
func (f *runFlags) run(cmd *cobra.Command, path string, until pipeline.Stage, tweaks ...func(*pipeline.Config)) (*pipeline.Result, error) {
	g, err := f.settings(cmd)
	if err != nil {
		return nil, err
	}
	pc := pipeline.FromGlobal(g)
	for _, tw := range tweaks {
		tw(&pc)
	}
	logger.Debug("settings", "target", g.Target, "station", g.Station, "nvmax", g.NVMax,
		"method", g.Method, "folds", g.Folds, "seed", g.Seed)
	return pipeline.New(pc, logger).Run(cmd.Context(), path, until)
}

// emit writes the rendered report to --output or stdout, then any plots.
func (f *runFlags) emit(cmd *cobra.Command, res *pipeline.Result) error {
	format := f.format
	if format == "" {
		format = utils.FormatFromPath(f.output)
	}
	data, err := report.Render(res, format)
	if err != nil {
		return err
	}
	if f.matrix && res.CV != nil && report.IsMarkdown(format) {
		data = append(data, '\n')
		data = append(data, report.CVMatrix(res.CV)...)
	}
	if f.output != "" {
		if err := utils.SafeWriteFile(f.output, data); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote report to %s\n", color.GreenString("✓"), f.output)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	}
	if f.plots != "" {
		paths, err := report.Plots(res, f.plots)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote plot %s\n", color.GreenString("✓"), filepath.ToSlash(p))
		}
	}
	return nil
}
