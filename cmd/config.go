package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/airfit-cli/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set airfit configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "target: %s\n", c.Target)
		fmt.Fprintf(out, "station_column: %s\n", c.StationColumn)
		if c.Station != "" {
			fmt.Fprintf(out, "station: %s\n", c.Station)
		}
		fmt.Fprintf(out, "skip_columns: %s\n", strings.Join(c.SkipColumns, ","))
		if c.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %s\n", c.Delimiter)
		}
		if c.Decimal != "" {
			fmt.Fprintf(out, "decimal: %s\n", c.Decimal)
		}
		if c.Sheet != "" {
			fmt.Fprintf(out, "sheet: %s\n", c.Sheet)
		}
		fmt.Fprintf(out, "drop_missing: %s\n", strings.Join(c.DropMissing, ","))
		fmt.Fprintf(out, "drop_collinear: %s\n", strings.Join(c.DropCollinear, ","))
		if c.MaxMissingFraction > 0 {
			fmt.Fprintf(out, "max_missing_fraction: %.3f\n", c.MaxMissingFraction)
		}
		fmt.Fprintf(out, "nvmax: %d\n", c.NVMax)
		fmt.Fprintf(out, "method: %s\n", c.Method)
		fmt.Fprintf(out, "folds: %d\n", c.Folds)
		fmt.Fprintf(out, "seed: %d\n", c.Seed)
		fmt.Fprintf(out, "reference_size: %d\n", c.ReferenceSize)
		fmt.Fprintf(out, "workers: %d\n", c.Workers)
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := requireConfig()
		if err != nil {
			return err
		}
		next := *c
		if err := setKey(&next, key, val); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		cfg = &next
		fmt.Fprintf(cmd.OutOrStdout(), "%s Saved config\n", color.GreenString("✓"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setKey(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "target":
		c.Target = val
	case "station_column":
		c.StationColumn = val
	case "station":
		c.Station = val
	case "skip_columns":
		c.SkipColumns = splitList(val)
	case "delimiter":
		c.Delimiter = val
	case "decimal":
		c.Decimal = val
	case "sheet":
		c.Sheet = val
	case "drop_missing":
		c.DropMissing = splitList(val)
	case "drop_collinear":
		c.DropCollinear = splitList(val)
	case "max_missing_fraction":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for max_missing_fraction: %w", err)
		}
		c.MaxMissingFraction = f
	case "nvmax", "folds", "reference_size", "workers":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for %s: %w", key, err)
		}
		switch key {
		case "nvmax":
			c.NVMax = i
		case "folds":
			c.Folds = i
		case "reference_size":
			c.ReferenceSize = i
		case "workers":
			c.Workers = i
		}
	case "seed":
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for seed: %w", err)
		}
		c.Seed = i
	case "method":
		c.Method = strings.ToLower(val)
	case "log_level":
		c.LogLevel = strings.ToLower(val)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// splitList parses a comma-separated list; an empty value clears it.
func splitList(val string) []string {
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
