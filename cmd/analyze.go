package cmd

import (
	"github.com/KaramelBytes/airfit-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var anaFlags runFlags

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Run the full pipeline: clean, reduce, best-subset selection and cross-validation",
	Long: `Run every stage on a CSV/TSV or XLSX file and print a report.

Examples:
  airfit analyze PRSA_Data.csv --station Aotizhongxin --drop-missing CO
  airfit analyze data.xlsx --drop-collinear PM10,TEMP --nvmax 8 -o report.md --plots plots/`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := anaFlags.run(cmd, args[0], pipeline.StageCV)
		if err != nil {
			return err
		}
		return anaFlags.emit(cmd, res)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addDatasetFlags(analyzeCmd, &anaFlags)
	addModelFlags(analyzeCmd, &anaFlags)
	addCVFlags(analyzeCmd, &anaFlags)
	addOutputFlags(analyzeCmd, &anaFlags, true)
}
