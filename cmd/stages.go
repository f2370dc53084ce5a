package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/airfit-cli/internal/dataset"
	"github.com/KaramelBytes/airfit-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	vifFlags     runFlags
	subsetFlags  runFlags
	cvFlags      runFlags
	profileFlags runFlags
	profOutlier  float64
)

var vifCmd = &cobra.Command{
	Use:   "vif <file>",
	Short: "Fit the full model, report VIFs, drop the collinear list and refit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := vifFlags.run(cmd, args[0], pipeline.StageReduce)
		if err != nil {
			return err
		}
		return vifFlags.emit(cmd, res)
	},
}

var subsetsCmd = &cobra.Command{
	Use:   "subsets <file>",
	Short: "Best-subset selection with RSS, R2, adjusted R2, Cp and BIC per size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := subsetFlags.run(cmd, args[0], pipeline.StageSubsets)
		if err != nil {
			return err
		}
		return subsetFlags.emit(cmd, res)
	},
}

var cvCmd = &cobra.Command{
	Use:   "cv <file>",
	Short: "k-fold cross-validation of the best model of each size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := cvFlags.run(cmd, args[0], pipeline.StageCV)
		if err != nil {
			return err
		}
		return cvFlags.emit(cmd, res)
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Per-column missingness and numeric summary, to choose the missingness drop list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := profileFlags.run(cmd, args[0], pipeline.StageLoad, func(pc *pipeline.Config) {
			pc.OutlierThreshold = profOutlier
		})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), dataset.ProfileMarkdown(filepath.Base(args[0]), res.Rows, res.Profile))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vifCmd, subsetsCmd, cvCmd, profileCmd)

	addDatasetFlags(vifCmd, &vifFlags)
	addModelFlags(vifCmd, &vifFlags)
	addOutputFlags(vifCmd, &vifFlags, false)

	addDatasetFlags(subsetsCmd, &subsetFlags)
	addModelFlags(subsetsCmd, &subsetFlags)
	addOutputFlags(subsetsCmd, &subsetFlags, true)

	addDatasetFlags(cvCmd, &cvFlags)
	addModelFlags(cvCmd, &cvFlags)
	addCVFlags(cvCmd, &cvFlags)
	addOutputFlags(cvCmd, &cvFlags, true)
	cvCmd.Flags().BoolVar(&cvFlags.matrix, "matrix", false, "append the per-fold error matrix to the Markdown report")

	addDatasetFlags(profileCmd, &profileFlags)
	profileCmd.Flags().Float64Var(&profOutlier, "outlier-threshold", pipeline.DefaultOutlierThreshold, "robust |z| threshold for outliers (MAD-based)")
}
