package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calder-stats/semfit/internal/engine"
	"github.com/calder-stats/semfit/internal/report"
)

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	data := &dataFlags{}
	var group string

	cmd := &cobra.Command{
		Use:   "compare <model-a> <model-b>",
		Short: "Likelihood-ratio test between two nested models",
		Long: `Fit both models to the same dataset and run a likelihood-ratio
test. One model must nest within the other; nesting is decided from the
model structure, so argument order does not matter.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompareCmd(rootOpts, data, args[0], args[1], group, cmd)
		},
	}
	data.register(cmd)
	cmd.Flags().StringVar(&group, "group", "", "grouping variable for multigroup fits")
	return cmd
}

func runCompareCmd(opts *RootOptions, data *dataFlags, pathA, pathB, group string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	ma, err := loadModel(pathA)
	if err != nil {
		return reportAnalysisError(formatter, err)
	}
	mb, err := loadModel(pathB)
	if err != nil {
		return reportAnalysisError(formatter, err)
	}
	ds, err := data.load()
	if err != nil {
		return reportAnalysisError(formatter, err)
	}

	fitOpts := engine.FitOptions{Group: group}
	fa, err := engine.Fit(ma, ds, fitOpts)
	if err != nil {
		return reportAnalysisError(formatter, err)
	}
	fb, err := engine.Fit(mb, ds, fitOpts)
	if err != nil {
		return reportAnalysisError(formatter, err)
	}

	cmpResult, err := engine.Compare(fa, fb)
	if err != nil {
		return reportAnalysisError(formatter, err)
	}

	if done, err := formatter.JSON(cmpResult); done {
		return err
	}
	fmt.Fprint(formatter.Writer, report.ComparisonTable(cmpResult))
	return nil
}
