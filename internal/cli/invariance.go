package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calder-stats/semfit/internal/engine"
	"github.com/calder-stats/semfit/internal/report"
)

// NewInvarianceCommand creates the invariance command.
func NewInvarianceCommand(rootOpts *RootOptions) *cobra.Command {
	data := &dataFlags{}
	var group string

	cmd := &cobra.Command{
		Use:   "invariance <model-file>",
		Short: "Measurement-invariance ladder over a grouping variable",
		Long: `Fit the configural, metric and scalar invariance models in order
and test each transition with a likelihood-ratio test.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvarianceCmd(rootOpts, data, args[0], group, cmd)
		},
	}
	data.register(cmd)
	cmd.Flags().StringVar(&group, "group", "", "grouping variable (required)")
	cmd.MarkFlagRequired("group")
	return cmd
}

func runInvarianceCmd(opts *RootOptions, data *dataFlags, modelPath, group string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	m, err := loadModel(modelPath)
	if err != nil {
		return reportAnalysisError(formatter, err)
	}
	ds, err := data.load()
	if err != nil {
		return reportAnalysisError(formatter, err)
	}

	ladder, err := engine.Invariance(m, ds, group, engine.FitOptions{})
	if err != nil {
		return reportAnalysisError(formatter, err)
	}

	if done, err := formatter.JSON(ladder); done {
		return err
	}
	fmt.Fprint(formatter.Writer, report.InvarianceTable(ladder))
	return nil
}
