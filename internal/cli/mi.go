package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calder-stats/semfit/internal/engine"
	"github.com/calder-stats/semfit/internal/report"
)

// NewMICommand creates the mi (modification indices) command.
func NewMICommand(rootOpts *RootOptions) *cobra.Command {
	data := &dataFlags{}
	var group string
	var limit int

	cmd := &cobra.Command{
		Use:   "mi <model-file>",
		Short: "Modification indices for a fitted model",
		Long: `Fit a model and list candidate parameter additions ranked by
expected chi-square improvement, largest first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMICmd(rootOpts, data, args[0], group, limit, cmd)
		},
	}
	data.register(cmd)
	cmd.Flags().StringVar(&group, "group", "", "grouping variable for multigroup fits")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum indices to report (0 for all)")
	return cmd
}

func runMICmd(opts *RootOptions, data *dataFlags, modelPath, group string, limit int, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	fm, err := fitOne(formatter, data, modelPath, group, "")
	if err != nil {
		return err
	}

	scores := engine.ModificationIndices(fm, true, limit)
	if done, err := formatter.JSON(scores); done {
		return err
	}
	fmt.Fprint(formatter.Writer, report.ModIndicesTable(fm, limit))
	return nil
}
