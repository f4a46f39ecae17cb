package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calder-stats/semfit/internal/engine"
	"github.com/calder-stats/semfit/internal/report"
	"github.com/calder-stats/semfit/internal/store"
)

// NewFitCommand creates the fit command.
func NewFitCommand(rootOpts *RootOptions) *cobra.Command {
	data := &dataFlags{}
	var group, constrain, dbPath string

	cmd := &cobra.Command{
		Use:   "fit <model-file>",
		Short: "Fit a model to a dataset",
		Long: `Fit a measurement model and print fit indices and parameter
estimates. With --group the model is fit per group; --constrain holds
loadings or intercepts equal across groups.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFitCmd(rootOpts, data, args[0], group, constrain, dbPath, cmd)
		},
	}
	data.register(cmd)
	cmd.Flags().StringVar(&group, "group", "", "grouping variable for multigroup fits")
	cmd.Flags().StringVar(&constrain, "constrain", "", "cross-group equality constraints (loadings,intercepts)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to persist the fit")
	return cmd
}

func runFitCmd(opts *RootOptions, data *dataFlags, modelPath, group, constrain, dbPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	fm, err := fitOne(formatter, data, modelPath, group, constrain)
	if err != nil {
		return err
	}

	if dbPath != "" {
		if err := persistFit(cmd.Context(), dbPath, fm); err != nil {
			return reportAnalysisError(formatter, WrapExitError(ExitCommandError, "cannot persist fit", err))
		}
		formatter.VerboseLog("fit stored in %s", dbPath)
	}

	if done, err := formatter.JSON(fm); done {
		return err
	}
	fmt.Fprint(formatter.Writer, report.FitTable(fm))
	fmt.Fprintln(formatter.Writer)
	fmt.Fprint(formatter.Writer, report.ParameterTable(fm))
	return nil
}

// fitOne runs the shared load-validate-fit sequence of the fitting
// commands.
func fitOne(formatter *OutputFormatter, data *dataFlags, modelPath, group, constrain string) (*engine.FittedModel, error) {
	m, err := loadModel(modelPath)
	if err != nil {
		return nil, reportAnalysisError(formatter, err)
	}
	ds, err := data.load()
	if err != nil {
		return nil, reportAnalysisError(formatter, err)
	}
	constraints, err := parseConstraints(constrain)
	if err != nil {
		return nil, reportAnalysisError(formatter, err)
	}

	fm, err := engine.Fit(m, ds, engine.FitOptions{Group: group, Constraints: constraints})
	if err != nil {
		return nil, reportAnalysisError(formatter, err)
	}
	formatter.VerboseLog("fitted %s: chisq=%.3f df=%d", m.Name(), fm.Indices.ChiSquare, fm.Indices.DF)
	return fm, nil
}

func persistFit(ctx context.Context, dbPath string, fm *engine.FittedModel) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.BeginRun(ctx, fm.DataSig)
	if err != nil {
		return err
	}
	_, _, err = s.WriteFit(ctx, run.ID, fm)
	return err
}
