package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/calder-stats/semfit/internal/report"
)

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	data := &dataFlags{}
	var group, constrain, out, title string
	var miLimit int

	cmd := &cobra.Command{
		Use:   "report <model-file>",
		Short: "Fit a model and write a self-contained HTML report",
		Long: `Fit a model and render fit indices, parameter estimates, top
modification indices and the path diagram as a single HTML file with no
external assets.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportCmd(rootOpts, data, args[0], group, constrain, out, title, miLimit, cmd)
		},
	}
	data.register(cmd)
	cmd.Flags().StringVar(&group, "group", "", "grouping variable for multigroup fits")
	cmd.Flags().StringVar(&constrain, "constrain", "", "cross-group equality constraints (loadings,intercepts)")
	cmd.Flags().StringVar(&out, "out", "report.html", "output HTML file")
	cmd.Flags().StringVar(&title, "title", "", "report title (default: model name)")
	cmd.Flags().IntVar(&miLimit, "mi-limit", 10, "modification indices per model (0 for all)")
	return cmd
}

func runReportCmd(opts *RootOptions, data *dataFlags, modelPath, group, constrain, out, title string, miLimit int, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	fm, err := fitOne(formatter, data, modelPath, group, constrain)
	if err != nil {
		return err
	}
	if title == "" {
		title = fm.Model.Name()
	}

	doc := report.NewDocument(title, fm.DataSig)
	doc.AddFit(fm, miLimit)

	f, err := os.Create(out)
	if err != nil {
		return reportAnalysisError(formatter, WrapExitError(ExitCommandError, "cannot create report file", err))
	}
	if err := doc.RenderHTML(f); err != nil {
		f.Close()
		return reportAnalysisError(formatter, err)
	}
	if err := f.Close(); err != nil {
		return reportAnalysisError(formatter, WrapExitError(ExitCommandError, "cannot write report file", err))
	}

	if done, err := formatter.JSON(map[string]string{"model": fm.Model.Name(), "report": out}); done {
		return err
	}
	fmt.Fprintf(formatter.Writer, "report written to %s\n", out)
	return nil
}
