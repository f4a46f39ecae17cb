package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calder-stats/semfit/internal/report"
)

// NewDiagramCommand creates the diagram command.
func NewDiagramCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagram <model-file>",
		Short: "Render a model as a Graphviz path diagram",
		Long: `Print the model's path diagram in Graphviz DOT form: latent
variables as ellipses, indicators as boxes. Pipe into dot -Tsvg to
render.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagramCmd(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runDiagramCmd(opts *RootOptions, modelPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	m, err := loadModel(modelPath)
	if err != nil {
		return reportAnalysisError(formatter, err)
	}

	dot := report.Diagram(m)
	if done, err := formatter.JSON(map[string]string{"model": m.Name(), "dot": dot}); done {
		return err
	}
	fmt.Fprint(formatter.Writer, dot)
	return nil
}
