package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/calder-stats/semfit/internal/analysis"
	"github.com/calder-stats/semfit/internal/store"
)

// RunSummary is the JSON shape of a document run.
type RunSummary struct {
	Models      []string `json:"models"`
	Fits        int      `json:"fits"`
	Comparisons int      `json:"comparisons"`
	Ladders     int      `json:"ladders"`
	RunID       string   `json:"run_id,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "run <document.cue>",
		Short: "Execute a full analysis document",
		Long: `Run a CUE analysis document end to end: load data, apply
transforms, build models, fit, compare, test invariance and write the
report the document requests. Relative paths resolve against the
document's directory.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunCmd(rootOpts, args[0], dbPath, cmd)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to persist results")
	return cmd
}

func runRunCmd(opts *RootOptions, docPath, dbPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	doc, err := analysis.LoadDocument(docPath)
	if err != nil {
		return reportAnalysisError(formatter, WrapExitError(ExitFailure, "document does not parse", err))
	}

	runner := &analysis.Runner{Dir: filepath.Dir(docPath)}
	if dbPath != "" {
		s, err := store.Open(dbPath)
		if err != nil {
			return reportAnalysisError(formatter, WrapExitError(ExitCommandError, "cannot open database", err))
		}
		defer s.Close()
		runner.Store = s
	}

	res, err := runner.Run(cmd.Context(), doc)
	if err != nil {
		return reportAnalysisError(formatter, err)
	}

	summary := RunSummary{
		Models:      res.ModelOrder,
		Fits:        len(res.Fits),
		Comparisons: len(res.Comparisons),
		Ladders:     len(res.Ladders),
		RunID:       res.RunID,
	}
	if done, err := formatter.JSON(summary); done {
		return err
	}

	fmt.Fprintf(formatter.Writer, "dataset: %d rows\n", res.Dataset.Len())
	fmt.Fprintf(formatter.Writer, "models: %d  fits: %d  comparisons: %d  invariance: %d\n",
		len(summary.Models), summary.Fits, summary.Comparisons, summary.Ladders)
	for _, fr := range res.Fits {
		idx := fr.Fit.Indices
		fmt.Fprintf(formatter.Writer, "  %s: chisq=%.3f df=%d cfi=%.3f rmsea=%.3f\n",
			fr.Def.Model, idx.ChiSquare, idx.DF, idx.CFI, idx.RMSEA)
	}
	if summary.RunID != "" {
		fmt.Fprintf(formatter.Writer, "run: %s\n", summary.RunID)
	}
	return nil
}
