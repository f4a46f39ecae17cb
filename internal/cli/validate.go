package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calder-stats/semfit/internal/parser"
)

// ValidationResult holds model validation results.
type ValidationResult struct {
	Valid  bool                     `json:"valid"`
	Model  string                   `json:"model"`
	Hash   string                   `json:"hash,omitempty"`
	Errors []parser.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	data := &dataFlags{}

	cmd := &cobra.Command{
		Use:   "validate <model-file>",
		Short: "Validate a model specification against a dataset",
		Long: `Parse a model file and check it against the dataset's columns.

Reports every problem at once: syntax errors, duplicate relations,
unknown variables and malformed measurement structure.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateCmd(rootOpts, data, args[0], cmd)
		},
	}
	data.register(cmd)
	return cmd
}

func runValidateCmd(opts *RootOptions, data *dataFlags, modelPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	m, err := loadModel(modelPath)
	if err != nil {
		return reportAnalysisError(formatter, err)
	}

	ds, err := data.load()
	if err != nil {
		return reportAnalysisError(formatter, err)
	}
	formatter.VerboseLog("loaded %d rows, %d columns", ds.Len(), len(ds.Columns()))

	verrs := parser.ValidateAgainst(m, ds.Columns())
	if len(verrs) > 0 {
		result := ValidationResult{Valid: false, Model: m.Name(), Errors: verrs}
		if done, err := formatter.JSON(result); done {
			if err != nil {
				return err
			}
			return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(verrs)))
		}

		fmt.Fprintln(formatter.Writer, "validation failed")
		for _, v := range verrs {
			fmt.Fprintf(formatter.Writer, "  [%s] %s: %s\n", v.Code, v.Field, v.Message)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(verrs)))
	}

	result := ValidationResult{Valid: true, Model: m.Name(), Hash: m.Hash()}
	if done, err := formatter.JSON(result); done {
		return err
	}
	fmt.Fprintf(formatter.Writer, "model %s is valid (%d loadings, hash %.12s)\n",
		m.Name(), len(m.Loadings()), m.Hash())
	return nil
}
