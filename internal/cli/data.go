package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calder-stats/semfit/internal/dataset"
	"github.com/calder-stats/semfit/internal/engine"
	"github.com/calder-stats/semfit/internal/parser"
	"github.com/calder-stats/semfit/internal/spec"
)

// dataFlags are the dataset flags shared by every fitting command.
type dataFlags struct {
	Path      string
	Codebook  string
	Delimiter string
	UseLabels bool
	Filter    string
}

func (d *dataFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.Path, "data", "", "CSV data file (required)")
	cmd.Flags().StringVar(&d.Codebook, "codebook", "", "YAML codebook with value labels and missing codes")
	cmd.Flags().StringVar(&d.Delimiter, "delimiter", "", "field delimiter (default comma)")
	cmd.Flags().BoolVar(&d.UseLabels, "use-labels", false, "materialize value labels instead of codes")
	cmd.Flags().StringVar(&d.Filter, "filter", "", "row filter, e.g. 'Grade == 2 or Grade == 3'")
	cmd.MarkFlagRequired("data")
}

// load reads and transforms the dataset. Load problems are command
// errors (exit 2); a bad filter column is an analysis failure (exit 1).
func (d *dataFlags) load() (*dataset.Dataset, error) {
	opts := dataset.Options{UseLabels: d.UseLabels}
	if d.Delimiter != "" {
		opts.Delimiter = rune(d.Delimiter[0])
	}
	if d.Codebook != "" {
		cb, err := dataset.LoadCodebook(d.Codebook)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "cannot load codebook", err)
		}
		opts.Codebook = cb
	}

	ds, err := dataset.LoadCSV(d.Path, opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "cannot load data", err)
	}

	if d.Filter != "" {
		pred, err := dataset.ParsePredicate(d.Filter)
		if err != nil {
			return nil, WrapExitError(ExitFailure, "invalid filter", err)
		}
		if ds, err = ds.Filter(pred); err != nil {
			return nil, WrapExitError(ExitFailure, "filter failed", err)
		}
	}
	return ds, nil
}

// loadModel reads a model file and parses it. The model name is the
// file's base name without extension.
func loadModel(path string) (spec.Model, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return spec.Model{}, WrapExitError(ExitCommandError, "cannot read model file", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m, err := parser.Parse(name, string(text))
	if err != nil {
		return spec.Model{}, WrapExitError(ExitFailure, fmt.Sprintf("model %s does not parse", name), err)
	}
	return m, nil
}

// parseConstraints converts the --constrain flag value.
func parseConstraints(s string) ([]engine.Constraint, error) {
	if s == "" {
		return nil, nil
	}
	var out []engine.Constraint
	for _, part := range strings.Split(s, ",") {
		c := engine.Constraint(strings.TrimSpace(part))
		switch c {
		case engine.ConstrainLoadings, engine.ConstrainIntercepts:
			out = append(out, c)
		default:
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown constraint %q", c))
		}
	}
	return out, nil
}

// reportAnalysisError renders an engine or parser failure and converts
// it to an analysis-failure exit code. Other errors pass through.
func reportAnalysisError(f *OutputFormatter, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		f.Error(fmt.Sprintf("E%d", exitErr.Code), exitErr.Error(), nil)
		return exitErr
	}

	var fe *engine.FitError
	if errors.As(err, &fe) {
		f.Error(string(fe.Code), fe.Message, fe.Details)
		return WrapExitError(ExitFailure, string(fe.Code), err)
	}

	f.Error("ERROR", err.Error(), nil)
	return WrapExitError(ExitFailure, "analysis failed", err)
}
