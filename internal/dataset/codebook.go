package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Codebook declares value labels and missing codes for the variables of
// a labeled statistical file. It is the label side of an SPSS-style
// dataset: the CSV carries raw codes, the codebook carries what they
// mean, and Options.UseLabels picks which one the Dataset materializes.
type Codebook struct {
	Variables map[string]Variable `yaml:"variables"`
}

// Variable is the codebook entry for one column.
type Variable struct {
	// Label is the human-readable variable description.
	Label string `yaml:"label,omitempty"`

	// Values maps raw codes to value labels, e.g. "2": "Grade 2".
	Values map[string]string `yaml:"values,omitempty"`

	// Missing lists raw codes to treat as missing values, e.g. "-99".
	Missing []string `yaml:"missing,omitempty"`
}

// HasLabels reports whether the variable declares value labels.
func (v Variable) HasLabels() bool { return len(v.Values) > 0 }

// LoadCodebook reads a YAML codebook from disk.
func LoadCodebook(path string) (*Codebook, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeFileFormat, Path: path, Message: "cannot read codebook", Err: err}
	}
	cb, err := ParseCodebook(raw)
	if err != nil {
		return nil, &Error{Code: ErrCodeFileFormat, Path: path, Message: err.Error(), Err: err}
	}
	return cb, nil
}

// ParseCodebook parses YAML codebook bytes.
func ParseCodebook(raw []byte) (*Codebook, error) {
	var cb Codebook
	if err := yaml.Unmarshal(raw, &cb); err != nil {
		return nil, fmt.Errorf("invalid codebook YAML: %w", err)
	}
	if len(cb.Variables) == 0 {
		return nil, fmt.Errorf("codebook declares no variables")
	}
	return &cb, nil
}

// lookup returns the codebook entry for a column, if any.
func (cb *Codebook) lookup(name string) (Variable, bool) {
	if cb == nil {
		return Variable{}, false
	}
	v, ok := cb.Variables[name]
	return v, ok
}
