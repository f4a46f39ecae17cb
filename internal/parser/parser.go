// Package parser parses lavaan-style model text into spec.Model values
// and validates models against dataset columns.
//
// The grammar is line-oriented: one relation per line, sources joined
// by +, comments introduced by #. Three operators are recognized:
//
//	WTA =~ i56 + i57 + i58 + i59   // measurement
//	y ~ x1 + x2                    // regression
//	i56 ~~ i57                     // covariance
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/calder-stats/semfit/internal/spec"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// operators in match order: =~ must be tried before ~~, and ~~ before ~,
// because the shorter operators are substrings of the longer ones.
var operators = []struct {
	token string
	kind  spec.RelationKind
}{
	{"=~", spec.Measurement},
	{"~~", spec.Covariance},
	{"~", spec.Regression},
}

// Parse parses model text into a named Model.
// All lines are scanned even after an error so every problem is
// reported at once.
func Parse(name, text string) (spec.Model, error) {
	var (
		relations []spec.Relation
		errs      ParseErrors
	)

	for i, raw := range strings.Split(text, "\n") {
		line := raw
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		rel, err := parseLine(i+1, line)
		if err != nil {
			errs = append(errs, *err)
			continue
		}
		relations = append(relations, rel)
	}

	if len(errs) > 0 {
		return spec.Model{}, errs
	}
	if len(relations) == 0 {
		return spec.Model{}, ParseErrors{{Line: 1, Message: "model text contains no relations"}}
	}
	m, err := spec.New(name, relations)
	if err != nil {
		return spec.Model{}, ParseErrors{{Line: 1, Message: err.Error()}}
	}
	return m, nil
}

// parseLine parses a single non-empty relation line.
func parseLine(lineNo int, line string) (spec.Relation, *ParseError) {
	for _, op := range operators {
		idx := strings.Index(line, op.token)
		if idx < 0 {
			continue
		}

		lhs := strings.TrimSpace(line[:idx])
		rhs := strings.TrimSpace(line[idx+len(op.token):])
		if lhs == "" {
			return spec.Relation{}, &ParseError{Line: lineNo, Col: 1, Message: fmt.Sprintf("missing left-hand side before %q", op.token)}
		}
		if !identRe.MatchString(lhs) {
			return spec.Relation{}, &ParseError{Line: lineNo, Col: 1, Message: fmt.Sprintf("invalid identifier %q", lhs)}
		}
		if rhs == "" {
			return spec.Relation{}, &ParseError{Line: lineNo, Col: idx + len(op.token) + 1, Message: fmt.Sprintf("missing right-hand side after %q", op.token)}
		}

		var sources []string
		for _, part := range strings.Split(rhs, "+") {
			s := strings.TrimSpace(part)
			if s == "" {
				return spec.Relation{}, &ParseError{Line: lineNo, Col: idx + len(op.token) + 1, Message: "empty term in source list"}
			}
			if !identRe.MatchString(s) {
				return spec.Relation{}, &ParseError{Line: lineNo, Col: idx + len(op.token) + 1, Message: fmt.Sprintf("invalid identifier %q", s)}
			}
			sources = append(sources, s)
		}

		return spec.Relation{Kind: op.kind, Target: lhs, Sources: sources}, nil
	}

	return spec.Relation{}, &ParseError{Line: lineNo, Col: 1, Message: "no relation operator (=~, ~, ~~) found"}
}
