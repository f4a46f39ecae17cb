package spec

import (
	"fmt"
	"sort"
)

// RelationKind identifies the operator of a model relation.
type RelationKind string

const (
	// Measurement declares a latent variable measured by indicators (=~).
	Measurement RelationKind = "=~"

	// Regression declares a dependent variable regressed on predictors (~).
	Regression RelationKind = "~"

	// Covariance declares a free covariance between two variables (~~).
	Covariance RelationKind = "~~"
)

// ValidKinds defines the allowed relation kinds.
var ValidKinds = map[RelationKind]bool{
	Measurement: true,
	Regression:  true,
	Covariance:  true,
}

// Relation is a single declarative relation in a model specification.
type Relation struct {
	Kind    RelationKind `json:"kind"`
	Target  string       `json:"target"`
	Sources []string     `json:"sources"`
}

// Loading is an atomic latent→indicator pair expanded from a
// measurement relation.
type Loading struct {
	Latent    string `json:"latent"`
	Indicator string `json:"indicator"`
}

// Model is an immutable named model specification.
//
// Construct with New or Extend; the zero value is an empty model.
// Relations are copied on construction and on access, so a Model can be
// shared freely.
type Model struct {
	name      string
	parent    string // hash of the base model when built via Extend
	relations []Relation
}

// New creates a model from the given relations.
// Relations with an empty target or no sources are rejected.
func New(name string, relations []Relation) (Model, error) {
	if name == "" {
		return Model{}, fmt.Errorf("model name is required")
	}
	rels := make([]Relation, 0, len(relations))
	for i, r := range relations {
		if !ValidKinds[r.Kind] {
			return Model{}, fmt.Errorf("relation %d: unknown kind %q", i, r.Kind)
		}
		if r.Target == "" {
			return Model{}, fmt.Errorf("relation %d: target is required", i)
		}
		if len(r.Sources) == 0 {
			return Model{}, fmt.Errorf("relation %d: at least one source is required", i)
		}
		for _, s := range r.Sources {
			if s == "" {
				return Model{}, fmt.Errorf("relation %d: empty source", i)
			}
		}
		rels = append(rels, Relation{
			Kind:    r.Kind,
			Target:  r.Target,
			Sources: append([]string(nil), r.Sources...),
		})
	}
	return Model{name: name, relations: rels}, nil
}

// MustNew is like New but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNew(name string, relations []Relation) Model {
	m, err := New(name, relations)
	if err != nil {
		panic(err)
	}
	return m
}

// Name returns the model's name.
func (m Model) Name() string { return m.name }

// Parent returns the hash of the model this one extends, or "" for a
// model built directly with New.
func (m Model) Parent() string { return m.parent }

// Relations returns a copy of the model's relations in declaration
// order.
func (m Model) Relations() []Relation {
	out := make([]Relation, len(m.relations))
	for i, r := range m.relations {
		out[i] = Relation{Kind: r.Kind, Target: r.Target, Sources: append([]string(nil), r.Sources...)}
	}
	return out
}

// Empty reports whether the model has no relations.
func (m Model) Empty() bool { return len(m.relations) == 0 }

// LatentVars returns the latent variable names (measurement-relation
// targets) in first-declaration order.
func (m Model) LatentVars() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range m.relations {
		if r.Kind == Measurement && !seen[r.Target] {
			seen[r.Target] = true
			out = append(out, r.Target)
		}
	}
	return out
}

// ObservedVars returns every observed variable referenced by the model,
// sorted. A variable is observed when it is referenced anywhere and is
// not a measurement-relation target.
func (m Model) ObservedVars() []string {
	latent := map[string]bool{}
	for _, l := range m.LatentVars() {
		latent[l] = true
	}
	seen := map[string]bool{}
	for _, r := range m.relations {
		if !latent[r.Target] {
			seen[r.Target] = true
		}
		for _, s := range r.Sources {
			if !latent[s] {
				seen[s] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// IndicatorsOf returns the indicators of the given latent variable in
// declaration order, deduplicated.
func (m Model) IndicatorsOf(latent string) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range m.relations {
		if r.Kind != Measurement || r.Target != latent {
			continue
		}
		for _, s := range r.Sources {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// Loadings expands every measurement relation into atomic
// latent→indicator pairs, deduplicated, in declaration order.
func (m Model) Loadings() []Loading {
	seen := map[Loading]bool{}
	var out []Loading
	for _, r := range m.relations {
		if r.Kind != Measurement {
			continue
		}
		for _, s := range r.Sources {
			l := Loading{Latent: r.Target, Indicator: s}
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	return out
}
