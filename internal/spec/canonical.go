package spec

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// atom is a single normalized (kind, target, source) triple. Covariance
// atoms are symmetric: the lexicographically smaller variable is always
// the target.
type atom struct {
	kind   RelationKind
	target string
	source string
}

// kindRank fixes the canonical ordering of relation kinds.
func kindRank(k RelationKind) int {
	switch k {
	case Measurement:
		return 0
	case Regression:
		return 1
	default:
		return 2
	}
}

// atoms expands the model into deduplicated normalized atoms.
// Identifiers are NFC normalized so visually identical specifications
// hash identically.
func (m Model) atoms() []atom {
	seen := map[atom]bool{}
	var out []atom
	for _, r := range m.relations {
		target := norm.NFC.String(r.Target)
		for _, s := range r.Sources {
			src := norm.NFC.String(s)
			a := atom{kind: r.Kind, target: target, source: src}
			if r.Kind == Covariance && src < target {
				a.target, a.source = src, target
			}
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].kind != out[j].kind {
			return kindRank(out[i].kind) < kindRank(out[j].kind)
		}
		if out[i].target != out[j].target {
			return out[i].target < out[j].target
		}
		return out[i].source < out[j].source
	})
	return out
}

// Canonical produces the canonical text form of the model.
//
// This is the ONLY serialization used for content-addressed identity.
// Atoms with the same kind and target are merged onto one line with
// sorted sources, lines are ordered measurement → regression →
// covariance and alphabetically by target within a kind, and all
// identifiers are NFC normalized. Source declaration order, duplicate
// relations, and line splitting therefore never change a model's
// identity.
func (m Model) Canonical() string {
	atoms := m.atoms()
	var b strings.Builder
	for i := 0; i < len(atoms); {
		j := i
		for j < len(atoms) && atoms[j].kind == atoms[i].kind && atoms[j].target == atoms[i].target {
			j++
		}
		b.WriteString(atoms[i].target)
		b.WriteByte(' ')
		b.WriteString(string(atoms[i].kind))
		b.WriteByte(' ')
		for k := i; k < j; k++ {
			if k > i {
				b.WriteString(" + ")
			}
			b.WriteString(atoms[k].source)
		}
		b.WriteByte('\n')
		i = j
	}
	return b.String()
}

// Equivalent reports whether two models have identical canonical form,
// regardless of name, relation order, or line splitting.
func Equivalent(a, b Model) bool {
	return a.Canonical() == b.Canonical()
}
