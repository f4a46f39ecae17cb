package spec

// Extend builds a variant model from a base plus additional relations.
// The result records the base model's hash as its parent, preserving
// traceability between nested models for comparison purposes.
func Extend(base Model, name string, extra ...Relation) (Model, error) {
	m, err := New(name, append(base.Relations(), extra...))
	if err != nil {
		return Model{}, err
	}
	m.parent = base.Hash()
	return m, nil
}

// MustExtend is like Extend but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustExtend(base Model, name string, extra ...Relation) Model {
	m, err := Extend(base, name, extra...)
	if err != nil {
		panic(err)
	}
	return m
}

// NestsWithin reports whether m is nested within other: every
// normalized atom of m is present in other. A model nests within an
// equivalent model; use NestsStrictly when a proper subset is required.
func (m Model) NestsWithin(other Model) bool {
	have := map[atom]bool{}
	for _, a := range other.atoms() {
		have[a] = true
	}
	for _, a := range m.atoms() {
		if !have[a] {
			return false
		}
	}
	return true
}

// NestsStrictly reports whether m is a proper structural subset of
// other. Only strictly nested pairs admit a meaningful likelihood-ratio
// comparison.
func (m Model) NestsStrictly(other Model) bool {
	return m.NestsWithin(other) && len(m.atoms()) < len(other.atoms())
}
