package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalMergesAndSorts(t *testing.T) {
	m := MustNew("m", []Relation{
		{Kind: Measurement, Target: "F", Sources: []string{"b"}},
		{Kind: Measurement, Target: "F", Sources: []string{"a"}},
	})
	assert.Equal(t, "F =~ a + b\n", m.Canonical())
}

func TestCanonicalIgnoresOrderAndDuplicates(t *testing.T) {
	a := MustNew("a", []Relation{
		{Kind: Measurement, Target: "F", Sources: []string{"x1", "x2"}},
		{Kind: Covariance, Target: "x1", Sources: []string{"x2"}},
	})
	b := MustNew("b", []Relation{
		{Kind: Covariance, Target: "x2", Sources: []string{"x1"}}, // symmetric
		{Kind: Measurement, Target: "F", Sources: []string{"x2"}},
		{Kind: Measurement, Target: "F", Sources: []string{"x1", "x2"}}, // duplicate
	})
	assert.True(t, Equivalent(a, b))
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestCanonicalKindOrdering(t *testing.T) {
	m := MustNew("m", []Relation{
		{Kind: Covariance, Target: "a", Sources: []string{"b"}},
		{Kind: Regression, Target: "y", Sources: []string{"F"}},
		{Kind: Measurement, Target: "F", Sources: []string{"a", "b"}},
	})
	assert.Equal(t, "F =~ a + b\ny ~ F\na ~~ b\n", m.Canonical())
}

func TestHashDiffersAcrossModels(t *testing.T) {
	a := MustNew("a", []Relation{{Kind: Measurement, Target: "F", Sources: []string{"x1", "x2"}}})
	b := MustNew("b", []Relation{{Kind: Measurement, Target: "F", Sources: []string{"x1", "x3"}}})
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestHashDomainSeparation(t *testing.T) {
	// The same bytes under different domains must not collide.
	require.NotEqual(t,
		HashWithDomain(DomainModel, []byte("x")),
		HashWithDomain(DomainData, []byte("x")))
}

func TestHashStableAcrossNames(t *testing.T) {
	rels := []Relation{{Kind: Measurement, Target: "F", Sources: []string{"x1", "x2", "x3"}}}
	assert.Equal(t, MustNew("one", rels).Hash(), MustNew("two", rels).Hash())
}
