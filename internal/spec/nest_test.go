package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtendRecordsParent(t *testing.T) {
	base := baseModel(t)
	adapted, err := Extend(base, "adapted",
		Relation{Kind: Measurement, Target: "WTA", Sources: []string{"i63"}})
	require.NoError(t, err)

	assert.Equal(t, "adapted", adapted.Name())
	assert.Equal(t, base.Hash(), adapted.Parent())
	assert.Len(t, adapted.Loadings(), 13, "one added cross-loading on top of 12")
}

func TestNestsWithin(t *testing.T) {
	base := baseModel(t)
	adapted := MustExtend(base, "adapted",
		Relation{Kind: Measurement, Target: "WTA", Sources: []string{"i63"}})
	unrelated := MustNew("unrelated", []Relation{
		{Kind: Measurement, Target: "Q", Sources: []string{"q1", "q2", "q3"}},
	})

	tests := []struct {
		name     string
		inner    Model
		outer    Model
		nests    bool
		strictly bool
	}{
		{"base_in_adapted", base, adapted, true, true},
		{"adapted_in_base", adapted, base, false, false},
		{"self", base, base, true, false},
		{"unrelated", unrelated, base, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.nests, tt.inner.NestsWithin(tt.outer))
			assert.Equal(t, tt.strictly, tt.inner.NestsStrictly(tt.outer))
		})
	}
}

func TestExtendDoesNotMutateBase(t *testing.T) {
	base := baseModel(t)
	before := base.Canonical()
	_ = MustExtend(base, "adapted",
		Relation{Kind: Covariance, Target: "i56", Sources: []string{"i57"}})
	assert.Equal(t, before, base.Canonical())
}
