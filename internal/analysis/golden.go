package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a run result as a stable structural summary:
// dimensions, identities and degrees of freedom, but no estimates.
// Identical documents over identical data always produce identical
// snapshots regardless of the optimizer in use.
func Snapshot(res *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "dataset n=%d cols=%d\n",
		res.Dataset.Len(), len(res.Dataset.Columns()))

	for _, name := range res.ModelOrder {
		m := res.Models[name]
		fmt.Fprintf(&b, "model %s hash=%s loadings=%d\n",
			name, shortHash(m.Hash()), len(m.Loadings()))
	}
	for _, fr := range res.Fits {
		fmt.Fprintf(&b, "fit %s group=%q constraints=[%s] groups=%d df=%d n=%d params=%d\n",
			fr.Def.Model, fr.Def.Group, strings.Join(fr.Def.Constraints, ","),
			len(fr.Fit.Groups), fr.Fit.Indices.DF, fr.Fit.Indices.N, len(fr.Fit.Parameters))
	}
	for _, cr := range res.Comparisons {
		fmt.Fprintf(&b, "compare restricted=%s full=%s df_diff=%d\n",
			cr.Cmp.Restricted, cr.Cmp.Full, cr.Cmp.DFDiff)
	}
	for _, lr := range res.Ladders {
		steps := make([]string, len(lr.Ladder.Steps))
		for i, s := range lr.Ladder.Steps {
			steps[i] = fmt.Sprintf("%s:%d", s.Step, s.Fit.Indices.DF)
		}
		fmt.Fprintf(&b, "invariance %s over %s steps=%s\n",
			lr.Def.Model, lr.Def.Group, strings.Join(steps, ","))
	}
	return []byte(b.String())
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// AssertGolden compares a run result's snapshot against a golden file
// in testdata/golden. Regenerate with go test -update.
func AssertGolden(t *testing.T, name string, res *Result) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(res))
}
