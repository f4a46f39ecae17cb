// Package testutil provides deterministic fixtures for engine and
// pipeline tests: a seeded synthetic survey dataset and a scripted
// optimizer.
package testutil

import (
	"math"
	"math/rand"

	"github.com/calder-stats/semfit/internal/dataset"
)

// LikertSeed is the fixed seed behind LikertDataset. The same n always
// yields byte-identical data, which keeps golden snapshots stable.
const LikertSeed = 20240517

// LikertFactors maps the fixture's latent factors to their indicator
// columns, in declaration order.
var LikertFactors = []struct {
	Name       string
	Indicators []string
}{
	{"WTA", []string{"i56", "i57", "i58", "i59"}},
	{"EXP", []string{"i60", "i61", "i62", "i63"}},
	{"IMP", []string{"i64", "i65", "i66", "i67"}},
}

// LikertModelText is a three-factor model over the fixture's columns.
const LikertModelText = `WTA =~ i56 + i57 + i58 + i59
EXP =~ i60 + i61 + i62 + i63
IMP =~ i64 + i65 + i66 + i67
`

// LikertDataset builds a synthetic n-row survey dataset with twelve
// indicator columns i56..i67 driven by three correlated latent factors,
// plus a Grade grouping column cycling over 2, 3, 4. Indicators are
// rounded to the 1..5 Likert range.
func LikertDataset(n int) *dataset.Dataset {
	rng := rand.New(rand.NewSource(LikertSeed))

	names := make([]string, 0, 13)
	data := map[string][]float64{}
	for _, f := range LikertFactors {
		for _, ind := range f.Indicators {
			names = append(names, ind)
			data[ind] = make([]float64, n)
		}
	}
	names = append(names, "Grade")
	data["Grade"] = make([]float64, n)

	for row := 0; row < n; row++ {
		// Correlated factor scores: one shared component plus a
		// factor-specific one.
		common := rng.NormFloat64()
		for _, f := range LikertFactors {
			score := 0.6*common + 0.8*rng.NormFloat64()
			for ii, ind := range f.Indicators {
				loading := 1.0 - 0.1*float64(ii)
				v := 3 + loading*score + 0.7*rng.NormFloat64()
				data[ind][row] = clampLikert(v)
			}
		}
		data["Grade"][row] = float64(2 + row%3)
	}

	d, err := dataset.FromNumeric(names, data)
	if err != nil {
		panic(err)
	}
	return d
}

func clampLikert(v float64) float64 {
	r := math.Round(v)
	if r < 1 {
		return 1
	}
	if r > 5 {
		return 5
	}
	return r
}
