package engine

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/calder-stats/semfit/internal/dataset"
)

// Moments holds the sample statistics of one group: the sufficient
// statistics the optimizer sees. Vars fixes the variable order of Mean
// and Cov for every group of a Problem.
type Moments struct {
	Group string
	N     int
	Vars  []string
	Mean  []float64
	Cov   *mat.SymDense
}

// computeMoments extracts means and the ML (1/N) covariance matrix for
// the given variables, listwise-deleting rows with missing values.
func computeMoments(group string, d *dataset.Dataset, vars []string) (Moments, error) {
	rows, _, err := d.NumericRows(vars)
	if err != nil {
		return Moments{}, err
	}
	p := len(vars)
	n := len(rows)
	if n <= p {
		return Moments{}, NewConvergenceError("",
			fmt.Sprintf("group %q has %d complete observations for %d variables", groupLabel(group), n, p), nil)
	}

	data := mat.NewDense(n, p, nil)
	for i, row := range rows {
		data.SetRow(i, row)
	}

	mean := make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		mat.Col(col, j, data)
		mean[j] = stat.Mean(col, nil)
	}

	cov := mat.NewSymDense(p, nil)
	stat.CovarianceMatrix(cov, data, nil)
	// stat.CovarianceMatrix divides by n-1; maximum likelihood moments
	// divide by n.
	scale := float64(n-1) / float64(n)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			cov.SetSym(i, j, cov.At(i, j)*scale)
		}
	}

	return Moments{Group: group, N: n, Vars: vars, Mean: mean, Cov: cov}, nil
}

func groupLabel(g string) string {
	if g == "" {
		return "all"
	}
	return g
}
