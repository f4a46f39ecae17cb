// Package report renders fitted models as text tables, Graphviz path
// diagrams and self-contained HTML documents. All renderers are pure
// functions of their inputs, so identical fits always produce
// byte-identical output.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/calder-stats/semfit/internal/engine"
)

// FitTable renders the global fit indices of one fitted model.
func FitTable(fm *engine.FittedModel) string {
	var b strings.Builder
	name := fm.Model.Name()
	fmt.Fprintf(&b, "Model: %s\n", name)
	if fm.Options.Group != "" {
		fmt.Fprintf(&b, "Groups: %s (", fm.Options.Group)
		for i, g := range fm.Groups {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s n=%d", g.Name, g.N)
		}
		b.WriteString(")\n")
	}
	idx := fm.Indices
	fmt.Fprintf(&b, "N: %d\n", idx.N)
	fmt.Fprintf(&b, "Chi-square: %.3f (df=%d, p=%.3f)\n", idx.ChiSquare, idx.DF, idx.PValue)
	fmt.Fprintf(&b, "CFI: %.3f  TLI: %.3f\n", idx.CFI, idx.TLI)
	fmt.Fprintf(&b, "RMSEA: %.3f  SRMR: %.3f\n", idx.RMSEA, idx.SRMR)
	return b.String()
}

// ParameterTable renders the parameter estimates of one fitted model,
// one row per parameter in layout order.
func ParameterTable(fm *engine.FittedModel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-3s %-12s %-8s %10s %10s %10s\n",
		"lhs", "op", "rhs", "group", "estimate", "std.err", "std")
	for _, p := range fm.Parameters {
		rhs := p.Rhs
		if p.Kind == engine.ParamIntercept {
			rhs = "1"
		}
		fmt.Fprintf(&b, "%-12s %-3s %-12s %-8s %10.3f %10s %10s\n",
			p.Lhs, opOf(p.Kind), rhs, p.Group,
			p.Estimate, num(p.StdErr), num(p.Std))
	}
	return b.String()
}

// ModIndicesTable renders modification indices, largest first.
func ModIndicesTable(fm *engine.FittedModel, limit int) string {
	scores := engine.ModificationIndices(fm, true, limit)
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-3s %-12s %-8s %10s\n", "lhs", "op", "rhs", "group", "mi")
	for _, s := range scores {
		fmt.Fprintf(&b, "%-12s %-3s %-12s %-8s %10.3f\n",
			s.Lhs, opOf(s.Kind), s.Rhs, s.Group, s.Value)
	}
	return b.String()
}

// ComparisonTable renders one likelihood-ratio test.
func ComparisonTable(cmp *engine.Comparison) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Restricted: %s\n", cmp.Restricted)
	fmt.Fprintf(&b, "Full:       %s\n", cmp.Full)
	fmt.Fprintf(&b, "Chi-square diff: %.3f (df=%d, p=%.3f)\n",
		cmp.ChiSquareDiff, cmp.DFDiff, cmp.PValue)
	return b.String()
}

// InvarianceTable renders a full invariance ladder: per-step fit plus
// the adjacent-step tests.
func InvarianceTable(l *engine.Ladder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invariance over %s\n", l.Group)
	fmt.Fprintf(&b, "%-12s %12s %6s %8s %8s %8s\n",
		"step", "chisq", "df", "cfi", "rmsea", "srmr")
	for _, s := range l.Steps {
		idx := s.Fit.Indices
		fmt.Fprintf(&b, "%-12s %12.3f %6d %8.3f %8.3f %8.3f\n",
			string(s.Step), idx.ChiSquare, idx.DF, idx.CFI, idx.RMSEA, idx.SRMR)
	}
	if len(l.Comparisons) > 0 {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%-24s %12s %6s %8s\n", "test", "chisq.diff", "df", "p")
		for i, cmp := range l.Comparisons {
			label := string(l.Steps[i].Step) + " vs " + string(l.Steps[i+1].Step)
			fmt.Fprintf(&b, "%-24s %12.3f %6d %8.3f\n",
				label, cmp.ChiSquareDiff, cmp.DFDiff, cmp.PValue)
		}
	}
	return b.String()
}

func opOf(k engine.ParamKind) string {
	if k == engine.ParamIntercept {
		return "~"
	}
	return string(k)
}

// num formats an optional statistic; NaN renders as a dash.
func num(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}
