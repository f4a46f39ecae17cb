package report

import (
	"fmt"
	"strings"

	"github.com/calder-stats/semfit/internal/engine"
	"github.com/calder-stats/semfit/internal/spec"
)

// Diagram renders a model as a Graphviz path diagram: latent variables
// as ellipses, observed indicators as boxes, loadings as directed edges
// and covariances as dashed bidirectional edges. Output is
// deterministic given the model's declaration order.
func Diagram(m spec.Model) string {
	return diagram(m, nil)
}

// FittedDiagram is Diagram with loading edges labeled by their
// estimates from the first group of a fitted model. Standardized
// values are preferred when present.
func FittedDiagram(fm *engine.FittedModel) string {
	group := ""
	if len(fm.Groups) > 0 {
		group = fm.Groups[0].Name
	}
	labels := map[string]string{}
	for _, p := range fm.Parameters {
		if p.Kind != engine.ParamLoading || p.Group != group {
			continue
		}
		v := p.Std
		if v != v {
			v = p.Estimate
		}
		labels[p.Lhs+"/"+p.Rhs] = fmt.Sprintf("%.2f", v)
	}
	return diagram(fm.Model, labels)
}

func diagram(m spec.Model, loadingLabels map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", m.Name())
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")

	latent := map[string]bool{}
	for _, l := range m.LatentVars() {
		latent[l] = true
		fmt.Fprintf(&b, "  %q [shape=ellipse];\n", l)
	}
	for _, v := range m.ObservedVars() {
		fmt.Fprintf(&b, "  %q [shape=box];\n", v)
	}

	for _, l := range m.LatentVars() {
		for _, ind := range m.IndicatorsOf(l) {
			if label, ok := loadingLabels[l+"/"+ind]; ok {
				fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", l, ind, label)
			} else {
				fmt.Fprintf(&b, "  %q -> %q;\n", l, ind)
			}
		}
	}
	for _, r := range m.Relations() {
		switch r.Kind {
		case spec.Regression:
			for _, src := range r.Sources {
				fmt.Fprintf(&b, "  %q -> %q [style=bold];\n", src, r.Target)
			}
		case spec.Covariance:
			for _, src := range r.Sources {
				fmt.Fprintf(&b, "  %q -> %q [dir=both, style=dashed];\n", r.Target, src)
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}
