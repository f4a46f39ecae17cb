package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder-stats/semfit/internal/engine"
	"github.com/calder-stats/semfit/internal/parser"
	"github.com/calder-stats/semfit/internal/spec"
)

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func demoModel(t *testing.T) spec.Model {
	t.Helper()
	m, err := parser.Parse("demo", "F =~ a + b\nG =~ c + d\na ~~ c")
	require.NoError(t, err)
	return m
}

// demoFit is a hand-built fitted model with stable values, so renderer
// output is fixed without running an optimizer.
func demoFit(t *testing.T) *engine.FittedModel {
	t.Helper()
	return &engine.FittedModel{
		Model: demoModel(t),
		Groups: []engine.GroupStats{{Name: "", N: 120}},
		Indices: engine.FitIndices{
			ChiSquare: 12.5, DF: 8, PValue: 0.13,
			BaselineChiSquare: 220, BaselineDF: 12,
			CFI: 0.978, TLI: 0.967, RMSEA: 0.041, SRMR: 0.032, N: 120,
		},
		Parameters: []engine.Parameter{
			{Kind: engine.ParamLoading, Lhs: "F", Rhs: "a", Estimate: 1, StdErr: math.NaN(), Std: 0.82},
			{Kind: engine.ParamLoading, Lhs: "F", Rhs: "b", Free: true, Estimate: 0.85, StdErr: 0.07, Std: 0.74},
			{Kind: engine.ParamLoading, Lhs: "G", Rhs: "c", Estimate: 1, StdErr: math.NaN(), Std: 0.79},
			{Kind: engine.ParamLoading, Lhs: "G", Rhs: "d", Free: true, Estimate: 0.91, StdErr: 0.08, Std: 0.71},
			{Kind: engine.ParamCovariance, Lhs: "F", Rhs: "G", Free: true, Estimate: 0.35, StdErr: 0.06, Std: math.NaN()},
			{Kind: engine.ParamIntercept, Lhs: "a", Free: true, Estimate: 3.12, StdErr: math.NaN(), Std: math.NaN()},
		},
		ModIndices: []engine.Score{
			{Kind: engine.ParamCovariance, Lhs: "b", Rhs: "d", Value: 6.41},
			{Kind: engine.ParamLoading, Lhs: "F", Rhs: "c", Value: 2.07},
		},
	}
}

func TestDiagramGolden(t *testing.T) {
	golden(t).Assert(t, "diagram", []byte(Diagram(demoModel(t))))
}

func TestParameterTableGolden(t *testing.T) {
	golden(t).Assert(t, "parameter_table", []byte(ParameterTable(demoFit(t))))
}

func TestModIndicesTableGolden(t *testing.T) {
	golden(t).Assert(t, "mod_indices_table", []byte(ModIndicesTable(demoFit(t), 0)))
}

func TestFitTable(t *testing.T) {
	out := FitTable(demoFit(t))
	assert.Contains(t, out, "Model: demo")
	assert.Contains(t, out, "Chi-square: 12.500 (df=8, p=0.130)")
	assert.Contains(t, out, "CFI: 0.978")
	assert.NotContains(t, out, "Groups:", "pooled fit has no group line")
}

func TestFittedDiagramLabelsLoadings(t *testing.T) {
	out := FittedDiagram(demoFit(t))
	assert.Contains(t, out, `"F" -> "a" [label="0.82"];`, "standardized value preferred")
	assert.Contains(t, out, `"F" -> "b" [label="0.74"];`)
	assert.Contains(t, out, `"a" -> "c" [dir=both, style=dashed];`)
}

func TestComparisonTable(t *testing.T) {
	out := ComparisonTable(&engine.Comparison{
		Restricted: "base", Full: "adapted",
		ChiSquareDiff: 4.2, DFDiff: 1, PValue: 0.04,
	})
	assert.Contains(t, out, "Restricted: base")
	assert.Contains(t, out, "Chi-square diff: 4.200 (df=1, p=0.040)")
}

func TestRenderHTML(t *testing.T) {
	doc := NewDocument("IMPACT CFA", "sha256:abc")
	doc.AddFit(demoFit(t), 5)
	doc.AddComparison(&engine.Comparison{Restricted: "base", Full: "adapted",
		ChiSquareDiff: 4.2, DFDiff: 1, PValue: 0.04})

	var buf bytes.Buffer
	require.NoError(t, doc.RenderHTML(&buf))
	html := buf.String()

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>IMPACT CFA</title>")
	assert.Contains(t, html, `href="#fit-1"`, "table of contents links sections")
	assert.Contains(t, html, `id="fit-1"`)
	assert.Contains(t, html, "Comparison: base vs adapted")
	assert.NotContains(t, html, "http://", "report is self-contained")
	assert.NotContains(t, html, "https://")
}
