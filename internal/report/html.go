package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/calder-stats/semfit/internal/engine"
)

//go:embed report.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templateFS, "report.tmpl"))

// Document is a full analysis report: any number of fits, comparisons
// and invariance ladders, rendered with a table of contents. Sections
// appear in the order they were added.
type Document struct {
	Title   string
	DataSig string

	Fits        []FitSection
	Comparisons []ComparisonSection
	Ladders     []LadderSection
}

// FitSection is one fitted model in a Document.
type FitSection struct {
	Anchor     string
	Name       string
	Indices    string
	Parameters string
	ModIndices string
	Diagram    string
}

// ComparisonSection is one likelihood-ratio test in a Document.
type ComparisonSection struct {
	Anchor string
	Label  string
	Body   string
}

// LadderSection is one invariance ladder in a Document.
type LadderSection struct {
	Anchor string
	Label  string
	Body   string
}

// NewDocument creates an empty report document.
func NewDocument(title, dataSig string) *Document {
	return &Document{Title: title, DataSig: dataSig}
}

// AddFit appends a fitted model section, including its parameter table,
// top modification indices and path diagram.
func (doc *Document) AddFit(fm *engine.FittedModel, miLimit int) {
	name := fm.Model.Name()
	doc.Fits = append(doc.Fits, FitSection{
		Anchor:     fmt.Sprintf("fit-%d", len(doc.Fits)+1),
		Name:       name,
		Indices:    FitTable(fm),
		Parameters: ParameterTable(fm),
		ModIndices: ModIndicesTable(fm, miLimit),
		Diagram:    FittedDiagram(fm),
	})
}

// AddComparison appends a nested-model comparison section.
func (doc *Document) AddComparison(cmp *engine.Comparison) {
	doc.Comparisons = append(doc.Comparisons, ComparisonSection{
		Anchor: fmt.Sprintf("cmp-%d", len(doc.Comparisons)+1),
		Label:  cmp.Restricted + " vs " + cmp.Full,
		Body:   ComparisonTable(cmp),
	})
}

// AddLadder appends an invariance ladder section.
func (doc *Document) AddLadder(l *engine.Ladder) {
	doc.Ladders = append(doc.Ladders, LadderSection{
		Anchor: fmt.Sprintf("inv-%d", len(doc.Ladders)+1),
		Label:  "Invariance over " + l.Group,
		Body:   InvarianceTable(l),
	})
}

// RenderHTML writes the document as a self-contained HTML page. No
// external assets are referenced; styles are inlined.
func (doc *Document) RenderHTML(w io.Writer) error {
	if err := reportTemplate.Execute(w, doc); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
