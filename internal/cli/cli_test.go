package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder-stats/semfit/internal/dataset"
	"github.com/calder-stats/semfit/internal/store"
	"github.com/calder-stats/semfit/internal/testutil"
)

// execute runs the root command with args and captures stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// fixtureDir writes the standard dataset and model files into a temp dir.
func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, dataset.SaveCSV(testutil.LikertDataset(100), filepath.Join(dir, "impact.csv")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.lav"),
		[]byte(testutil.LikertModelText), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "adapted.lav"),
		[]byte(testutil.LikertModelText+"WTA =~ i63\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.lav"),
		[]byte("EXP =~ i60 + i61 + i62\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.lav"),
		[]byte("WTA =~ i56 + i999\n"), 0o644))
	return dir
}

func TestValidateCommand(t *testing.T) {
	dir := fixtureDir(t)
	out, err := execute(t, "validate", filepath.Join(dir, "base.lav"),
		"--data", filepath.Join(dir, "impact.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "model base is valid")
	assert.Contains(t, out, "12 loadings")
}

func TestValidateCommandJSON(t *testing.T) {
	dir := fixtureDir(t)
	out, err := execute(t, "validate", filepath.Join(dir, "base.lav"),
		"--data", filepath.Join(dir, "impact.csv"), "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateCommandUnknownVariable(t *testing.T) {
	dir := fixtureDir(t)
	out, err := execute(t, "validate", filepath.Join(dir, "bad.lav"),
		"--data", filepath.Join(dir, "impact.csv"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "i999")
}

func TestValidateCommandMissingData(t *testing.T) {
	dir := fixtureDir(t)
	_, err := execute(t, "validate", filepath.Join(dir, "base.lav"),
		"--data", filepath.Join(dir, "nosuch.csv"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFitCommand(t *testing.T) {
	dir := fixtureDir(t)
	out, err := execute(t, "fit", filepath.Join(dir, "base.lav"),
		"--data", filepath.Join(dir, "impact.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "Model: base")
	assert.Contains(t, out, "Chi-square:")
	assert.Contains(t, out, "estimate")
}

func TestFitCommandPersists(t *testing.T) {
	dir := fixtureDir(t)
	dbPath := filepath.Join(dir, "semfit.db")
	_, err := execute(t, "fit", filepath.Join(dir, "base.lav"),
		"--data", filepath.Join(dir, "impact.csv"), "--db", dbPath)
	require.NoError(t, err)

	s, err := store.Open(dbPath)
	require.NoError(t, err)
	defer s.Close()
	specs, err := s.ListSpecs(context.Background())
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "base", specs[0].Name)
}

func TestFitCommandGrouped(t *testing.T) {
	dir := fixtureDir(t)
	out, err := execute(t, "fit", filepath.Join(dir, "base.lav"),
		"--data", filepath.Join(dir, "impact.csv"),
		"--group", "Grade", "--constrain", "loadings")
	require.NoError(t, err)
	assert.Contains(t, out, "Groups: Grade")
}

func TestFitCommandFilterExcludesColumn(t *testing.T) {
	// Filtering changes rows, not columns; a model variable absent from
	// the data still fails with COLUMN_NOT_FOUND.
	dir := fixtureDir(t)
	out, err := execute(t, "fit", filepath.Join(dir, "bad.lav"),
		"--data", filepath.Join(dir, "impact.csv"),
		"--filter", "Grade == 2 or Grade == 3")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "COLUMN_NOT_FOUND")
}

func TestCompareCommand(t *testing.T) {
	dir := fixtureDir(t)
	out, err := execute(t, "compare",
		filepath.Join(dir, "base.lav"), filepath.Join(dir, "adapted.lav"),
		"--data", filepath.Join(dir, "impact.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "Restricted: base")
	assert.Contains(t, out, "df=1")
}

func TestCompareCommandNonNested(t *testing.T) {
	dir := fixtureDir(t)
	out, err := execute(t, "compare",
		filepath.Join(dir, "base.lav"), filepath.Join(dir, "other.lav"),
		"--data", filepath.Join(dir, "impact.csv"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "COMPARISON")
}

func TestMICommandLimit(t *testing.T) {
	dir := fixtureDir(t)
	out, err := execute(t, "mi", filepath.Join(dir, "base.lav"),
		"--data", filepath.Join(dir, "impact.csv"), "--limit", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.LessOrEqual(t, len(lines), 4, "header plus at most three rows")
}

func TestInvarianceCommand(t *testing.T) {
	dir := fixtureDir(t)
	out, err := execute(t, "invariance", filepath.Join(dir, "base.lav"),
		"--data", filepath.Join(dir, "impact.csv"), "--group", "Grade")
	require.NoError(t, err)
	assert.Contains(t, out, "configural")
	assert.Contains(t, out, "metric vs scalar")
}

func TestDiagramCommand(t *testing.T) {
	dir := fixtureDir(t)
	out, err := execute(t, "diagram", filepath.Join(dir, "base.lav"))
	require.NoError(t, err)
	assert.Contains(t, out, `digraph "base"`)
	assert.Contains(t, out, `"WTA" [shape=ellipse];`)
	assert.Contains(t, out, `"i56" [shape=box];`)
}

func TestReportCommand(t *testing.T) {
	dir := fixtureDir(t)
	htmlPath := filepath.Join(dir, "base.html")
	out, err := execute(t, "report", filepath.Join(dir, "base.lav"),
		"--data", filepath.Join(dir, "impact.csv"), "--out", htmlPath)
	require.NoError(t, err)
	assert.Contains(t, out, "report written to")

	html, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<title>base</title>")
	assert.Contains(t, string(html), "digraph")
}

func TestRunCommand(t *testing.T) {
	dir := fixtureDir(t)
	doc := `
analysis: {
	data: {csv: "impact.csv"}
	models: {
		base: {
			text: """
				WTA =~ i56 + i57 + i58 + i59
				EXP =~ i60 + i61 + i62 + i63
				IMP =~ i64 + i65 + i66 + i67
				"""
		}
	}
	fits: [{model: "base"}]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.cue"), []byte(doc), 0o644))

	out, err := execute(t, "run", filepath.Join(dir, "doc.cue"))
	require.NoError(t, err)
	assert.Contains(t, out, "dataset: 100 rows")
	assert.Contains(t, out, "fits: 1")
}

func TestInvalidFormatFlag(t *testing.T) {
	dir := fixtureDir(t)
	_, err := execute(t, "diagram", filepath.Join(dir, "base.lav"), "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
