package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *Dataset {
	t.Helper()
	d, err := New([]Series{
		{Name: "i56", Nums: []float64{3, 4, 2, 5, 1, 4}},
		{Name: "i57", Nums: []float64{2, 4, 3, 5, 2, 3}},
		{Name: "Grade", Nums: []float64{2, 2, 3, 3, 4, 2}},
		{Name: "Cohort", Strs: []string{"a", "a", "b", "b", "b", "a"}},
	})
	require.NoError(t, err)
	return d
}

func TestNewRejectsRaggedColumns(t *testing.T) {
	_, err := New([]Series{
		{Name: "a", Nums: []float64{1, 2}},
		{Name: "b", Nums: []float64{1}},
	})
	assert.Error(t, err)
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	_, err := New([]Series{
		{Name: "a", Nums: []float64{1}},
		{Name: "a", Nums: []float64{2}},
	})
	assert.Error(t, err)
}

func TestRename(t *testing.T) {
	d := sample(t)
	out, err := d.Rename(map[string]string{"i56": "wta_1", "i57": "wta_2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"wta_1", "wta_2", "Grade", "Cohort"}, out.Columns())
	// Input untouched.
	assert.Equal(t, []string{"i56", "i57", "Grade", "Cohort"}, d.Columns())

	v, err := out.Float("wta_1", 0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestRenameUnknownColumn(t *testing.T) {
	d := sample(t)
	_, err := d.Rename(map[string]string{"nosuch": "x"})
	require.Error(t, err)
	assert.True(t, IsColumnNotFound(err))
}

func TestRenameDuplicateTarget(t *testing.T) {
	d := sample(t)
	_, err := d.Rename(map[string]string{"i56": "x", "i57": "x"})
	require.Error(t, err)

	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrCodeDuplicateColumn, de.Code)
	assert.False(t, IsColumnNotFound(err))
}

func TestFilterPreservesColumns(t *testing.T) {
	d := sample(t)
	out, err := d.Filter(Cmp{Col: "Grade", Op: OpEq, Num: 2, IsNum: true})
	require.NoError(t, err)

	assert.Equal(t, d.Columns(), out.Columns())
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, 6, d.Len(), "input untouched")
}

func TestFilterUnknownColumn(t *testing.T) {
	d := sample(t)
	_, err := d.Filter(Cmp{Col: "nosuch", Op: OpEq, Num: 1, IsNum: true})
	assert.True(t, IsColumnNotFound(err))
}

func TestRenameFilterCommute(t *testing.T) {
	// Renaming columns not involved in the predicate commutes with
	// filtering.
	d := sample(t)
	pred := Cmp{Col: "Grade", Op: OpGe, Num: 3, IsNum: true}
	mapping := map[string]string{"i56": "wta_1"}

	renamedFirst, err := d.Rename(mapping)
	require.NoError(t, err)
	a, err := renamedFirst.Filter(pred)
	require.NoError(t, err)

	filteredFirst, err := d.Filter(pred)
	require.NoError(t, err)
	b, err := filteredFirst.Rename(mapping)
	require.NoError(t, err)

	require.Equal(t, a.Columns(), b.Columns())
	require.Equal(t, a.Len(), b.Len())
	for r := 0; r < a.Len(); r++ {
		for _, col := range a.Columns() {
			av, err := a.String(col, r)
			require.NoError(t, err)
			bv, err := b.String(col, r)
			require.NoError(t, err)
			assert.Equal(t, av, bv, "row %d col %s", r, col)
		}
	}
}

func TestSelect(t *testing.T) {
	d := sample(t)
	out, err := d.Select("Grade", "i56")
	require.NoError(t, err)
	assert.Equal(t, []string{"Grade", "i56"}, out.Columns())

	_, err = d.Select("nosuch")
	assert.True(t, IsColumnNotFound(err))
}

func TestPartitionDisjointExhaustive(t *testing.T) {
	d := sample(t)
	filtered, err := d.Filter(Or{Terms: []Predicate{
		Cmp{Col: "Grade", Op: OpEq, Num: 2, IsNum: true},
		Cmp{Col: "Grade", Op: OpEq, Num: 3, IsNum: true},
	}})
	require.NoError(t, err)
	require.Equal(t, 5, filtered.Len())

	p, err := filtered.Partition("Grade")
	require.NoError(t, err)

	assert.Equal(t, []string{"2", "3"}, p.Order)
	assert.Len(t, p.Groups, 2)
	assert.Equal(t, filtered.Len(), p.Size(), "groups sum to filtered row count")
	assert.Equal(t, 3, p.Groups["2"].Len())
	assert.Equal(t, 2, p.Groups["3"].Len())
}

func TestPartitionOrderNumeric(t *testing.T) {
	d, err := New([]Series{
		{Name: "x", Nums: []float64{1, 2, 3, 4}},
		{Name: "g", Nums: []float64{10, 2, 1, 10}},
	})
	require.NoError(t, err)

	p, err := d.Partition("g")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "10"}, p.Order, "numeric keys order by value")
}

func TestPartitionOrderCategorical(t *testing.T) {
	d, err := New([]Series{
		{Name: "x", Nums: []float64{1, 2, 3}},
		{Name: "g", Strs: []string{"b", "a", "c"}},
	})
	require.NoError(t, err)

	p, err := d.Partition("g")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, p.Order)
}

func TestPartitionSkipsMissingGroupValues(t *testing.T) {
	d, err := New([]Series{
		{Name: "x", Nums: []float64{1, 2, 3}},
		{Name: "g", Nums: []float64{1, 0, 1}, Missing: []bool{false, true, false}},
	})
	require.NoError(t, err)

	p, err := d.Partition("g")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Size())
	assert.Equal(t, []string{"1"}, p.Order)
}

func TestNumericRowsListwiseDeletion(t *testing.T) {
	d, err := New([]Series{
		{Name: "a", Nums: []float64{1, 2, 3}, Missing: []bool{false, true, false}},
		{Name: "b", Nums: []float64{4, 5, 6}},
	})
	require.NoError(t, err)

	rows, kept, err := d.NumericRows([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 4}, {3, 6}}, rows)
	assert.Equal(t, []int{0, 2}, kept)
}

func TestSignatureTracksShape(t *testing.T) {
	d := sample(t)
	same := sample(t)
	assert.Equal(t, d.Signature(), same.Signature())

	filtered, err := d.Filter(Cmp{Col: "Grade", Op: OpEq, Num: 2, IsNum: true})
	require.NoError(t, err)
	assert.NotEqual(t, d.Signature(), filtered.Signature())
}

func TestSignatureTracksContent(t *testing.T) {
	// Two filters keeping the same number of different rows must not
	// collide.
	d := sample(t)
	grade2, err := d.Filter(Cmp{Col: "Grade", Op: OpEq, Num: 2, IsNum: true})
	require.NoError(t, err)
	grade3Up, err := d.Filter(Cmp{Col: "Grade", Op: OpGe, Num: 3, IsNum: true})
	require.NoError(t, err)

	require.Equal(t, grade2.Len(), grade3Up.Len())
	require.Equal(t, grade2.Columns(), grade3Up.Columns())
	assert.NotEqual(t, grade2.Signature(), grade3Up.Signature())
}
