package table

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndValue(t *testing.T) {
	tbl := New("B01001_001E")
	tbl.Set("Allegheny County, Pennsylvania", "B01001_001E", 1216045)

	v, ok := tbl.Value("Allegheny County, Pennsylvania", "B01001_001E")
	require.True(t, ok)
	assert.Equal(t, float64(1216045), v)

	_, ok = tbl.Value("Allegheny County, Pennsylvania", "B02001_001E")
	assert.False(t, ok)
	_, ok = tbl.Value("Erie County, Pennsylvania", "B01001_001E")
	assert.False(t, ok)
}

func TestMergeOuterJoin(t *testing.T) {
	a := New()
	a.Set("Allegheny County, Pennsylvania", "B01001_001E", 1)
	a.Set("Erie County, Pennsylvania", "B01001_001E", 2)

	b := New()
	b.Set("Allegheny County, Pennsylvania", "S1701_C01_001E", 3)
	b.Set("Butler County, Pennsylvania", "S1701_C01_001E", 4)

	m := Merge(a, b)
	assert.Equal(t, 3, m.Len())
	assert.True(t, m.HasColumn("B01001_001E"))
	assert.True(t, m.HasColumn("S1701_C01_001E"))

	v, ok := m.Value("Allegheny County, Pennsylvania", "S1701_C01_001E")
	require.True(t, ok)
	assert.Equal(t, float64(3), v)

	// Butler has no detail-table column.
	_, ok = m.Value("Butler County, Pennsylvania", "B01001_001E")
	assert.False(t, ok)
}

func TestMergeCommutative(t *testing.T) {
	a := New()
	a.Set("Allegheny County, Pennsylvania", "B01001_001E", 1)
	a.Set("Erie County, Pennsylvania", "B01001_001E", 2)

	b := New()
	b.Set("Erie County, Pennsylvania", "DP05_0001E", 5)

	ab := Merge(a, b)
	ba := Merge(b, a)

	keysAB, keysBA := ab.Keys(), ba.Keys()
	sort.Strings(keysAB)
	sort.Strings(keysBA)
	assert.Equal(t, keysAB, keysBA)

	colsAB, colsBA := ab.Columns(), ba.Columns()
	sort.Strings(colsAB)
	sort.Strings(colsBA)
	assert.Equal(t, colsAB, colsBA)

	for _, key := range keysAB {
		for _, col := range colsAB {
			vAB, okAB := ab.Value(key, col)
			vBA, okBA := ba.Value(key, col)
			assert.Equal(t, okAB, okBA, "%s/%s presence", key, col)
			assert.Equal(t, vAB, vBA, "%s/%s value", key, col)
		}
	}
}

func TestAppendConcatenates(t *testing.T) {
	pa := New()
	pa.Set("Allegheny County, Pennsylvania", "B01001_001E", 1)

	oh := New()
	oh.Set("Cuyahoga County, Ohio", "B01001_001E", 2)

	pa.Append(oh)
	assert.Equal(t, []string{"Allegheny County, Pennsylvania", "Cuyahoga County, Ohio"}, pa.Keys())
}

func TestFilterSubsetsAndReorders(t *testing.T) {
	tbl := New()
	tbl.Set("Erie County, Pennsylvania", "B01001_001E", 2)
	tbl.Set("Allegheny County, Pennsylvania", "B01001_001E", 1)

	got := tbl.Filter([]string{
		"Allegheny County, Pennsylvania",
		"Nowhere County, Pennsylvania", // absent upstream: silently dropped
		"Erie County, Pennsylvania",
	})
	assert.Equal(t, []string{"Allegheny County, Pennsylvania", "Erie County, Pennsylvania"}, got.Keys())
}
