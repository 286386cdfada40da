package geostore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	states   []Area
	counties map[string][]Area
}

func (f *fakeLister) ListStates(context.Context) ([]Area, error) {
	return f.states, nil
}

func (f *fakeLister) ListCounties(_ context.Context, stateFIPS string) ([]Area, error) {
	return f.counties[stateFIPS], nil
}

func buildFixture(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geos.db")

	lister := &fakeLister{
		states: []Area{
			{Name: "Pennsylvania", FIPS: "42"},
			{Name: "Ohio", FIPS: "39"},
		},
		counties: map[string][]Area{
			"42": {
				{Name: "Erie County, Pennsylvania", FIPS: "49"},
				{Name: "Allegheny County, Pennsylvania", FIPS: "3"},
			},
			"39": {
				{Name: "Cuyahoga County, Ohio", FIPS: "35"},
			},
		},
	}
	require.NoError(t, Build(context.Background(), path, lister))

	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func TestOpenMissingSnapshot(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cachegeos")
}

func TestStates(t *testing.T) {
	s := buildFixture(t)
	states, err := s.States(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Pennsylvania", "Ohio"}, states)
}

func TestCounties(t *testing.T) {
	s := buildFixture(t)

	counties, err := s.Counties(context.Background(), "Pennsylvania")
	require.NoError(t, err)
	assert.Equal(t, []string{"Allegheny County", "Erie County"}, counties)

	_, err = s.Counties(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountyChoicesAlphabetized(t *testing.T) {
	s := buildFixture(t)

	choices, err := s.CountyChoices(context.Background())
	require.NoError(t, err)
	require.Len(t, choices, 2)

	assert.Equal(t, "Ohio", choices[0].State)
	assert.Equal(t, "Pennsylvania", choices[1].State)

	pa := choices[1].Counties
	require.Len(t, pa, 2)
	assert.Equal(t, "Allegheny County, Pennsylvania", pa[0].Label)
	assert.Equal(t, "Erie County, Pennsylvania", pa[1].Label)
	assert.Equal(t, pa[0].Label, pa[0].Value)
}

func TestFIPSLookups(t *testing.T) {
	s := buildFixture(t)
	ctx := context.Background()

	fips, err := s.StateFIPS(ctx, "Pennsylvania")
	require.NoError(t, err)
	assert.Equal(t, "42", fips)

	// Builder zero-pads short county codes.
	fips, err = s.CountyFIPS(ctx, "Pennsylvania", "Allegheny County")
	require.NoError(t, err)
	assert.Equal(t, "003", fips)

	_, err = s.StateFIPS(ctx, "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CountyFIPS(ctx, "Ohio", "Allegheny County")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNormalizeFIPS(t *testing.T) {
	assert.Equal(t, "02", NormalizeStateFIPS("2"))
	assert.Equal(t, "42", NormalizeStateFIPS(" 42 "))
	assert.Equal(t, "003", NormalizeCountyFIPS("3"))
	assert.Equal(t, "", NormalizeCountyFIPS(""))
	assert.Equal(t, "42003", CombineFIPS("42", "3"))
	assert.Equal(t, "", CombineFIPS("", "3"))
}

func TestCountyName(t *testing.T) {
	assert.Equal(t, "Allegheny County", CountyName("Allegheny County, Pennsylvania"))
	assert.Equal(t, "Doña Ana County", CountyName("Doña Ana County, New Mexico"))
	assert.Equal(t, "Guam", CountyName("Guam"))
}
