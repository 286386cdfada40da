// Package geostore provides read-only lookups from human-readable state and
// county names to the FIPS codes the Census API requires. The backing
// snapshot is a small SQLite database built offline by the cachegeos
// command; the serving path never mutates it.
package geostore

import (
	"context"
	"database/sql"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	_ "modernc.org/sqlite"
)

// ErrNotFound marks an unknown state or (state, county) pair.
var ErrNotFound = eris.New("geostore: not found")

// Store is a read-only geography lookup store. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens the snapshot at path read-only. It fails if the file does not
// exist; run cachegeos first to build it.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "geostore: snapshot %s not found (run cachegeos to build it)", path)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, eris.Wrap(err, "geostore: open")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// States returns all state names, ordered as stored.
func (s *Store) States(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state FROM states`)
	if err != nil {
		return nil, eris.Wrap(err, "geostore: list states")
	}
	defer rows.Close()

	var states []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "geostore: scan state")
		}
		states = append(states, name)
	}
	return states, eris.Wrap(rows.Err(), "geostore: iterate states")
}

// Counties returns the county names within a state. Unknown states return
// ErrNotFound rather than an empty list.
func (s *Store) Counties(ctx context.Context, state string) ([]string, error) {
	if err := s.checkState(ctx, state); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT county FROM counties WHERE state = ? ORDER BY county`, state)
	if err != nil {
		return nil, eris.Wrapf(err, "geostore: list counties for %s", state)
	}
	defer rows.Close()

	var counties []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "geostore: scan county")
		}
		counties = append(counties, name)
	}
	return counties, eris.Wrap(rows.Err(), "geostore: iterate counties")
}

// Choice is one selectable county with its "County, State" display label.
type Choice struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// StateChoices groups a state's county choices for selection widgets.
type StateChoices struct {
	State    string   `json:"state"`
	Counties []Choice `json:"counties"`
}

// CountyChoices returns every county grouped by state, states and counties
// both alphabetized, each county labeled "County, State". Feeds the
// county-selection widget.
func (s *Store) CountyChoices(ctx context.Context) ([]StateChoices, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, county FROM counties`)
	if err != nil {
		return nil, eris.Wrap(err, "geostore: list all counties")
	}
	defer rows.Close()

	byState := make(map[string][]string)
	for rows.Next() {
		var state, county string
		if err := rows.Scan(&state, &county); err != nil {
			return nil, eris.Wrap(err, "geostore: scan county choice")
		}
		byState[state] = append(byState[state], county)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "geostore: iterate county choices")
	}

	coll := collate.New(language.AmericanEnglish)
	states := make([]string, 0, len(byState))
	for state := range byState {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return coll.CompareString(states[i], states[j]) < 0 })

	out := make([]StateChoices, 0, len(states))
	for _, state := range states {
		counties := byState[state]
		sort.Slice(counties, func(i, j int) bool { return coll.CompareString(counties[i], counties[j]) < 0 })

		choices := make([]Choice, 0, len(counties))
		for _, county := range counties {
			label := county + ", " + state
			choices = append(choices, Choice{Label: label, Value: label})
		}
		out = append(out, StateChoices{State: state, Counties: choices})
	}
	return out, nil
}

// StateFIPS resolves a state name to its FIPS code.
func (s *Store) StateFIPS(ctx context.Context, state string) (string, error) {
	var fips string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_fips FROM states WHERE state = ?`, state).Scan(&fips)
	if err == sql.ErrNoRows {
		return "", eris.Wrapf(ErrNotFound, "state %q", state)
	}
	if err != nil {
		return "", eris.Wrapf(err, "geostore: state fips for %s", state)
	}
	return NormalizeStateFIPS(fips), nil
}

// CountyFIPS resolves a (state, county) name pair to the county FIPS code.
// County names are only unique within a state, so both are required.
func (s *Store) CountyFIPS(ctx context.Context, state, county string) (string, error) {
	var fips string
	err := s.db.QueryRowContext(ctx,
		`SELECT county_fips FROM counties WHERE state = ? AND county = ?`, state, county).Scan(&fips)
	if err == sql.ErrNoRows {
		return "", eris.Wrapf(ErrNotFound, "county %q, %q", county, state)
	}
	if err != nil {
		return "", eris.Wrapf(err, "geostore: county fips for %s, %s", county, state)
	}
	return NormalizeCountyFIPS(fips), nil
}

func (s *Store) checkState(ctx context.Context, state string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM states WHERE state = ?`, state).Scan(&one)
	if err == sql.ErrNoRows {
		return eris.Wrapf(ErrNotFound, "state %q", state)
	}
	return eris.Wrapf(err, "geostore: check state %s", state)
}
