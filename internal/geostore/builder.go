package geostore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Area is one geography returned by the upstream listing endpoints.
type Area struct {
	Name string
	FIPS string
}

// GeographyLister enumerates states and counties from the upstream API.
// Implemented by census.Client.
type GeographyLister interface {
	ListStates(ctx context.Context) ([]Area, error)
	ListCounties(ctx context.Context, stateFIPS string) ([]Area, error)
}

const builderSchema = `
CREATE TABLE IF NOT EXISTS states (
	state      TEXT NOT NULL PRIMARY KEY,
	state_fips TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS counties (
	state       TEXT NOT NULL REFERENCES states(state),
	county      TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	PRIMARY KEY (state, county)
);
`

// Build populates the geography snapshot at path from the upstream API.
// It is a one-time batch process; the serving path only ever reads the
// result. Existing contents are replaced.
func Build(ctx context.Context, path string, lister GeographyLister) error {
	log := zap.L().With(zap.String("component", "geostore.builder"))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return eris.Wrap(err, "geostore: open snapshot for build")
	}
	defer db.Close() //nolint:errcheck

	if _, err := db.ExecContext(ctx, builderSchema); err != nil {
		return eris.Wrap(err, "geostore: create schema")
	}

	states, err := lister.ListStates(ctx)
	if err != nil {
		return eris.Wrap(err, "geostore: list states")
	}
	log.Info("fetched states", zap.Int("count", len(states)))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "geostore: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range []string{`DELETE FROM counties`, `DELETE FROM states`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "geostore: exec %s", stmt)
		}
	}

	for _, state := range states {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO states (state, state_fips) VALUES (?, ?)`,
			state.Name, NormalizeStateFIPS(state.FIPS),
		); err != nil {
			return eris.Wrapf(err, "geostore: insert state %s", state.Name)
		}

		counties, err := lister.ListCounties(ctx, state.FIPS)
		if err != nil {
			return eris.Wrapf(err, "geostore: list counties for %s", state.Name)
		}

		for _, county := range counties {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO counties (state, county, county_fips) VALUES (?, ?, ?)`,
				state.Name, CountyName(county.Name), NormalizeCountyFIPS(county.FIPS),
			); err != nil {
				return eris.Wrapf(err, "geostore: insert county %s", county.Name)
			}
		}

		log.Debug("cached counties", zap.String("state", state.Name), zap.Int("count", len(counties)))
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "geostore: commit")
	}

	log.Info("snapshot built", zap.String("path", path), zap.Int("states", len(states)))
	return nil
}

// CountyName strips the trailing ", State" component from an upstream
// county display name ("Allegheny County, Pennsylvania" → "Allegheny
// County"). Names without a comma pass through unchanged.
func CountyName(display string) string {
	if i := strings.LastIndex(display, ","); i >= 0 {
		return strings.TrimSpace(display[:i])
	}
	return display
}
