package census

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/censusview/internal/geostore"
	"github.com/sells-group/censusview/internal/table"
)

// UpstreamError marks a failed query against the ACS API. Any job failing
// fails the whole fetch; there is no partial-result degradation.
type UpstreamError struct {
	State string
	Type  TableType
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("census: query state %s %s tables: %v", e.State, e.Type, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Geography is one user-selected county.
type Geography struct {
	State  string `json:"state"`
	County string `json:"county"`
}

// Key returns the "County Name, State Name" row key used throughout.
func (g Geography) Key() string { return g.County + ", " + g.State }

// Engine fetches raw county data for a set of counties and variable codes.
type Engine struct {
	store   *geostore.Store
	client  *Client
	workers int
}

// NewEngine creates a fetch engine backed by the given lookup store and
// API client. workers bounds concurrent upstream queries.
func NewEngine(store *geostore.Store, client *Client, workers int) *Engine {
	if workers <= 0 {
		workers = 4
	}
	return &Engine{store: store, client: client, workers: workers}
}

type job struct {
	state     string
	stateFIPS string
	typ       TableType
	codes     []string
}

// Fetch retrieves the requested variables for the requested counties.
//
// The upstream API cannot cheaply fetch an arbitrary county subset, so the
// engine queries every county of each involved state, one query per
// (state, table type) pair, merges per-state results horizontally, stacks
// states vertically, and only then filters down to the requested counties.
// Counties absent from upstream results are silently dropped; the caller
// must tolerate fewer rows than requested.
func (e *Engine) Fetch(ctx context.Context, geos []Geography, codes []string) (*table.Table, error) {
	log := zap.L().With(zap.String("component", "census.engine"))

	groups, err := partition(codes)
	if err != nil {
		return nil, err
	}

	// Distinct states in first-seen order.
	var states []string
	seen := make(map[string]bool)
	for _, g := range geos {
		if !seen[g.State] {
			seen[g.State] = true
			states = append(states, g.State)
		}
	}

	var jobs []job
	for _, state := range states {
		fips, err := e.store.StateFIPS(ctx, state)
		if err != nil {
			return nil, err
		}
		for _, typ := range orderedTypes {
			if len(groups[typ]) == 0 {
				continue
			}
			jobs = append(jobs, job{state: state, stateFIPS: fips, typ: typ, codes: groups[typ]})
		}
	}

	log.Debug("fetching",
		zap.Int("counties", len(geos)),
		zap.Int("variables", len(codes)),
		zap.Int("jobs", len(jobs)),
	)

	// Jobs are independent; each writes only its own slot.
	results := make([]*table.Table, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			t, err := e.client.QueryCounties(gctx, j.typ, j.stateFIPS, j.codes)
			if err != nil {
				return &UpstreamError{State: j.state, Type: j.typ, Err: err}
			}
			results[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Horizontal merge within a state, vertical concat across states. Both
	// steps are order-independent over the row set, so job completion
	// order does not matter.
	combined := table.New()
	for _, state := range states {
		var merged *table.Table
		for i, j := range jobs {
			if j.state != state {
				continue
			}
			merged = table.Merge(merged, results[i])
		}
		if merged != nil {
			combined.Append(merged)
		}
	}

	keys := make([]string, 0, len(geos))
	for _, geo := range geos {
		keys = append(keys, geo.Key())
	}
	filtered := combined.Filter(keys)

	if filtered.Len() < len(geos) {
		log.Warn("upstream returned fewer counties than requested",
			zap.Int("requested", len(geos)),
			zap.Int("returned", filtered.Len()),
		)
	}
	return filtered, nil
}
