// Package viewer wires the lookup store, variable catalog, fetch engine,
// transform, and view stages into the request-level operations the serving
// layer calls.
package viewer

import (
	"context"

	"github.com/sells-group/censusview/internal/catalog"
	"github.com/sells-group/censusview/internal/census"
	"github.com/sells-group/censusview/internal/transform"
	"github.com/sells-group/censusview/internal/view"
)

// Viewer serves census data views for user selections. All fields are
// initialized once at process start and read-only afterwards, so a Viewer
// is safe for concurrent requests.
type Viewer struct {
	catalog *catalog.Catalog
	engine  *census.Engine
}

// New creates a Viewer.
func New(cat *catalog.Catalog, engine *census.Engine) *Viewer {
	return &Viewer{catalog: cat, engine: engine}
}

// Catalog exposes the variable catalog for selection widgets.
func (v *Viewer) Catalog() *catalog.Catalog { return v.catalog }

// Formatted resolves variable ids, fetches raw data for the selected
// counties, and applies the catalog transforms. Unmatched ids are silently
// skipped; counties missing upstream are silently dropped from the result.
func (v *Viewer) Formatted(ctx context.Context, geos []census.Geography, varIDs []string) (*transform.Formatted, error) {
	defs := v.catalog.ResolveIDs(varIDs)

	var codes []string
	for _, def := range defs {
		codes = append(codes, def.Vars...)
	}

	raw, err := v.engine.Fetch(ctx, geos, codes)
	if err != nil {
		return nil, err
	}
	return transform.Apply(raw, defs)
}

// DictView builds the category-grouped display view plus its column
// headers. With no counties selected it returns the documented placeholder
// view instead of an empty table.
func (v *Viewer) DictView(ctx context.Context, geos []census.Geography, varIDs []string) (map[string][][]any, []string, error) {
	if len(geos) == 0 {
		return view.EmptyDict(), view.EmptyColumns(), nil
	}

	f, err := v.Formatted(ctx, geos, varIDs)
	if err != nil {
		return nil, nil, err
	}

	labels := make([]string, 0, len(geos))
	for _, g := range geos {
		labels = append(labels, g.Key())
	}
	return view.Dict(f), view.ColumnNames(labels), nil
}
