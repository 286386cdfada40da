// Package transform evaluates catalog expressions against raw county data
// and pivots the result into the (variable × county) display shape.
package transform

import (
	"fmt"
	"math"

	"github.com/sells-group/censusview/internal/catalog"
	"github.com/sells-group/censusview/internal/table"
)

// ExpressionError reports a definition whose expression could not be
// evaluated, usually because a referenced variable is missing from the
// fetched data (e.g. the upstream API had no value for any requested
// county).
type ExpressionError struct {
	Definition string
	Detail     string
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("transform: definition %q: %s", e.Definition, e.Detail)
}

// Row is one derived output variable across all selected counties. Values
// align with Formatted.Counties.
type Row struct {
	Name     string
	Category string
	Values   []float64
}

// Formatted is the pivoted result table: one row per derived variable, one
// value column per county.
type Formatted struct {
	Counties []string
	Rows     []Row
}

// Apply evaluates each definition against the raw table and pivots the
// derived columns. Raw source columns do not survive; only derived output
// variables appear in the result. Row order follows definition order;
// county order follows the raw table's row order.
func Apply(raw *table.Table, defs []catalog.Definition) (*Formatted, error) {
	counties := raw.Keys()
	out := &Formatted{Counties: counties, Rows: make([]Row, 0, len(defs))}

	for _, def := range defs {
		expr, err := ParseExpr(def.Definition)
		if err != nil {
			return nil, &ExpressionError{Definition: def.Name, Detail: err.Error()}
		}

		declared := make(map[string]bool, len(def.Vars))
		for _, v := range def.Vars {
			declared[v] = true
		}

		// Every referenced code must be declared in the definition's vars
		// and present in the fetched data.
		for _, ref := range expr.Vars() {
			if !declared[ref] {
				return nil, &ExpressionError{
					Definition: def.Name,
					Detail:     fmt.Sprintf("references %s, which is not in its vars", ref),
				}
			}
			if !raw.HasColumn(ref) {
				return nil, &ExpressionError{
					Definition: def.Name,
					Detail:     fmt.Sprintf("variable %s missing from fetched data", ref),
				}
			}
		}

		values := make([]float64, len(counties))
		env := make(map[string]float64, len(expr.Vars()))
		for i, county := range counties {
			for _, ref := range expr.Vars() {
				if v, ok := raw.Value(county, ref); ok {
					env[ref] = v
				} else {
					env[ref] = math.NaN()
				}
			}
			values[i] = expr.Eval(env)
		}

		out.Rows = append(out.Rows, Row{Name: def.Name, Category: def.Category, Values: values})
	}

	return out, nil
}
