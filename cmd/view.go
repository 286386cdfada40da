package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/censusview/internal/census"
	"github.com/sells-group/censusview/internal/view"
)

var (
	viewCounties []string
	viewVarIDs   []string
	viewFormat   string
	viewOutput   string
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Fetch and print census data for selected counties",
	Long: `Fetches ACS data for the selected counties and variables, applies the
configured column transforms, and writes the result.

Counties are given as "State:County Name" pairs; variables by their catalog
id (see the vars command).

Examples:
  censusview view --county "Pennsylvania:Allegheny County" --var 0 --var 2
  censusview view --county "Ohio:Cuyahoga County" --var 1 --format csv -o out.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		geos, err := parseCounties(viewCounties)
		if err != nil {
			return err
		}

		e, err := initEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		out := os.Stdout
		if viewOutput != "" {
			f, err := os.Create(viewOutput)
			if err != nil {
				return eris.Wrap(err, "view: create output file")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		switch viewFormat {
		case "csv":
			f, err := e.Viewer.Formatted(cmd.Context(), geos, viewVarIDs)
			if err != nil {
				return err
			}
			return view.WriteCSV(out, f)
		case "xlsx":
			f, err := e.Viewer.Formatted(cmd.Context(), geos, viewVarIDs)
			if err != nil {
				return err
			}
			return view.WriteXLSX(out, f)
		case "table":
			dict, cols, err := e.Viewer.DictView(cmd.Context(), geos, viewVarIDs)
			if err != nil {
				return err
			}
			printDict(out, dict, cols)
			return nil
		default:
			return eris.Errorf("view: unknown format %q (want table, csv, or xlsx)", viewFormat)
		}
	},
}

// parseCounties splits "State:County Name" selection flags.
func parseCounties(pairs []string) ([]census.Geography, error) {
	geos := make([]census.Geography, 0, len(pairs))
	for _, pair := range pairs {
		state, county, ok := strings.Cut(pair, ":")
		if !ok || state == "" || county == "" {
			return nil, eris.Errorf("view: bad county selector %q (want State:County Name)", pair)
		}
		geos = append(geos, census.Geography{
			State:  strings.TrimSpace(state),
			County: strings.TrimSpace(county),
		})
	}
	return geos, nil
}

func printDict(out *os.File, dict map[string][][]any, cols []string) {
	fmt.Fprintln(out, strings.Join(cols, "\t"))
	for _, cat := range view.SortedCategories(dict) {
		if cat != "" {
			fmt.Fprintf(out, "-- %s --\n", cat)
		}
		for _, row := range dict[cat] {
			parts := make([]string, 0, len(row))
			for _, cell := range row {
				parts = append(parts, fmt.Sprint(cell))
			}
			fmt.Fprintln(out, strings.Join(parts, "\t"))
		}
	}
}

func init() {
	viewCmd.Flags().StringArrayVar(&viewCounties, "county", nil, `county selector "State:County Name" (repeatable)`)
	viewCmd.Flags().StringArrayVar(&viewVarIDs, "var", nil, "catalog variable id (repeatable)")
	viewCmd.Flags().StringVar(&viewFormat, "format", "table", "output format: table, csv, or xlsx")
	viewCmd.Flags().StringVarP(&viewOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(viewCmd)
}
