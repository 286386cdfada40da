package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/censusview/internal/catalog"
)

var varsCmd = &cobra.Command{
	Use:   "vars",
	Short: "List available variables by category",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, err := catalog.Load(cfg.Catalog.Path)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, group := range cat.Groups() {
			fmt.Fprintf(w, "%s\n", group.Category)
			for _, choice := range group.Choices {
				fmt.Fprintf(w, "  %d\t%s\t%s\n", choice.ID, choice.Name, choice.Description)
			}
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(varsCmd)
}
