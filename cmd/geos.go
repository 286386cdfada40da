package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/censusview/internal/geostore"
)

var geosState string

var geosCmd = &cobra.Command{
	Use:   "geos",
	Short: "List known states, or counties within a state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := geostore.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if geosState == "" {
			states, err := store.States(cmd.Context())
			if err != nil {
				return err
			}
			for _, state := range states {
				fmt.Println(state)
			}
			return nil
		}

		counties, err := store.Counties(cmd.Context(), geosState)
		if err != nil {
			return err
		}
		for _, county := range counties {
			fmt.Printf("%s, %s\n", county, geosState)
		}
		return nil
	},
}

func init() {
	geosCmd.Flags().StringVar(&geosState, "state", "", "list counties in this state")
	rootCmd.AddCommand(geosCmd)
}
