package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/censusview/internal/geostore"
)

var cachegeosOutput string

var cachegeosCmd = &cobra.Command{
	Use:   "cachegeos",
	Short: "Build the geography snapshot from the Census API",
	Long: `Enumerates every state and its counties from the ACS geography endpoints
and writes the name-to-FIPS snapshot the viewer reads at serve time. Run
this once before first serve, and again when the Census Bureau revises
county definitions.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := cachegeosOutput
		if path == "" {
			path = cfg.Store.Path
		}

		zap.L().Info("building geography snapshot", zap.String("path", path))
		return geostore.Build(cmd.Context(), path, newClient())
	},
}

func init() {
	cachegeosCmd.Flags().StringVarP(&cachegeosOutput, "output", "o", "", "snapshot path (default from config)")
	rootCmd.AddCommand(cachegeosCmd)
}
