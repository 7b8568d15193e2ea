package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CatalystCode/elastic-osm-tiles/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "elastic-osm-tiles",
	Short: "Proximity search over OpenStreetMap vector tiles",
	Long:  "Serves geospatial proximity queries backed by a write-through Elasticsearch cache of OpenStreetMap vector tiles.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
