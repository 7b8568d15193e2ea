package main

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/CatalystCode/elastic-osm-tiles/internal/explore"
)

var (
	exploreLat    float64
	exploreLon    float64
	exploreRadius float64
	exploreLimit  int
	exploreTerm   string
	exploreLayer  string
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Run one proximity query from the command line",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("explore"); err != nil {
			return err
		}

		env, err := initEnv()
		if err != nil {
			return err
		}

		req := explore.SpatialDataRequest{
			CurrentLocation: explore.Location{Latitude: exploreLat, Longitude: exploreLon},
			SearchRadius:    exploreRadius,
			Limit:           exploreLimit,
			SearchTerm:      exploreTerm,
			Layer:           exploreLayer,
		}

		var resp *explore.SpatialDataResponse
		if exploreTerm != "" {
			resp, err = env.Service.SearchPOI(cmd.Context(), req, http.Header{})
		} else {
			resp, err = env.Service.Search(cmd.Context(), req, http.Header{})
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	exploreCmd.Flags().Float64Var(&exploreLat, "lat", 0, "latitude of the query point")
	exploreCmd.Flags().Float64Var(&exploreLon, "lon", 0, "longitude of the query point")
	exploreCmd.Flags().Float64Var(&exploreRadius, "radius", 0, "search radius in meters (default from config)")
	exploreCmd.Flags().IntVar(&exploreLimit, "limit", 0, "maximum results (default from config)")
	exploreCmd.Flags().StringVar(&exploreTerm, "term", "", "optional text term for a localized search")
	exploreCmd.Flags().StringVar(&exploreLayer, "layer", "", "restrict results to one source layer, e.g. pois")
	_ = exploreCmd.MarkFlagRequired("lat")
	_ = exploreCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(exploreCmd)
}
