package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/CatalystCode/elastic-osm-tiles/internal/tiles"
)

var (
	tilesLat    float64
	tilesLon    float64
	tilesRadius float64
	tilesZoom   int
	tilesCached bool
)

var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "Show the tiles covering a point, or the cached-tile inventory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tilesCached {
			return listCachedTiles(cmd)
		}
		if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") {
			return errors.New("either --cached or both --lat and --lon are required")
		}

		zoom := tilesZoom
		if zoom == 0 {
			zoom = cfg.Explore.Zoom
		}
		radius := tilesRadius
		if radius == 0 {
			radius = cfg.Explore.DefaultRadius
		}

		nearby, err := tiles.NearbyTiles(tilesLat, tilesLon, zoom, radius)
		if err != nil {
			return err
		}
		return printTiles(nearby)
	},
}

// listCachedTiles prints every tile currently marked cached in the index,
// decoded from its quadkey.
func listCachedTiles(cmd *cobra.Command) error {
	if err := cfg.Validate("tiles"); err != nil {
		return err
	}

	env, err := initEnv()
	if err != nil {
		return err
	}

	quadKeys, err := env.Store.AllCachedTiles(cmd.Context())
	if err != nil {
		return err
	}

	decoded := make([]tiles.Tile, 0, len(quadKeys))
	for _, qk := range quadKeys {
		t, err := tiles.FromQuadKey(qk)
		if err != nil {
			return err
		}
		decoded = append(decoded, t)
	}
	return printTiles(decoded)
}

func printTiles(ts []tiles.Tile) error {
	out := make([]map[string]interface{}, len(ts))
	for i, t := range ts {
		out[i] = map[string]interface{}{
			"x":       t.X,
			"y":       t.Y,
			"zoom":    t.Zoom,
			"quadkey": t.QuadKey(),
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func init() {
	tilesCmd.Flags().Float64Var(&tilesLat, "lat", 0, "latitude of the query point")
	tilesCmd.Flags().Float64Var(&tilesLon, "lon", 0, "longitude of the query point")
	tilesCmd.Flags().Float64Var(&tilesRadius, "radius", 0, "radius in meters (default from config)")
	tilesCmd.Flags().IntVar(&tilesZoom, "zoom", 0, "zoom level (default from config)")
	tilesCmd.Flags().BoolVar(&tilesCached, "cached", false, "list the cached-tile inventory instead")
	rootCmd.AddCommand(tilesCmd)
}
