package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/geo"
)

var geometryGeoJSON bool

var geometryCmd = &cobra.Command{
	Use:   "geometry [WKT]",
	Short: "Show the coordinates, bounds and center a WKT geometry projects to",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGeometry,
}

type geometryReport struct {
	Coords []geo.Coord  `json:"coords"`
	Center geo.Coord    `json:"center"`
	Bounds [2]geo.Coord `json:"bounds"`
}

func runGeometry(cmd *cobra.Command, args []string) error {
	coords := geo.ParseWKT(strings.Join(args, " "))
	if len(coords) == 0 {
		return errors.New("no coordinates found")
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	if geometryGeoJSON {
		return enc.Encode(geojson.NewFeature(geo.Geometry(coords)))
	}

	bound := geo.Bound(coords)
	report := geometryReport{
		Coords: coords,
		Center: geo.Center(coords),
		Bounds: [2]geo.Coord{geo.FromPoint(bound.Min), geo.FromPoint(bound.Max)},
	}
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode geometry: %w", err)
	}
	return nil
}

func init() {
	geometryCmd.Flags().BoolVar(&geometryGeoJSON, "geojson", false, "Print a GeoJSON feature instead")
	rootCmd.AddCommand(geometryCmd)
}
