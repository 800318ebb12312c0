package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bus_ticketing/internal/fares"
	"bus_ticketing/internal/models"
)

// stopFile is the YAML layout accepted by `stopctl import`:
//
//	stops:
//	  - name: Kampala
//	    order: 1
//	    distance: 0
//	    price: 0
//	  - name: Mukono
//	    order: 2
//	    distance: 25
//	    price: 5000
//	    eta: 40m
type stopFile struct {
	Stops []struct {
		Name     string  `yaml:"name"`
		Order    int     `yaml:"order"`
		Distance float64 `yaml:"distance"`
		Price    float64 `yaml:"price"`
		ETA      string  `yaml:"eta"`
		Lat      float64 `yaml:"lat"`
		Lng      float64 `yaml:"lng"`
	} `yaml:"stops"`
}

// parseStopFile decodes a stop file into records. Prices are rounded to
// whole minor units; ordering and totals are checked by the import itself.
func parseStopFile(r io.Reader) ([]models.RouteStop, error) {
	var f stopFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("stop file is empty")
		}
		return nil, fmt.Errorf("parse stop file: %w", err)
	}

	rows := make([]models.RouteStop, 0, len(f.Stops))
	for _, s := range f.Stops {
		price, err := fares.MinorUnits(s.Price)
		if err != nil {
			return nil, fmt.Errorf("stop %q: %w", s.Name, err)
		}
		rows = append(rows, models.RouteStop{
			StopName:           s.Name,
			Order:              s.Order,
			DistanceFromOrigin: s.Distance,
			PriceFromOrigin:    price,
			EstimatedTime:      s.ETA,
			Lat:                s.Lat,
			Lng:                s.Lng,
		})
	}
	return rows, nil
}

func newImportCmd(a *app) *cobra.Command {
	var routeID uint
	var file string

	cmd := &cobra.Command{
		Use:   "import --route ID --file stops.yaml",
		Short: "Replace a route's stops from a YAML file",
		Long: `Replaces every stop of a route in one transaction. The new ledger must
start at distance 0 and price 0, use orders 1..N, and end on the route's
total distance and price; otherwise nothing is changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(file)
			if err != nil {
				return err
			}
			defer fh.Close()

			rows, err := parseStopFile(fh)
			if err != nil {
				return err
			}
			saved, err := a.store.ReplaceStops(cmd.Context(), routeID, rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "route %d: %d stops imported\n", routeID, len(saved))
			return nil
		},
	}
	cmd.Flags().UintVar(&routeID, "route", 0, "route id")
	cmd.Flags().StringVar(&file, "file", "", "YAML stop file")
	_ = cmd.MarkFlagRequired("route")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
