package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"geoloc/internal/app"
	"geoloc/internal/mapview"
	"geoloc/internal/placetype"

	"github.com/spf13/cobra"
)

var placeType string

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "List places, newest first",
	RunE:  runPlaces,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the place count, mean rating and author count",
	RunE:  runStats,
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the place categories",
	RunE:  runTypes,
}

func init() {
	placesCmd.Flags().StringVarP(&placeType, "type", "t", "", "Only list places of this type")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runPlaces(cmd *cobra.Command, args []string) error {
	if placeType != "" && !placetype.Valid(placeType) {
		return fmt.Errorf("unknown place type %q", placeType)
	}
	b := loadBackend(cmd.Context())
	defer b.Close()

	places, err := b.fetchPlaces(cmd.Context())
	if err != nil {
		return err
	}
	if placeType != "" {
		filtered := places[:0]
		for _, p := range places {
			if placetype.Normalize(p.Type) == placeType {
				filtered = append(filtered, p)
			}
		}
		places = filtered
	}
	if outputJSON {
		return printJSON(places)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tRATING\tAUTHOR\tLAT\tLNG\tADDED")
	for _, p := range places {
		rating := "-"
		if p.Rating != nil {
			rating = mapview.Stars(*p.Rating)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Name, placetype.Lookup(p.Type).Label, rating, p.AuthorName,
			strconv.FormatFloat(p.Latitude, 'f', 5, 64), strconv.FormatFloat(p.Longitude, 'f', 5, 64),
			p.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runStats(cmd *cobra.Command, args []string) error {
	b := loadBackend(cmd.Context())
	defer b.Close()

	places, err := b.fetchPlaces(cmd.Context())
	if err != nil {
		return err
	}
	stats := app.ComputeStats(places)
	if outputJSON {
		return printJSON(stats)
	}
	fmt.Printf("Places:  %d\n", stats.TotalPlaces)
	fmt.Printf("Rating:  %.1f\n", stats.MeanRating)
	fmt.Printf("Authors: %d\n", stats.DistinctAuthors)
	return nil
}

// runTypes needs no backend.
func runTypes(cmd *cobra.Command, args []string) error {
	types := placetype.All()
	if outputJSON {
		return printJSON(types)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VALUE\tLABEL\tCOLOR")
	for _, d := range types {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Value, d.Label, d.Color)
	}
	return w.Flush()
}
