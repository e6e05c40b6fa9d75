package main

import (
	"fmt"
	"log"

	"geoloc/internal/enrich"
	"geoloc/internal/models"
	"geoloc/internal/realtime"
	"geoloc/internal/storage"
	"geoloc/pkg/graceful"

	"github.com/spf13/cobra"
)

var watchArchive bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print places as other clients add them",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchArchive, "archive", false, "Archive each new place as it arrives")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := graceful.Context(cmd.Context())
	defer cancel()

	b := loadBackend(ctx)
	defer b.Close()
	if !b.cfg.KafkaEnabled() {
		return fmt.Errorf("watch needs KAFKA_BROKER")
	}

	var pipeline *enrich.Pipeline[models.ArchivedPlace]
	var archive *storage.Archive
	if watchArchive {
		a, err := openArchive(ctx, b, "")
		if err != nil {
			return err
		}
		archive = a
		pipeline = archivePipeline(b, true)
	}

	// Archivers share the configured group so each place is stored once.
	consumer := b.feedConsumer(watchArchive)
	consumer.StartConsuming(ctx)
	defer consumer.Stop()

	for e := range realtime.NewFeed(consumer).Events(ctx) {
		fmt.Printf("%s  %s  place=%s author=%s\n", e.At.Local().Format("15:04:05"), e.Kind, e.PlaceID, e.AuthorID)
		if archive == nil {
			continue
		}

		places, err := b.fetchPlaces(ctx)
		if err != nil {
			continue
		}
		for _, p := range places {
			if p.ID != e.PlaceID {
				continue
			}
			rec := &models.ArchivedPlace{Place: p}
			pipeline.Apply(ctx, rec)
			if _, err := archive.Store(ctx, rec); err != nil {
				log.Printf("Error archiving place %s: %v", p.ID, err)
			}
		}
	}
	log.Println("Watch finished, application exiting.")
	return nil
}
