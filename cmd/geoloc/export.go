package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"geoloc/internal/enrich"
	"geoloc/internal/models"
	"geoloc/internal/storage"
	"geoloc/pkg/graceful"

	"github.com/spf13/cobra"
)

var (
	exportBucket string
	exportRegion string
	geocodeEmpty bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Archive every place to object storage",
	Long:  `Writes one JSON object per place to the archive bucket under places/<type>/<id>.json. Places already archived are left untouched.`,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportBucket, "bucket", "b", "", "Bucket name (default ARCHIVE_BUCKET)")
	exportCmd.Flags().StringVar(&exportRegion, "region", "", "Region used when the bucket is created")
	exportCmd.Flags().BoolVar(&geocodeEmpty, "geocode", false, "Reverse-geocode places saved without an address")
}

func openArchive(ctx context.Context, b *backend, bucket string) (*storage.Archive, error) {
	if !b.cfg.ArchiveEnabled() {
		return nil, fmt.Errorf("archive needs MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY")
	}
	if bucket == "" {
		bucket = b.cfg.ArchiveBucket
	}
	archive, err := storage.NewArchive(storage.MinioConfig{
		Endpoint:  b.cfg.MinioEndpoint,
		AccessKey: b.cfg.MinioAccessKey,
		SecretKey: b.cfg.MinioSecretKey,
		UseSSL:    b.cfg.MinioUseSSL,
	}, bucket)
	if err != nil {
		return nil, err
	}
	if err := archive.EnsureBucket(ctx, exportRegion); err != nil {
		return nil, err
	}
	return archive, nil
}

// archivePipeline builds the enrichment run before storage.
func archivePipeline(b *backend, geocode bool) *enrich.Pipeline[models.ArchivedPlace] {
	var g enrich.Geocoder
	if geocode {
		if c := b.geocoder(); c != nil {
			g = c
		} else {
			log.Println("GEOCODER_URL not set, archiving without address lookup")
		}
	}
	return enrich.ArchivePipeline(g, time.Now)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := graceful.Context(cmd.Context())
	defer cancel()
	start := time.Now()

	b := loadBackend(ctx)
	defer b.Close()

	archive, err := openArchive(ctx, b, exportBucket)
	if err != nil {
		return err
	}
	places, err := b.fetchPlaces(ctx)
	if err != nil {
		return err
	}

	records := archivePipeline(b, geocodeEmpty).Process(ctx, enrich.Records(ctx, places))
	res := archive.StoreFromChannel(ctx, records)

	fmt.Printf("Archived %d new places, %d already archived, %d failed in %s\n",
		res.Stored, res.Skipped, res.Failed, time.Since(start).Round(time.Millisecond))
	if res.Failed > 0 {
		return fmt.Errorf("%d places could not be archived", res.Failed)
	}
	return nil
}
