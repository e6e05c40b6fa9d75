package enrich

import (
	"context"
	"fmt"
	"time"

	"geoloc/internal/models"
	"geoloc/internal/placetype"
)

// Geocoder turns coordinates into a postal address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

func ResolveAuthor(_ context.Context, rec *models.ArchivedPlace) error {
	if rec.AuthorName == "" {
		rec.AuthorName = models.AuthorName(rec.Profile)
	}
	return nil
}

func DescribeType(_ context.Context, rec *models.ArchivedPlace) error {
	d := placetype.Lookup(rec.Type)
	rec.Type = d.Value
	rec.TypeLabel = d.Label
	rec.TypeColor = d.Color
	return nil
}

// FillAddress reverse-geocodes places saved without an address.
func FillAddress(g Geocoder) Step[models.ArchivedPlace] {
	return func(ctx context.Context, rec *models.ArchivedPlace) error {
		if g == nil || rec.Address != "" {
			return nil
		}
		addr, err := g.Reverse(ctx, rec.Latitude, rec.Longitude)
		if err != nil {
			return fmt.Errorf("address for place %s: %w", rec.ID, err)
		}
		rec.Address = addr
		return nil
	}
}

func Stamp(now func() time.Time) Step[models.ArchivedPlace] {
	return func(_ context.Context, rec *models.ArchivedPlace) error {
		rec.ArchivedAt = now().UTC()
		return nil
	}
}

// ArchivePipeline derives the archive fields of a place. g may be nil.
func ArchivePipeline(g Geocoder, now func() time.Time) *Pipeline[models.ArchivedPlace] {
	return NewPipeline(
		NewStage(ResolveAuthor, DescribeType, FillAddress(g)),
		NewStage(Stamp(now)),
	)
}

// Records streams places as archive records.
func Records(ctx context.Context, places []models.Place) <-chan *models.ArchivedPlace {
	out := make(chan *models.ArchivedPlace)
	go func() {
		defer close(out)
		for _, p := range places {
			select {
			case out <- &models.ArchivedPlace{Place: p}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
