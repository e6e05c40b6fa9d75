// Package storage archives place records in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"geoloc/internal/keys"
	"geoloc/internal/models"
	"geoloc/internal/placetype"
)

const storeWorkers = 8

// Archive writes one JSON object per place. Existing objects are never
// overwritten, so a place is archived as it was first seen.
type Archive struct {
	store  objectStore
	bucket string
}

// NewArchive connects to MinIO. Call EnsureBucket before storing.
func NewArchive(cfg MinioConfig, bucket string) (*Archive, error) {
	s, err := newMinioStore(cfg)
	if err != nil {
		return nil, err
	}
	return &Archive{store: s, bucket: bucket}, nil
}

func (a *Archive) EnsureBucket(ctx context.Context, region string) error {
	if err := a.store.EnsureBucket(ctx, a.bucket, region); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", a.bucket, err)
	}
	return nil
}

// Key is the object key of p.
func Key(p models.Place) string {
	return keys.Place(placetype.Normalize(p.Type), p.ID)
}

// Store writes rec unless its object already exists. It reports whether a
// new object was written.
func (a *Archive) Store(ctx context.Context, rec *models.ArchivedPlace) (bool, error) {
	key := Key(rec.Place)

	exists, err := a.store.Exists(ctx, a.bucket, key)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing object %s: %w", key, err)
	}
	if exists {
		log.Printf("Place %s already archived in bucket '%s'. Ignoring write operation.", rec.ID, a.bucket)
		return false, nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("failed to marshal place %s: %w", rec.ID, err)
	}
	if err := a.store.Put(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return false, fmt.Errorf("failed to store object %s: %w", key, err)
	}
	log.Printf("Archived place '%s' in bucket '%s' with key '%s'", rec.Name, a.bucket, key)
	return true, nil
}

// Result counts the outcome of StoreFromChannel.
type Result struct {
	Stored  int64
	Skipped int64
	Failed  int64
}

// StoreFromChannel archives every record read from in until it is closed.
func (a *Archive) StoreFromChannel(ctx context.Context, in <-chan *models.ArchivedPlace) Result {
	var stored, skipped, failed atomic.Int64
	var wg sync.WaitGroup
	sem := make(chan struct{}, storeWorkers)

	for rec := range in {
		sem <- struct{}{}
		wg.Add(1)
		go func(rec *models.ArchivedPlace) {
			defer wg.Done()
			defer func() { <-sem }()
			ok, err := a.Store(ctx, rec)
			switch {
			case err != nil:
				failed.Add(1)
				log.Printf("Error archiving place '%s': %v", rec.Name, err)
			case ok:
				stored.Add(1)
			default:
				skipped.Add(1)
			}
		}(rec)
	}

	wg.Wait()
	res := Result{Stored: stored.Load(), Skipped: skipped.Load(), Failed: failed.Load()}
	log.Printf("Finished archiving places: stored=%d skipped=%d failed=%d", res.Stored, res.Skipped, res.Failed)
	return res
}

// GetObject reads the record stored at key.
func (a *Archive) GetObject(ctx context.Context, key string) (*models.ArchivedPlace, error) {
	obj, err := a.store.Get(ctx, a.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	var rec models.ArchivedPlace
	if err := json.NewDecoder(obj).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode object %s: %w", key, err)
	}
	return &rec, nil
}

// Get reads the archived record of the place with the given type and id.
func (a *Archive) Get(ctx context.Context, placeType, id string) (*models.ArchivedPlace, error) {
	return a.GetObject(ctx, keys.Place(placetype.Normalize(placeType), id))
}

// Keys lists the archived objects, optionally limited to one place type.
func (a *Archive) Keys(ctx context.Context, placeType string) ([]string, error) {
	prefix := keys.PlacePrefix
	if placeType != "" {
		prefix = keys.TypePrefix(placetype.Normalize(placeType))
	}
	return a.store.List(ctx, a.bucket, prefix)
}
