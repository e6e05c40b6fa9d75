package main

import (
	"context"
	"log"

	"geoloc/internal/app"
	"geoloc/internal/config"
	"geoloc/internal/env"
	"geoloc/internal/models"
	"geoloc/internal/notify"
	"geoloc/internal/store/postgres"
	"geoloc/pkg/kafkaclient"
	"geoloc/pkg/location"
	"geoloc/pkg/supabase"
)

// backend is the wired-up set of clients every command starts from.
type backend struct {
	cfg    config.App
	client *supabase.Client
	places app.PlaceStore
	pg     *postgres.Store
}

// loadBackend reads the configuration and connects. Missing Supabase
// settings end the process.
func loadBackend(ctx context.Context) *backend {
	if err := env.LoadEnv(envFiles...); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Missing configuration: %v", err)
	}

	client, err := supabase.New(supabase.Config{
		URL:       cfg.SupabaseURL,
		AnonKey:   cfg.SupabaseAnonKey,
		JWTSecret: cfg.SupabaseJWTSecret,
		Storage:   supabase.NewFileStorage(cfg.SessionFile),
	})
	if err != nil {
		log.Fatalf("Failed to create Supabase client: %v", err)
	}

	b := &backend{cfg: cfg, client: client, places: client}
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		b.pg = pg
		b.places = pg
	}
	return b
}

func (b *backend) Close() {
	if b.pg != nil {
		b.pg.Close()
	}
}

// geocoder returns the reverse geocoder, or nil when none is configured.
func (b *backend) geocoder() *location.Client {
	if b.cfg.GeocoderURL == "" {
		return nil
	}
	return location.NewClient(b.cfg.GeocoderURL)
}

// fetchPlaces loads the list once through the orchestrator so author names
// are derived the same way the UI does.
func (b *backend) fetchPlaces(ctx context.Context) ([]models.Place, error) {
	a := app.New(b.places, b.client, notify.Log{})
	if err := a.FetchPlaces(ctx); err != nil {
		return nil, err
	}
	return a.Snapshot().Places, nil
}

// syncProfiles keeps the profiles table current for users signing in while
// places are stored directly in Postgres.
func (b *backend) syncProfiles(ctx context.Context) {
	if b.pg == nil {
		return
	}
	events, unsubscribe := b.client.Subscribe()
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				if e.Kind != models.SignedIn || e.Session == nil {
					continue
				}
				if err := b.pg.UpsertProfile(ctx, e.Session.User); err != nil {
					log.Printf("Failed to sync profile: %v", err)
				}
			}
		}
	}()
}

// feedConsumer subscribes to the place feed. Shared consumers join the
// configured group and split the events with its other members; the rest get
// a group of their own and see every event written from now on.
func (b *backend) feedConsumer(shared bool) *kafkaclient.KafkaConsumer {
	if shared {
		log.Printf("Connecting to Kafka broker: %s on topic: %s with group ID: %s", b.cfg.KafkaBroker, b.cfg.KafkaTopic, b.cfg.KafkaGroupID)
		return kafkaclient.NewKafkaConsumer(b.cfg.KafkaTopic, b.cfg.KafkaGroupID, b.cfg.KafkaBroker)
	}
	groupID := b.cfg.InstanceGroupID()
	log.Printf("Connecting to Kafka broker: %s on topic: %s with group ID: %s", b.cfg.KafkaBroker, b.cfg.KafkaTopic, groupID)
	return kafkaclient.NewTailConsumer(b.cfg.KafkaTopic, groupID, b.cfg.KafkaBroker)
}
