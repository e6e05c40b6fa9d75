package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"geoloc/internal/app"
	"geoloc/internal/auth"
	"geoloc/internal/form"
	"geoloc/internal/httpapi"
	"geoloc/internal/models"
	"geoloc/internal/notify"
	"geoloc/internal/realtime"
	"geoloc/pkg/graceful"
	"geoloc/pkg/kafkaclient"

	"github.com/spf13/cobra"
)

var initSchema bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local map API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&initSchema, "init-schema", false, "Create the places tables when DATABASE_URL is set")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := graceful.Context(cmd.Context())
	defer cancel()

	b := loadBackend(ctx)
	defer b.Close()

	if initSchema && b.pg != nil {
		if err := b.pg.InitSchema(ctx); err != nil {
			return err
		}
	}
	b.syncProfiles(ctx)

	queue := notify.NewQueue(100)
	notifier := notify.Fanout{notify.Log{}, queue}

	authStore := auth.NewStore(b.client, notifier, auth.Options{SiteURL: b.cfg.Site()})
	if err := authStore.Init(ctx); err != nil {
		log.Printf("Starting signed out: %v", err)
	}
	defer authStore.Close()

	var (
		opts   []app.Option
		events <-chan models.PlaceEvent
	)
	if b.cfg.KafkaEnabled() {
		producer := kafkaclient.NewProducer(b.cfg.KafkaTopic, b.cfg.KafkaBroker)
		defer producer.Close()
		opts = append(opts, app.WithPublisher(realtime.NewPublisher(producer)))

		consumer := b.feedConsumer(false)
		consumer.StartConsuming(ctx)
		defer consumer.Stop()
		events = realtime.NewFeed(consumer).Events(ctx)
	}

	a := app.New(b.places, authStore, notifier, opts...)
	if err := a.FetchPlaces(ctx); err != nil {
		log.Printf("Initial load failed: %v", err)
	}
	if events != nil {
		go a.Watch(ctx, events)
	}

	deps := httpapi.Deps{
		App:           a,
		Auth:          authStore,
		Form:          form.New(notifier),
		Notifications: queue,
	}
	// A nil *location.Client must not become a non-nil interface.
	if g := b.geocoder(); g != nil {
		deps.Geocoder = g
	}
	return listen(ctx, b.cfg.HTTPAddr, httpapi.New(deps).Handler())
}

func listen(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Println("Shutting down HTTP server...")
	return graceful.Shutdown(10*time.Second, srv.Shutdown)
}
