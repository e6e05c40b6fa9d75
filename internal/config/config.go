// Package config decodes the application settings from the environment.
package config

import (
	"strings"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// Supabase
	SupabaseURL       string `envconfig:"SUPABASE_URL" required:"true"`
	SupabaseAnonKey   string `envconfig:"SUPABASE_ANON_KEY" required:"true"`
	SupabaseJWTSecret string `envconfig:"SUPABASE_JWT_SECRET"`
	SessionFile       string `envconfig:"SESSION_FILE" default:".geoloc-session.json"`
	// DB, replaces the PostgREST place calls when set
	DatabaseURL string `envconfig:"DATABASE_URL"`
	// Network
	HTTPAddr string `envconfig:"HTTP_ADDR" default:"127.0.0.1:8080"`
	SiteURL  string `envconfig:"SITE_URL"`
	// Kafka
	KafkaBroker  string `envconfig:"KAFKA_BROKER"`
	KafkaTopic   string `envconfig:"KAFKA_TOPIC" default:"places"`
	KafkaGroupID string `envconfig:"KAFKA_GROUP_ID" default:"geoloc"`
	// MinIO
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	ArchiveBucket  string `envconfig:"ARCHIVE_BUCKET" default:"geoloc-places"`
	// Nominatim
	GeocoderURL string `envconfig:"GEOCODER_URL"`
}

func Load() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	return c, err
}

// Site is the public base URL used in auth email redirects. It defaults to
// the HTTP listen address.
func (c App) Site() string {
	if c.SiteURL != "" {
		return strings.TrimRight(c.SiteURL, "/")
	}
	return "http://" + c.HTTPAddr
}

func (c App) KafkaEnabled() bool {
	return c.KafkaBroker != ""
}

// InstanceGroupID is a consumer group owned by this process alone. Members of
// one group split the topic's partitions, so a process that must see every
// place event cannot share KafkaGroupID.
func (c App) InstanceGroupID() string {
	return c.KafkaGroupID + "-" + uuid.NewString()
}

func (c App) ArchiveEnabled() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != ""
}
