// Package postgres reads and writes places directly in the project database.
package postgres

import (
	"context"
	"fmt"
	"log"

	"geoloc/internal/models"
	"geoloc/internal/placetype"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id           uuid PRIMARY KEY,
	display_name text,
	email        text
);

CREATE TABLE IF NOT EXISTS places (
	id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	name        text NOT NULL CHECK (btrim(name) <> ''),
	type        text NOT NULL DEFAULT 'other',
	rating      smallint CHECK (rating BETWEEN 1 AND 5),
	description text NOT NULL DEFAULT '',
	address     text NOT NULL DEFAULT '',
	latitude    double precision NOT NULL CHECK (latitude BETWEEN -90 AND 90),
	longitude   double precision NOT NULL CHECK (longitude BETWEEN -180 AND 180),
	image       text,
	author_id   uuid,
	created_at  timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS places_created_at_idx ON places (created_at DESC);
`

const placeColumns = `
	p.id::text, p.name, p.type, p.rating, p.description, p.address,
	p.latitude, p.longitude, p.image, p.author_id::text, p.created_at,
	pr.display_name, pr.email, pr.id IS NOT NULL`

const listPlaces = `SELECT` + placeColumns + `
FROM places p
LEFT JOIN profiles pr ON pr.id = p.author_id
ORDER BY p.created_at DESC`

const insertPlace = `WITH p AS (
	INSERT INTO places (name, type, rating, description, address, latitude, longitude, image, author_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING *
)
SELECT` + placeColumns + `
FROM p
LEFT JOIN profiles pr ON pr.id = p.author_id`

// Store is the places table over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Println("Connected to places database")
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// InitSchema creates the tables for a local development database. Hosted
// projects already have them.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func scanPlace(row pgx.Row) (models.Place, error) {
	var (
		p                  models.Place
		image, authorID    *string
		displayName, email *string
		hasProfile         bool
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Type, &p.Rating, &p.Description, &p.Address,
		&p.Latitude, &p.Longitude, &image, &authorID, &p.CreatedAt,
		&displayName, &email, &hasProfile,
	)
	if err != nil {
		return models.Place{}, err
	}
	if image != nil {
		p.Image = *image
	}
	if authorID != nil {
		p.AuthorID = *authorID
	}
	if hasProfile {
		p.Profile = &models.Profile{}
		if displayName != nil {
			p.Profile.DisplayName = *displayName
		}
		if email != nil {
			p.Profile.Email = *email
		}
	}
	return p, nil
}

// ListPlaces returns every place with its author's profile, newest first.
func (s *Store) ListPlaces(ctx context.Context) ([]models.Place, error) {
	rows, err := s.pool.Query(ctx, listPlaces)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	places, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Place, error) {
		return scanPlace(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	return places, nil
}

// CreatePlace inserts p and returns the stored row. The author is required.
func (s *Store) CreatePlace(ctx context.Context, p models.NewPlace) (*models.Place, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.AuthorID == "" {
		return nil, fmt.Errorf("%w: author is required", models.ErrInvalidPlace)
	}
	row := s.pool.QueryRow(ctx, insertPlace,
		p.Name, placetype.Normalize(p.Type), p.Rating, p.Description, p.Address,
		p.Latitude, p.Longitude, p.Image, p.AuthorID,
	)
	created, err := scanPlace(row)
	if err != nil {
		return nil, fmt.Errorf("create place: %w", err)
	}
	return &created, nil
}

// UpsertProfile records the name shown for an author.
func (s *Store) UpsertProfile(ctx context.Context, u models.User) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO profiles (id, display_name, email) VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, email = EXCLUDED.email`,
		u.ID, u.DisplayName, u.Email)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", u.ID, err)
	}
	return nil
}
