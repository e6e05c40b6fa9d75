package app

import "geoloc/internal/models"

// Stats are the figures shown under the map.
type Stats struct {
	TotalPlaces     int     `json:"total_places"`
	MeanRating      float64 `json:"mean_rating"`
	DistinctAuthors int     `json:"distinct_authors"`
}

func ComputeStats(places []models.Place) Stats {
	return Stats{
		TotalPlaces:     TotalPlaces(places),
		MeanRating:      MeanRating(places),
		DistinctAuthors: DistinctAuthors(places),
	}
}

func TotalPlaces(places []models.Place) int {
	return len(places)
}

// MeanRating averages ratings over every place, counting unrated places as 0.
// It is 0 for an empty list.
func MeanRating(places []models.Place) float64 {
	if len(places) == 0 {
		return 0
	}
	sum := 0
	for _, p := range places {
		if p.Rating != nil {
			sum += *p.Rating
		}
	}
	return float64(sum) / float64(len(places))
}

// DistinctAuthors counts unique author ids.
func DistinctAuthors(places []models.Place) int {
	seen := make(map[string]struct{}, len(places))
	for _, p := range places {
		seen[p.AuthorID] = struct{}{}
	}
	return len(seen)
}
