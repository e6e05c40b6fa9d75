package keys

import (
	"fmt"
	"strings"
)

const PlacePrefix = "places/"

// sanitizeKey lowercases s, turns spaces into hyphens and drops path
// separators so a value cannot leave its key segment.
func sanitizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "..", "")
	return s
}

// Place returns the archive object key for a place of the given type.
func Place(placeType, id string) string {
	return fmt.Sprintf("%s%s/%s.json", PlacePrefix, sanitizeKey(placeType), sanitizeKey(id))
}

// TypePrefix is the key prefix shared by every place of placeType.
func TypePrefix(placeType string) string {
	return PlacePrefix + sanitizeKey(placeType) + "/"
}
