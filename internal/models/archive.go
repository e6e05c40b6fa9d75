package models

import "time"

// ArchivedPlace is the export record of a place, with the fields a reader of
// the archive would otherwise have to derive.
type ArchivedPlace struct {
	Place
	TypeLabel  string    `json:"type_label"`
	TypeColor  string    `json:"type_color"`
	ArchivedAt time.Time `json:"archived_at"`
}
