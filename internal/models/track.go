package models

import "time"

// Track represents the metadata probed from a single audio source.
type Track struct {
	ID              string    `json:"id"`
	Filename        string    `json:"filename"`
	RelativePath    string    `json:"relative_path"`
	Title           string    `json:"title"`
	Artist          *string   `json:"artist,omitempty"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	FilesizeBytes   int64     `json:"filesize_bytes"`
	ModifiedAt      time.Time `json:"modified_at"`
}
