package models

import "fmt"

// Rating is the reader's sentiment for the current article.
type Rating string

const (
	RatingNone Rating = ""
	RatingUp   Rating = "up"
	RatingDown Rating = "down"
)

// ParseRating accepts "up", "down" and the empty/"none" value.
func ParseRating(value string) (Rating, error) {
	switch value {
	case "", "none":
		return RatingNone, nil
	case string(RatingUp):
		return RatingUp, nil
	case string(RatingDown):
		return RatingDown, nil
	}
	return RatingNone, fmt.Errorf("unknown rating %q", value)
}

// Toggle returns the rating after selecting selected while current is active.
// Selecting the active rating clears it.
func (current Rating) Toggle(selected Rating) Rating {
	if current == selected {
		return RatingNone
	}
	return selected
}
