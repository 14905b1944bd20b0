package models

// PlaybackState is the UI-observable state of the audio player.
type PlaybackState struct {
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
}
