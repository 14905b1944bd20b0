package playback

import (
	"math/rand/v2"

	"news-reader/internal/models"
)

// Waveform geometry. Bars are decorative: heights are random, not derived
// from the audio signal.
const (
	WaveformBars    = 20
	minBarHeightPx  = 8.0
	barHeightSpread = 16.0
)

// Bar is one column of the waveform visualization.
type Bar struct {
	HeightPx float64 `json:"height_px"`
	Elapsed  bool    `json:"elapsed"`
}

// Waveform lays out WaveformBars bars for the given playback state. Bar i is
// elapsed when its time slot i*duration/WaveformBars has been reached. Heights
// are drawn from rnd, or from the global source when rnd is nil, so they
// change on every call.
func Waveform(state models.PlaybackState, rnd *rand.Rand) []Bar {
	float := rand.Float64
	if rnd != nil {
		float = rnd.Float64
	}

	bars := make([]Bar, WaveformBars)
	for i := range bars {
		slot := float64(i) * state.Duration / WaveformBars
		bars[i] = Bar{
			HeightPx: float()*barHeightSpread + minBarHeightPx,
			Elapsed:  slot <= state.CurrentTime,
		}
	}
	return bars
}
