package playback

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-reader/internal/models"
)

func TestWaveformMarksElapsedSlots(t *testing.T) {
	bars := Waveform(models.PlaybackState{CurrentTime: 50, Duration: 100}, rand.New(rand.NewPCG(1, 2)))
	require.Len(t, bars, WaveformBars)

	for i, bar := range bars {
		assert.Equal(t, i <= 10, bar.Elapsed, "bar %d", i)
		assert.GreaterOrEqual(t, bar.HeightPx, 8.0)
		assert.Less(t, bar.HeightPx, 24.0)
	}
}

func TestWaveformSeededIsDeterministic(t *testing.T) {
	state := models.PlaybackState{CurrentTime: 1, Duration: 2}
	a := Waveform(state, rand.New(rand.NewPCG(7, 7)))
	b := Waveform(state, rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, a, b)
}

func TestWaveformUnknownDuration(t *testing.T) {
	for _, bar := range Waveform(models.PlaybackState{}, nil) {
		assert.True(t, bar.Elapsed)
	}
}
