package playback

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-reader/internal/models"
)

type fakeResource struct {
	mu       sync.Mutex
	source   string
	events   Events
	commands []string
	playErr  error
}

func (f *fakeResource) record(cmd string) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
}

func (f *fakeResource) Bind(events Events) {
	f.mu.Lock()
	f.events = events
	f.mu.Unlock()
	f.record("bind")
}

func (f *fakeResource) Unbind() {
	f.mu.Lock()
	f.events = nil
	f.mu.Unlock()
	f.record("unbind")
}

func (f *fakeResource) Play() error {
	f.record("play")
	return f.playErr
}

func (f *fakeResource) Pause()            { f.record("pause") }
func (f *fakeResource) Seek(p float64)    { f.record(fmt.Sprintf("seek:%g", p)) }
func (f *fakeResource) Close() error      { f.record("close"); return nil }
func (f *fakeResource) bound() Events     { f.mu.Lock(); defer f.mu.Unlock(); return f.events }
func (f *fakeResource) history() []string { f.mu.Lock(); defer f.mu.Unlock(); return append([]string(nil), f.commands...) }

type fakeOpener struct {
	mu        sync.Mutex
	resources []*fakeResource
	failOn    map[string]error
}

func (o *fakeOpener) Open(source string) (Resource, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err, ok := o.failOn[source]; ok {
		return nil, err
	}
	res := &fakeResource{source: source}
	o.resources = append(o.resources, res)
	return res, nil
}

func (o *fakeOpener) last() *fakeResource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.resources[len(o.resources)-1]
}

func newTestController(t *testing.T) (*Controller, *fakeOpener) {
	t.Helper()
	opener := &fakeOpener{}
	c := NewController(opener, zerolog.Nop())
	t.Cleanup(func() { _ = c.Close() })
	return c, opener
}

func TestPlayPauseTwiceReturnsToPaused(t *testing.T) {
	c, opener := newTestController(t)
	require.NoError(t, c.Load("test_audio.wav"))

	require.NoError(t, c.PlayPause())
	assert.Equal(t, StatusPlaying, c.Status())
	assert.True(t, c.State().IsPlaying)

	require.NoError(t, c.PlayPause())
	assert.Equal(t, StatusPaused, c.Status())
	assert.False(t, c.State().IsPlaying)

	assert.Equal(t, []string{"bind", "play", "pause"}, opener.last().history())
}

func TestPlayPauseWithoutResource(t *testing.T) {
	c, _ := newTestController(t)
	assert.ErrorIs(t, c.PlayPause(), ErrNoResource)
	_, err := c.Seek(3)
	assert.ErrorIs(t, err, ErrNoResource)
}

func TestNotificationsUpdateState(t *testing.T) {
	c, opener := newTestController(t)
	require.NoError(t, c.Load("a.wav"))
	events := opener.last().bound()
	require.NotNil(t, events)

	events.MetadataLoaded(120)
	events.TimeAdvanced(42.5)
	assert.Equal(t, models.PlaybackState{CurrentTime: 42.5, Duration: 120}, c.State())

	require.NoError(t, c.PlayPause())
	events.Ended()
	assert.False(t, c.State().IsPlaying)
	assert.Equal(t, StatusPaused, c.Status())
}

func TestLoadResetsStateAndDisposesPrevious(t *testing.T) {
	c, opener := newTestController(t)
	require.NoError(t, c.Load("a.wav"))
	first := opener.last()
	stale := first.bound()
	stale.MetadataLoaded(60)
	stale.TimeAdvanced(30)
	require.NoError(t, c.PlayPause())

	require.NoError(t, c.Load("b.wav"))
	assert.Equal(t, models.PlaybackState{}, c.State())
	assert.Equal(t, StatusPaused, c.Status())
	assert.Equal(t, "b.wav", c.Source())
	assert.Equal(t, []string{"bind", "play", "unbind", "pause", "close"}, first.history())

	stale.TimeAdvanced(45)
	stale.Ended()
	stale.Failed(errors.New("late"))
	assert.Equal(t, models.PlaybackState{}, c.State())
	assert.Equal(t, StatusPaused, c.Status())
}

func TestSeekClampsAndUpdatesOptimistically(t *testing.T) {
	c, opener := newTestController(t)
	require.NoError(t, c.Load("a.wav"))
	res := opener.last()

	applied, err := c.Seek(-5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, applied)

	applied, err = c.Seek(500)
	require.NoError(t, err)
	assert.Equal(t, 500.0, applied, "no upper bound while duration is unknown")

	res.bound().MetadataLoaded(90)
	assert.Equal(t, 90.0, c.State().CurrentTime)

	applied, err = c.Seek(500)
	require.NoError(t, err)
	assert.Equal(t, 90.0, applied)

	applied, err = c.Seek(12.25)
	require.NoError(t, err)
	assert.Equal(t, 12.25, applied)
	assert.Equal(t, 12.25, c.State().CurrentTime)

	assert.Equal(t, []string{"bind", "seek:0", "seek:500", "seek:90", "seek:12.25"}, res.history())
}

func TestOpenFailureMovesToFailed(t *testing.T) {
	opener := &fakeOpener{failOn: map[string]error{"missing.wav": errors.New("no such file")}}
	c := NewController(opener, zerolog.Nop())
	defer c.Close()

	var failures []error
	c.Subscribe(Observer{Failed: func(err error) { failures = append(failures, err) }})

	err := c.Load("missing.wav")
	require.Error(t, err)
	assert.Equal(t, StatusFailed, c.Status())
	assert.ErrorContains(t, c.Failure(), "no such file")
	assert.Len(t, failures, 1)

	assert.ErrorIs(t, c.PlayPause(), ErrFailed)

	require.NoError(t, c.Load("ok.wav"))
	assert.Equal(t, StatusPaused, c.Status())
	assert.NoError(t, c.Failure())
}

func TestResourceFailureAndPlayError(t *testing.T) {
	c, opener := newTestController(t)
	require.NoError(t, c.Load("a.wav"))
	require.NoError(t, c.PlayPause())

	opener.last().bound().Failed(errors.New("decode error"))
	assert.Equal(t, StatusFailed, c.Status())
	assert.False(t, c.State().IsPlaying)

	require.NoError(t, c.Load("b.wav"))
	opener.last().playErr = errors.New("autoplay blocked")
	assert.ErrorContains(t, c.PlayPause(), "autoplay blocked")
	assert.Equal(t, StatusFailed, c.Status())
}

func TestObserversReceiveNotifications(t *testing.T) {
	c, opener := newTestController(t)

	var positions, durations []float64
	ended := 0
	cancel := c.Subscribe(Observer{
		PositionChanged: func(p float64) { positions = append(positions, p) },
		DurationKnown:   func(d float64) { durations = append(durations, d) },
		Ended:           func() { ended++; _ = c.State() },
	})

	require.NoError(t, c.Load("a.wav"))
	events := opener.last().bound()
	events.MetadataLoaded(10)
	events.TimeAdvanced(4)
	_, err := c.Seek(6)
	require.NoError(t, err)
	events.Ended()

	assert.Equal(t, []float64{10}, durations)
	assert.Equal(t, []float64{4, 6}, positions)
	assert.Equal(t, 1, ended)

	cancel()
	events.TimeAdvanced(7)
	assert.Equal(t, []float64{4, 6}, positions)
}

func TestCloseDisposesResource(t *testing.T) {
	opener := &fakeOpener{}
	c := NewController(opener, zerolog.Nop())
	require.NoError(t, c.Load("a.wav"))
	res := opener.last()

	require.NoError(t, c.Close())
	assert.Equal(t, []string{"bind", "unbind", "pause", "close"}, res.history())
	assert.ErrorIs(t, c.Load("b.wav"), ErrClosed)
	assert.ErrorIs(t, c.PlayPause(), ErrClosed)
	assert.NoError(t, c.Close())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-1, 10))
	assert.Equal(t, 10.0, clamp(11, 10))
	assert.Equal(t, 11.0, clamp(11, 0))
	assert.Equal(t, 5.0, clamp(5, 10))
	assert.Equal(t, 0.0, clamp(math.NaN(), 10))
	assert.Equal(t, 0.0, clamp(math.Inf(-1), 10))
	assert.Equal(t, 10.0, clamp(math.Inf(1), 10))
	assert.Equal(t, 0.0, clamp(math.Inf(1), 0))
}

func TestSeekToInfinityKeepsStateFinite(t *testing.T) {
	c, opener := newTestController(t)
	require.NoError(t, c.Load("a.wav"))

	applied, err := c.Seek(math.Inf(1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, applied)
	assert.Equal(t, 0.0, c.State().CurrentTime)

	opener.last().bound().MetadataLoaded(30)
	applied, err = c.Seek(math.Inf(1))
	require.NoError(t, err)
	assert.Equal(t, 30.0, applied)
}

func TestUnloadDisposesResourceAndResetsState(t *testing.T) {
	c, opener := newTestController(t)
	require.NoError(t, c.Load("a.wav"))
	res := opener.last()
	events := res.bound()
	events.MetadataLoaded(60)
	require.NoError(t, c.PlayPause())
	_, err := c.Seek(12)
	require.NoError(t, err)

	require.NoError(t, c.Unload())
	assert.Equal(t, models.PlaybackState{}, c.State())
	assert.Equal(t, StatusPaused, c.Status())
	assert.Empty(t, c.Source())
	assert.Equal(t, []string{"bind", "play", "seek:12", "unbind", "pause", "close"}, res.history())

	events.TimeAdvanced(20)
	events.MetadataLoaded(90)
	assert.Equal(t, models.PlaybackState{}, c.State())

	assert.ErrorIs(t, c.PlayPause(), ErrNoResource)
	_, err = c.Seek(3)
	assert.ErrorIs(t, err, ErrNoResource)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Unload(), ErrClosed)
}
