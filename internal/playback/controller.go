package playback

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"news-reader/internal/models"
)

// Status is the transport state of a Controller.
type Status string

const (
	StatusPaused  Status = "paused"
	StatusPlaying Status = "playing"
	// StatusFailed is terminal for the loaded resource; only Load leaves it.
	StatusFailed Status = "failed"
)

var (
	ErrNoResource = errors.New("playback: no resource loaded")
	ErrFailed     = errors.New("playback: resource failed")
	ErrClosed     = errors.New("playback: controller closed")
)

// Events receives the notifications of a bound Resource.
type Events interface {
	TimeAdvanced(position float64)
	MetadataLoaded(duration float64)
	Ended()
	Failed(err error)
}

// Resource is one playable media resource. Its lifecycle is
// create -> Bind -> [Play/Pause/Seek]* -> Unbind -> Close.
//
// Implementations deliver events from their own goroutine, never from inside
// a call to one of the methods below.
type Resource interface {
	Bind(events Events)
	Unbind()
	Play() error
	Pause()
	Seek(position float64)
	Close() error
}

// Opener creates the resource for an audio source.
type Opener interface {
	Open(source string) (Resource, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(source string) (Resource, error)

func (f OpenerFunc) Open(source string) (Resource, error) {
	return f(source)
}

// Observer is a subscription to controller notifications. Nil callbacks are
// skipped. Callbacks run outside the controller lock and may call back into it.
type Observer struct {
	PositionChanged func(position float64)
	DurationKnown   func(duration float64)
	Ended           func()
	Failed          func(err error)
}

// Controller synchronizes one media resource at a time with the
// UI-observable PlaybackState.
type Controller struct {
	opener Opener
	logger zerolog.Logger

	mu        sync.Mutex
	res       Resource
	source    string
	gen       uint64
	state     models.PlaybackState
	status    Status
	failure   error
	closed    bool
	observers map[int]Observer
	nextObsID int
}

// NewController creates a Controller with no resource loaded.
func NewController(opener Opener, logger zerolog.Logger) *Controller {
	return &Controller{
		opener:    opener,
		logger:    logger,
		status:    StatusPaused,
		observers: make(map[int]Observer),
	}
}

// Load tears down the current resource and binds a fresh one for source.
// Position and playing flag reset immediately; the duration is reported
// later by the resource. An open error leaves the controller in StatusFailed.
func (c *Controller) Load(source string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	old := c.detachLocked()
	c.gen++
	gen := c.gen
	c.source = source
	c.state = models.PlaybackState{}
	c.status = StatusPaused
	c.failure = nil
	c.mu.Unlock()

	c.dispose(old)

	res, err := c.opener.Open(source)

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		if res != nil {
			c.dispose(res)
		}
		return nil
	}
	if err != nil {
		c.status = StatusFailed
		c.failure = fmt.Errorf("open %s: %w", source, err)
		failure := c.failure
		notify := c.collectLocked(func(o Observer) func() {
			if o.Failed == nil {
				return nil
			}
			return func() { o.Failed(failure) }
		})
		c.mu.Unlock()
		c.logger.Warn().Err(err).Str("source", source).Msg("audio source failed to open")
		run(notify)
		return failure
	}
	c.res = res
	res.Bind(binding{c: c, gen: gen})
	c.mu.Unlock()

	c.logger.Debug().Str("source", source).Msg("audio source loaded")
	return nil
}

// Unload tears down the current resource without opening a new one. The
// state returns to zero and the transport to StatusPaused, so playback
// commands report ErrNoResource until the next Load.
func (c *Controller) Unload() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	old := c.detachLocked()
	c.gen++
	c.source = ""
	c.state = models.PlaybackState{}
	c.status = StatusPaused
	c.failure = nil
	c.mu.Unlock()

	return c.dispose(old)
}

// PlayPause toggles between playing and paused, issuing the matching command
// to the resource.
func (c *Controller) PlayPause() error {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}

	if c.state.IsPlaying {
		c.res.Pause()
		c.state.IsPlaying = false
		c.status = StatusPaused
		c.mu.Unlock()
		return nil
	}

	if err := c.res.Play(); err != nil {
		c.status = StatusFailed
		c.failure = fmt.Errorf("play %s: %w", c.source, err)
		failure := c.failure
		notify := c.collectLocked(func(o Observer) func() {
			if o.Failed == nil {
				return nil
			}
			return func() { o.Failed(failure) }
		})
		c.mu.Unlock()
		run(notify)
		return failure
	}
	c.state.IsPlaying = true
	c.status = StatusPlaying
	c.mu.Unlock()
	return nil
}

// Pause stops playback if it is running. It is a no-op otherwise.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.res == nil || !c.state.IsPlaying {
		return
	}
	c.res.Pause()
	c.state.IsPlaying = false
	c.status = StatusPaused
}

// Seek repositions playback. The target is clamped to [0, duration], or to
// [0, +inf) while the duration is unknown. Non-finite targets seek to 0,
// except +Inf which lands on a known duration. The position is updated without
// waiting for the resource to confirm it. It returns the applied position.
func (c *Controller) Seek(position float64) (float64, error) {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return 0, err
	}

	position = clamp(position, c.state.Duration)
	c.res.Seek(position)
	c.state.CurrentTime = position
	notify := c.positionLocked(position)
	c.mu.Unlock()

	run(notify)
	return position, nil
}

// State returns a snapshot of the playback state.
func (c *Controller) State() models.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the transport status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Failure returns the error that moved the controller into StatusFailed.
func (c *Controller) Failure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// Source returns the currently loaded audio source.
func (c *Controller) Source() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// Subscribe registers an observer and returns the function that removes it.
func (c *Controller) Subscribe(o Observer) func() {
	c.mu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = o
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.observers, id)
			c.mu.Unlock()
		})
	}
}

// Close releases the bound resource. The controller cannot be reused.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.gen++
	old := c.detachLocked()
	c.state.IsPlaying = false
	c.status = StatusPaused
	c.observers = make(map[int]Observer)
	c.mu.Unlock()

	return c.dispose(old)
}

func (c *Controller) usableLocked() error {
	switch {
	case c.closed:
		return ErrClosed
	case c.status == StatusFailed:
		return ErrFailed
	case c.res == nil:
		return ErrNoResource
	}
	return nil
}

// detachLocked unbinds the current resource so no further events reach the
// controller, and hands it back for disposal outside the lock.
func (c *Controller) detachLocked() Resource {
	old := c.res
	c.res = nil
	if old != nil {
		old.Unbind()
	}
	return old
}

func (c *Controller) dispose(res Resource) error {
	if res == nil {
		return nil
	}
	res.Pause()
	if err := res.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("closing audio resource")
		return err
	}
	return nil
}

func (c *Controller) collectLocked(pick func(Observer) func()) []func() {
	var out []func()
	for _, o := range c.observers {
		if fn := pick(o); fn != nil {
			out = append(out, fn)
		}
	}
	return out
}

func (c *Controller) positionLocked(position float64) []func() {
	return c.collectLocked(func(o Observer) func() {
		if o.PositionChanged == nil {
			return nil
		}
		return func() { o.PositionChanged(position) }
	})
}

func (c *Controller) onTimeAdvanced(gen uint64, position float64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	position = clamp(position, c.state.Duration)
	c.state.CurrentTime = position
	notify := c.positionLocked(position)
	c.mu.Unlock()
	run(notify)
}

func (c *Controller) onMetadataLoaded(gen uint64, duration float64) {
	c.mu.Lock()
	if gen != c.gen || math.IsNaN(duration) || duration < 0 {
		c.mu.Unlock()
		return
	}
	c.state.Duration = duration
	c.state.CurrentTime = clamp(c.state.CurrentTime, duration)
	notify := c.collectLocked(func(o Observer) func() {
		if o.DurationKnown == nil {
			return nil
		}
		return func() { o.DurationKnown(duration) }
	})
	c.mu.Unlock()
	run(notify)
}

func (c *Controller) onEnded(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state.IsPlaying = false
	if c.status == StatusPlaying {
		c.status = StatusPaused
	}
	notify := c.collectLocked(func(o Observer) func() { return o.Ended })
	c.mu.Unlock()
	run(notify)
}

func (c *Controller) onFailed(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state.IsPlaying = false
	c.status = StatusFailed
	c.failure = fmt.Errorf("%s: %w", c.source, err)
	failure := c.failure
	notify := c.collectLocked(func(o Observer) func() {
		if o.Failed == nil {
			return nil
		}
		return func() { o.Failed(failure) }
	})
	c.mu.Unlock()
	c.logger.Warn().Err(err).Msg("audio playback failed")
	run(notify)
}

// binding routes the events of one resource generation into the controller.
type binding struct {
	c   *Controller
	gen uint64
}

func (b binding) TimeAdvanced(position float64)   { b.c.onTimeAdvanced(b.gen, position) }
func (b binding) MetadataLoaded(duration float64) { b.c.onMetadataLoaded(b.gen, duration) }
func (b binding) Ended()                          { b.c.onEnded(b.gen) }
func (b binding) Failed(err error)                { b.c.onFailed(b.gen, err) }

func clamp(position, duration float64) float64 {
	if math.IsNaN(position) || position < 0 {
		return 0
	}
	if math.IsInf(position, 1) {
		if duration > 0 {
			return duration
		}
		return 0
	}
	if duration > 0 && position > duration {
		return duration
	}
	return position
}

func run(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
