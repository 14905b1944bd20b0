package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"news-reader/internal/metadata"
)

const defaultTick = 250 * time.Millisecond

// TrackOpener opens headless track resources for audio files below a media
// root or at http(s) URLs. A track resource plays on the wall clock: it probes
// the duration of the audio once, then advances its position while playing.
type TrackOpener struct {
	root   string
	client *http.Client
	tick   time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewTrackOpener creates an opener rooted at the media directory. Position
// notifications are emitted every tick while playing.
func NewTrackOpener(root string, tick time.Duration, client *http.Client, logger zerolog.Logger) *TrackOpener {
	if tick <= 0 {
		tick = defaultTick
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &TrackOpener{
		root:   filepath.Clean(root),
		client: client,
		tick:   tick,
		logger: logger,
		now:    time.Now,
	}
}

// Open implements Opener.
func (o *TrackOpener) Open(source string) (Resource, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, errors.New("empty audio source")
	}

	var open func(ctx context.Context) (io.ReadCloser, error)
	ext := pathpkg.Ext(source)

	if u, err := url.Parse(source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		ext = pathpkg.Ext(u.Path)
		open = func(ctx context.Context) (io.ReadCloser, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
			if err != nil {
				return nil, err
			}
			resp, err := o.client.Do(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				resp.Body.Close()
				return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
			return resp.Body, nil
		}
	} else {
		path, err := o.resolve(source)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		open = func(context.Context) (io.ReadCloser, error) {
			return os.Open(path)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &trackResource{
		open:   open,
		ext:    ext,
		tick:   o.tick,
		now:    o.now,
		logger: o.logger.With().Str("source", source).Logger(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	return r, nil
}

func (o *TrackOpener) resolve(source string) (string, error) {
	rel := pathpkg.Clean("/" + filepath.ToSlash(source))
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || rel == "." {
		return "", errors.New("invalid audio source")
	}
	target, err := filepath.Abs(filepath.Join(o.root, filepath.FromSlash(rel)))
	if err != nil {
		return "", err
	}
	root, err := filepath.Abs(o.root)
	if err != nil {
		return "", err
	}
	if rel, err := filepath.Rel(root, target); err != nil || rel == ".." || strings.HasPrefix(filepath.ToSlash(rel), "../") {
		return "", fmt.Errorf("audio source %q escapes media root", source)
	}
	return target, nil
}

type trackResource struct {
	open   func(ctx context.Context) (io.ReadCloser, error)
	ext    string
	tick   time.Duration
	now    func() time.Time
	logger zerolog.Logger

	mu       sync.Mutex
	events   Events
	playing  bool
	position float64
	duration float64
	lastTick time.Time
	closed   bool
	started  bool

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Bind attaches the listener. The first Bind starts the probe and clock
// goroutine, so no event is emitted before a listener exists.
func (r *trackResource) Bind(events Events) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.events = events
	if !r.started {
		r.started = true
		r.wg.Add(1)
		go r.run()
	}
}

func (r *trackResource) Unbind() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *trackResource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("track closed")
	}
	if r.duration > 0 && r.position >= r.duration {
		r.position = 0
	}
	r.playing = true
	r.lastTick = r.now()
	return nil
}

func (r *trackResource) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.playing {
		return
	}
	r.advanceLocked(r.now())
	r.playing = false
}

func (r *trackResource) Seek(position float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.position = position
	r.lastTick = r.now()
}

func (r *trackResource) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.playing = false
		r.events = nil
		r.mu.Unlock()

		r.cancel()
		close(r.done)
		r.wg.Wait()
	})
	return nil
}

func (r *trackResource) run() {
	defer r.wg.Done()

	if !r.probe() {
		return
	}

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.step()
		case <-r.done:
			return
		}
	}
}

// probe loads the duration. It reports false when the resource failed and
// the run loop should stop.
func (r *trackResource) probe() bool {
	rc, err := r.open(r.ctx)
	if err == nil {
		var duration float64
		duration, err = metadata.ProbeDuration(rc, r.ext)
		rc.Close()
		if err == nil {
			r.mu.Lock()
			r.duration = duration
			events := r.events
			r.mu.Unlock()
			if events != nil {
				events.MetadataLoaded(duration)
			}
			return true
		}
	}

	if errors.Is(err, metadata.ErrUnsupportedFormat) {
		r.logger.Debug().Msg("duration unknown for audio format")
		return true
	}
	if r.ctx.Err() != nil {
		return false
	}

	r.mu.Lock()
	r.playing = false
	events := r.events
	r.mu.Unlock()
	if events != nil {
		events.Failed(err)
	}
	return false
}

func (r *trackResource) step() {
	r.mu.Lock()
	if !r.playing {
		r.mu.Unlock()
		return
	}
	r.advanceLocked(r.now())
	ended := false
	if r.duration > 0 && r.position >= r.duration {
		r.position = r.duration
		r.playing = false
		ended = true
	}
	position := r.position
	events := r.events
	r.mu.Unlock()

	if events == nil {
		return
	}
	events.TimeAdvanced(position)
	if ended {
		events.Ended()
	}
}

func (r *trackResource) advanceLocked(now time.Time) {
	r.position += now.Sub(r.lastTick).Seconds()
	r.lastTick = now
}
