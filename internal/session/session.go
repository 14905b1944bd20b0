// Package session holds the per-reader page state: the current article and
// its cursor into the catalog, the rating, the reel modal and the audio
// player bound to the article.
package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"news-reader/internal/articles"
	"news-reader/internal/models"
	"news-reader/internal/playback"
)

// Status summarizes what the reader page shows.
type Status string

const (
	// StatusEmpty means no article has been generated yet.
	StatusEmpty   Status = "empty"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

var ErrNoArticle = errors.New("session: no article loaded")

// Catalog is the ordered descriptor sequence a session navigates.
type Catalog interface {
	At(index int) (models.ArticleDescriptor, bool)
	Len() int
}

// Fetcher loads the article behind a descriptor's article source.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (models.Article, error)
}

// Renderer turns article markdown into HTML.
type Renderer interface {
	Render(markdown string) string
}

// Config carries the collaborators shared by all sessions.
type Config struct {
	Catalog  Catalog
	Fetcher  Fetcher
	Renderer Renderer
	Opener   playback.Opener
	Logger   zerolog.Logger
	// WaveformSeed makes waveform heights reproducible when non-zero.
	WaveformSeed uint64
}

// Session is one reader's page state. It is safe for concurrent use.
type Session struct {
	id       string
	catalog  Catalog
	fetcher  Fetcher
	renderer Renderer
	player   *playback.Controller
	logger   zerolog.Logger

	// applyMu orders applying a fetch result with loading its audio.
	applyMu sync.Mutex

	mu       sync.Mutex
	rnd      *rand.Rand
	index    int
	article  *models.Article
	html     string
	errMsg   string
	rating   models.Rating
	reelOpen bool
	fetchSeq uint64
	loading  int
	lastSeen time.Time
}

// New creates a session positioned on the first catalog entry.
func New(id string, cfg Config) *Session {
	logger := cfg.Logger.With().Str("session", id).Logger()
	s := &Session{
		id:       id,
		catalog:  cfg.Catalog,
		fetcher:  cfg.Fetcher,
		renderer: cfg.Renderer,
		player:   playback.NewController(cfg.Opener, logger),
		logger:   logger,
		lastSeen: time.Now(),
	}
	if cfg.WaveformSeed != 0 {
		s.rnd = rand.New(rand.NewPCG(cfg.WaveformSeed, uint64(len(id))))
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Player exposes the playback controller bound to the current article.
func (s *Session) Player() *playback.Controller { return s.player }

// Generate loads the article at the current cursor, together with its audio.
func (s *Session) Generate(ctx context.Context) error {
	s.mu.Lock()
	d, ok := s.catalog.At(s.index)
	seq := s.beginFetchLocked()
	s.mu.Unlock()

	if !ok {
		s.endFetch(seq, models.Article{}, errors.New("catalog is empty"))
		return ErrNoArticle
	}
	return s.fetch(ctx, seq, d, false)
}

// Next stops the audio, clears the rating, advances the cursor cyclically
// and loads the following article and audio. Playback resets as soon as the
// cursor moves. When calls overlap, only the most recent one is applied;
// earlier results are discarded.
func (s *Session) Next(ctx context.Context) error {
	if err := s.player.Unload(); err != nil {
		return err
	}

	s.mu.Lock()
	s.rating = models.RatingNone
	s.reelOpen = false
	s.index = models.NextIndex(s.index, s.catalog.Len())
	d, ok := s.catalog.At(s.index)
	seq := s.beginFetchLocked()
	s.mu.Unlock()

	if !ok {
		s.endFetch(seq, models.Article{}, errors.New("catalog is empty"))
		return ErrNoArticle
	}
	return s.fetch(ctx, seq, d, true)
}

func (s *Session) beginFetchLocked() uint64 {
	s.fetchSeq++
	s.loading++
	s.lastSeen = time.Now()
	return s.fetchSeq
}

// fetch loads the article for d and, once applied, its audio. reload forces
// a fresh audio resource even when the source is unchanged, which rewinds it.
// A descriptor without audio unloads the previous track.
func (s *Session) fetch(ctx context.Context, seq uint64, d models.ArticleDescriptor, reload bool) error {
	article, err := s.fetcher.Fetch(ctx, d.ArticleSource)

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	if !s.endFetch(seq, article, err) {
		s.logger.Debug().Uint64("fetch", seq).Msg("discarding superseded article fetch")
		return nil
	}

	s.mu.Lock()
	current := seq == s.fetchSeq
	s.mu.Unlock()
	if !current {
		return err
	}

	// Playback problems are surfaced through the player status.
	switch {
	case d.AudioSource == "":
		if s.player.Source() != "" {
			_ = s.player.Unload()
		}
	case reload || s.player.Source() != d.AudioSource:
		_ = s.player.Load(d.AudioSource)
	}
	return err
}

// endFetch applies a fetch result unless a newer fetch was started. It
// reports whether the result was applied.
func (s *Session) endFetch(seq uint64, article models.Article, err error) bool {
	var html string
	if err == nil {
		html = s.renderer.Render(article.Content)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if seq != s.fetchSeq {
		return false
	}
	if err != nil {
		s.errMsg = articles.UserMessage(err)
		return true
	}
	s.article = &article
	s.html = html
	s.errMsg = ""
	return true
}

// PlayPause toggles audio playback.
func (s *Session) PlayPause() error {
	s.touch()
	return s.player.PlayPause()
}

// Seek moves the playback position and returns the applied, clamped value.
func (s *Session) Seek(position float64) (float64, error) {
	s.touch()
	return s.player.Seek(position)
}

// SetRating toggles the given rating: selecting the active one clears it.
func (s *Session) SetRating(selected models.Rating) models.Rating {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	s.rating = s.rating.Toggle(selected)
	return s.rating
}

// OpenReel shows the reel modal. It is a no-op without a reel source.
func (s *Session) OpenReel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	d, ok := s.catalog.At(s.index)
	s.reelOpen = ok && d.ReelSource != ""
	return s.reelOpen
}

// CloseReel hides the reel modal.
func (s *Session) CloseReel() {
	s.mu.Lock()
	s.reelOpen = false
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// Close releases the audio resource.
func (s *Session) Close() error {
	return s.player.Close()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
