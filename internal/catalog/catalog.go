// Package catalog holds the ordered article descriptors the reader cycles
// through. The catalog is read from a YAML file and reloaded when it changes.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"news-reader/internal/models"
)

// ErrEmpty is returned for a catalog file without descriptors.
var ErrEmpty = errors.New("catalog: no articles")

// Default returns the built-in catalog used when no file is configured.
func Default() []models.ArticleDescriptor {
	return []models.ArticleDescriptor{
		{ArticleSource: "article.txt", AudioSource: "test_audio.wav"},
		{ArticleSource: "zio.txt", AudioSource: "test_audio.wav"},
	}
}

type file struct {
	Articles []models.ArticleDescriptor `yaml:"articles"`
}

// Parse decodes a catalog document.
func Parse(data []byte) ([]models.ArticleDescriptor, error) {
	var doc file
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(doc.Articles) == 0 {
		return nil, ErrEmpty
	}
	for i := range doc.Articles {
		d := &doc.Articles[i]
		d.ArticleSource = strings.TrimSpace(d.ArticleSource)
		d.AudioSource = strings.TrimSpace(d.AudioSource)
		d.ReelSource = strings.TrimSpace(d.ReelSource)
	}
	return doc.Articles, nil
}

// Catalog keeps the current descriptor list in memory.
type Catalog struct {
	path    string
	watcher *fsnotify.Watcher
	logger  zerolog.Logger

	mu      sync.RWMutex
	entries []models.ArticleDescriptor

	refreshMu    sync.Mutex
	refreshTimer *time.Timer
	refreshDelay time.Duration

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// Static returns a catalog over fixed entries that never reloads.
func Static(entries []models.ArticleDescriptor) *Catalog {
	if len(entries) == 0 {
		entries = Default()
	}
	return &Catalog{
		entries: append([]models.ArticleDescriptor(nil), entries...),
		logger:  zerolog.Nop(),
		done:    make(chan struct{}),
	}
}

// Open loads the catalog at path and watches it for changes. An empty path
// yields the built-in catalog.
func Open(path string, debounce time.Duration, logger zerolog.Logger) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		c := Static(nil)
		c.logger = logger
		return c, nil
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		path:         path,
		logger:       logger,
		refreshDelay: debounce,
		done:         make(chan struct{}),
	}
	if err := c.refresh(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors replace files by renaming over them, so the directory is watched.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch catalog directory: %w", err)
	}
	c.watcher = watcher

	c.wg.Add(1)
	go c.run()

	return c, nil
}

// Close stops watching the catalog file.
func (c *Catalog) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		c.refreshMu.Lock()
		if c.refreshTimer != nil {
			c.refreshTimer.Stop()
			c.refreshTimer = nil
		}
		c.refreshMu.Unlock()

		if c.watcher != nil {
			c.closeErr = c.watcher.Close()
		}
		c.wg.Wait()
	})
	return c.closeErr
}

// Descriptors returns a snapshot of the catalog.
func (c *Catalog) Descriptors() []models.ArticleDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]models.ArticleDescriptor, len(c.entries))
	copy(result, c.entries)
	return result
}

// Len returns the number of descriptors.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// At returns the descriptor at index. The index wraps around the catalog
// length so a cursor stays valid after the catalog shrinks.
func (c *Catalog) At(index int) (models.ArticleDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		return models.ArticleDescriptor{}, false
	}
	index %= len(c.entries)
	if index < 0 {
		index += len(c.entries)
	}
	return c.entries[index], true
}

// AudioEditions groups the catalog by audio source, in order of first
// appearance. Descriptors without audio are left out.
func (c *Catalog) AudioEditions() []models.AudioEdition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	position := make(map[string]int, len(c.entries))
	var editions []models.AudioEdition
	for _, d := range c.entries {
		if d.AudioSource == "" {
			continue
		}
		i, ok := position[d.AudioSource]
		if !ok {
			i = len(editions)
			position[d.AudioSource] = i
			editions = append(editions, models.AudioEdition{AudioSource: d.AudioSource})
		}
		if d.ArticleSource != "" {
			editions[i].ArticleSources = append(editions[i].ArticleSources, d.ArticleSource)
		}
	}
	return editions
}

func (c *Catalog) run() {
	defer c.wg.Done()

	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.handleEvent(event)
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn().Err(err).Msg("catalog watcher error")
		case <-c.done:
			return
		}
	}
}

func (c *Catalog) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != c.path {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
		c.scheduleRefresh()
	}
}

// refresh rereads the file. A broken or empty file keeps the previous entries.
func (c *Catalog) refresh() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	entries, err := Parse(data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	c.logger.Info().Str("path", c.path).Int("articles", len(entries)).Msg("catalog loaded")
	return nil
}

func (c *Catalog) scheduleRefresh() {
	select {
	case <-c.done:
		return
	default:
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(c.refreshDelay, func() {
		if err := c.refresh(); err != nil {
			c.logger.Warn().Err(err).Str("path", c.path).Msg("catalog reload failed, keeping previous entries")
		}

		c.refreshMu.Lock()
		if c.refreshTimer == timer {
			c.refreshTimer = nil
		}
		c.refreshMu.Unlock()
	})

	c.refreshTimer = timer
}
