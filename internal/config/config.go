package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"news-reader/internal/markdown"
)

var mediaExtensions = []string{
	".mp3",
	".m4a",
	".aac",
	".wav",
	".ogg",
	".mp4",
	".webm",
	".txt",
	".md",
	".html",
}

const (
	defaultListenAddr        = "127.0.0.1:8080"
	defaultArticleEndpoint   = "http://localhost:8000/next-article/"
	defaultRefreshDebounceMS = 500
	defaultPlaybackTickMS    = 250
	defaultSessionTTL        = 30 * time.Minute
	defaultSiteTitle         = "The Burda Forward Times"
	defaultSiteByline        = "Burda Forward"
	defaultSiteFooter        = "The New Article Times"
	defaultFeedDescription   = "Audio editions of the generated articles."
	defaultFeedLanguage      = "en"
)

// MediaExtensions returns the file extensions served from the media root (lowercase).
func MediaExtensions() []string {
	result := make([]string, len(mediaExtensions))
	copy(result, mediaExtensions)
	return result
}

// ResolveMediaRoot returns the directory holding article texts, audio and
// reels. The directory is created when it does not yet exist.
func ResolveMediaRoot() (string, error) {
	dir := strings.TrimSpace(os.Getenv("NEWS_READER_MEDIA_DIR"))
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(cwd, "media")
	}

	abs, err := resolvePath(dir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", err
	}

	return abs, nil
}

// ResolveCatalogFile returns the absolute path of the article catalog, or the
// empty string when the built-in catalog should be used.
func ResolveCatalogFile() (string, error) {
	path := strings.TrimSpace(os.Getenv("NEWS_READER_CATALOG_FILE"))
	if path == "" {
		return "", nil
	}
	return resolvePath(path)
}

// ListenAddr returns the TCP address the HTTP server should bind to.
func ListenAddr() string {
	addr := strings.TrimSpace(os.Getenv("NEWS_READER_LISTEN_ADDR"))
	if addr == "" {
		return defaultListenAddr
	}
	return addr
}

// ValidateListenAddr ensures the configured listen address is restricted to localhost.
func ValidateListenAddr(addr string) error {
	addr = strings.TrimSpace(strings.ToLower(addr))
	if strings.HasPrefix(addr, "127.0.0.1:") || strings.HasPrefix(addr, "localhost:") || strings.HasPrefix(addr, "[::1]:") {
		return nil
	}
	return errors.New("listen address must bind to localhost for security")
}

// ArticleEndpoint returns the URL of the article generation service.
func ArticleEndpoint() string {
	if value := strings.TrimSpace(os.Getenv("NEWS_READER_ARTICLE_ENDPOINT")); value != "" {
		return value
	}
	return defaultArticleEndpoint
}

// RefreshDebounce returns the duration to wait before reloading the catalog
// after file-system change events.
func RefreshDebounce() time.Duration {
	return millisFromEnv("NEWS_READER_REFRESH_DEBOUNCE_MS", defaultRefreshDebounceMS, true)
}

// PlaybackTick returns how often a playing track reports its position.
func PlaybackTick() time.Duration {
	return millisFromEnv("NEWS_READER_PLAYBACK_TICK_MS", defaultPlaybackTickMS, false)
}

// SessionTTL returns how long an idle reader session is kept.
func SessionTTL() time.Duration {
	value := strings.TrimSpace(os.Getenv("NEWS_READER_SESSION_TTL"))
	if value == "" {
		return defaultSessionTTL
	}
	ttl, err := time.ParseDuration(value)
	if err != nil || ttl < 0 {
		return defaultSessionTTL
	}
	return ttl
}

// RenderOptions returns the markdown renderer options.
func RenderOptions() (markdown.Options, error) {
	engine, err := markdown.ParseEngine(os.Getenv("NEWS_READER_RENDER_ENGINE"))
	if err != nil {
		return markdown.Options{}, err
	}
	sanitize, err := boolFromEnv("NEWS_READER_RENDER_SANITIZE")
	if err != nil {
		return markdown.Options{}, err
	}
	wrapLists, err := boolFromEnv("NEWS_READER_RENDER_WRAP_LISTS")
	if err != nil {
		return markdown.Options{}, err
	}
	return markdown.Options{Engine: engine, EscapeHTML: sanitize, WrapLists: wrapLists}, nil
}

// LogLevel returns the configured zerolog level, info by default.
func LogLevel() (zerolog.Level, error) {
	value := strings.TrimSpace(os.Getenv("NEWS_READER_LOG_LEVEL"))
	if value == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(value))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid NEWS_READER_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// SiteMetadata is the static text of the reader page and the podcast feed.
type SiteMetadata struct {
	Title       string
	Byline      string
	Footer      string
	Description string
	Language    string
	Author      string
}

type siteMetadataYAML struct {
	Title       string `yaml:"title"`
	Byline      string `yaml:"byline"`
	Footer      string `yaml:"footer"`
	Description string `yaml:"description"`
	Language    string `yaml:"language"`
	Author      string `yaml:"author"`
}

// DefaultSiteMetadata returns the metadata used without any configuration.
func DefaultSiteMetadata() SiteMetadata {
	return SiteMetadata{
		Title:       defaultSiteTitle,
		Byline:      defaultSiteByline,
		Footer:      defaultSiteFooter,
		Description: defaultFeedDescription,
		Language:    defaultFeedLanguage,
	}
}

// ResolveSiteMetadata returns the site metadata after applying defaults,
// YAML configuration (when enabled), and environment variable overrides.
func ResolveSiteMetadata() (SiteMetadata, error) {
	meta := DefaultSiteMetadata()

	configPath := strings.TrimSpace(os.Getenv("NEWS_READER_SITE_CONFIG"))
	if configPath != "" {
		resolved, err := resolvePath(configPath)
		if err != nil {
			return SiteMetadata{}, err
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return SiteMetadata{}, err
		}
		var yamlConfig siteMetadataYAML
		if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
			return SiteMetadata{}, err
		}
		override(&meta.Title, yamlConfig.Title)
		override(&meta.Byline, yamlConfig.Byline)
		override(&meta.Footer, yamlConfig.Footer)
		override(&meta.Description, yamlConfig.Description)
		override(&meta.Language, yamlConfig.Language)
		override(&meta.Author, yamlConfig.Author)
	}

	override(&meta.Title, os.Getenv("NEWS_READER_SITE_TITLE"))
	override(&meta.Byline, os.Getenv("NEWS_READER_SITE_BYLINE"))
	override(&meta.Footer, os.Getenv("NEWS_READER_SITE_FOOTER"))
	override(&meta.Description, os.Getenv("NEWS_READER_FEED_DESCRIPTION"))
	override(&meta.Language, os.Getenv("NEWS_READER_FEED_LANGUAGE"))
	override(&meta.Author, os.Getenv("NEWS_READER_FEED_AUTHOR"))

	return meta, nil
}

func override(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func millisFromEnv(key string, fallback int, allowZero bool) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return time.Duration(fallback) * time.Millisecond
	}

	ms, err := strconv.Atoi(value)
	if err != nil || ms < 0 || (ms == 0 && !allowZero) {
		return time.Duration(fallback) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}

func boolFromEnv(key string) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func resolvePath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	return filepath.Abs(path)
}
