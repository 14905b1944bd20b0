package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"news-reader/internal/models"
	"news-reader/internal/session"
)

// SessionCookie carries the reader session identifier.
const SessionCookie = "news_reader_session"

// Sessions hands out reader sessions by identifier.
type Sessions interface {
	GetOrCreate(id string) (*session.Session, bool)
	Len() int
}

// AudioCatalog lists the audio editions advertised in the podcast feed.
type AudioCatalog interface {
	AudioEditions() []models.AudioEdition
}

// Renderer converts markdown to HTML for the preview endpoint.
type Renderer interface {
	Render(markdown string) string
}

// SiteMetadata is the static text of the page and the feed.
type SiteMetadata struct {
	Title       string
	Byline      string
	Footer      string
	Description string
	Language    string
	Author      string
}

// Options wires the handler's collaborators.
type Options struct {
	Sessions        Sessions
	Catalog         AudioCatalog
	Renderer        Renderer
	MediaRoot       string
	MediaExtensions []string
	Site            SiteMetadata
	Logger          zerolog.Logger
}

type serverHandler struct {
	sessions  Sessions
	catalog   AudioCatalog
	renderer  Renderer
	mediaRoot string
	allowed   map[string]struct{}
	site      SiteMetadata
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates the HTTP handler serving the reader page, its JSON API, media
// files and the podcast feed.
func New(opts Options) http.Handler {
	logger := opts.Logger

	cleanRoot := filepath.Clean(opts.MediaRoot)
	absRoot, err := filepath.Abs(cleanRoot)
	if err != nil {
		logger.Warn().Err(err).Str("root", opts.MediaRoot).Msg("unable to resolve absolute media root")
		absRoot = cleanRoot
	}

	if opts.Site.Title == "" {
		opts.Site.Title = "The Burda Forward Times"
	}
	if opts.Site.Description == "" {
		opts.Site.Description = opts.Site.Title
	}

	h := &serverHandler{
		sessions:  opts.Sessions,
		catalog:   opts.Catalog,
		renderer:  opts.Renderer,
		mediaRoot: absRoot,
		allowed:   make(map[string]struct{}, len(opts.MediaExtensions)),
		site:      opts.Site,
		logger:    logger,
		now:       time.Now,
	}
	for _, ext := range opts.MediaExtensions {
		h.allowed[strings.ToLower(ext)] = struct{}{}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /{$}", h.handlePage)
	mux.HandleFunc("POST /generate", h.formAction(h.doGenerate))
	mux.HandleFunc("POST /next", h.formAction(h.doNext))
	mux.HandleFunc("POST /playback/toggle", h.formAction(h.doToggle))
	mux.HandleFunc("POST /playback/seek", h.formAction(h.doFormSeek))
	mux.HandleFunc("POST /rating/{rating}", h.formAction(h.doFormRating))
	mux.HandleFunc("POST /reel/open", h.formAction(h.doReelOpen))
	mux.HandleFunc("POST /reel/close", h.formAction(h.doReelClose))

	mux.HandleFunc("GET /api/session", h.handleAPISession)
	mux.HandleFunc("POST /api/generate", h.apiAction(h.doGenerate))
	mux.HandleFunc("POST /api/next", h.apiAction(h.doNext))
	mux.HandleFunc("POST /api/playback/toggle", h.apiAction(h.doToggle))
	mux.HandleFunc("POST /api/playback/seek", h.apiAction(h.doAPISeek))
	mux.HandleFunc("POST /api/rating", h.apiAction(h.doAPIRating))
	mux.HandleFunc("POST /api/reel", h.apiAction(h.doAPIReel))
	mux.HandleFunc("POST /api/render", h.handleRender)

	mux.HandleFunc("GET /media/", h.handleMedia)
	mux.HandleFunc("GET /feed.xml", h.handleFeed)

	return logRequests(mux, logger)
}

func (h *serverHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": h.sessions.Len()})
}

// session resolves the visitor's session from the cookie, starting a new one
// when the cookie is missing or stale.
func (h *serverHandler) session(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		id = cookie.Value
	}

	sess, created := h.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func logRequests(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Int("size", sw.size).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
