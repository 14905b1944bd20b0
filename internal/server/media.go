package server

import (
	"errors"
	"mime"
	"net/http"
	"net/url"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"
)

// handleMedia serves article texts, audio and reels below the media root.
func (h *serverHandler) handleMedia(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/media/")
	rel = pathpkg.Clean("/" + rel)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || rel == "." || !h.isAllowed(rel) {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	target := filepath.Join(h.mediaRoot, filepath.FromSlash(rel))
	resolved, err := filepath.Abs(target)
	if err != nil {
		h.logger.Error().Err(err).Str("path", target).Msg("failed to resolve media path")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if !pathWithinRoot(h.mediaRoot, resolved) {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("path", resolved).Msg("failed to stat media file")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if info.IsDir() {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", mimeTypeForFilename(resolved))
	http.ServeFile(w, r, resolved)
}

func (h *serverHandler) isAllowed(path string) bool {
	if len(h.allowed) == 0 {
		return true
	}
	_, ok := h.allowed[strings.ToLower(filepath.Ext(path))]
	return ok
}

// mediaURL maps a descriptor source onto the URL the browser loads. Remote
// sources are used as they are.
func mediaURL(source string) string {
	if source == "" {
		return ""
	}
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Host != "" {
		return source
	}
	rel := strings.TrimPrefix(pathpkg.Clean("/"+filepath.ToSlash(source)), "/")
	return (&url.URL{Path: "/media/" + rel}).EscapedPath()
}

func pathWithinRoot(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != ".." && !strings.HasPrefix(rel, "../")
}

func mimeTypeForFilename(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		if fallback, ok := fallbackMIMETypes[ext]; ok {
			return fallback
		}
		if value := mime.TypeByExtension(ext); value != "" {
			return value
		}
	}
	return "application/octet-stream"
}

var fallbackMIMETypes = map[string]string{
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".txt":  "text/plain; charset=utf-8",
	".md":   "text/markdown; charset=utf-8",
}
