package server

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"time"

	"news-reader/internal/session"
)

//go:embed templates/page.html.tmpl
var pageSource string

var pageTemplate = template.Must(template.New("page").Parse(pageSource))

type pageData struct {
	Site        SiteMetadata
	Year        int
	View        session.View
	ArticleHTML template.HTML
	Date        string
	Elapsed     string
	Total       string
	AudioURL    string
	ReelURL     string
}

func (h *serverHandler) handlePage(w http.ResponseWriter, r *http.Request) {
	view := h.session(w, r).View()

	data := pageData{
		Site:     h.site,
		Year:     h.now().Year(),
		View:     view,
		Elapsed:  formatTime(view.Playback.CurrentTime),
		Total:    formatTime(view.Playback.Duration),
		AudioURL: mediaURL(view.Descriptor.AudioSource),
		ReelURL:  mediaURL(view.Descriptor.ReelSource),
	}
	if view.Article != nil {
		// Article markup is trusted and injected as is.
		data.ArticleHTML = template.HTML(view.HTML)
		data.Date = formatDate(view.Article.Date)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error().Err(err).Msg("failed to render page")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// formatTime renders seconds as m:ss.
func formatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func formatDate(value string) string {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return value
	}
	return t.Format("January 2, 2006")
}
