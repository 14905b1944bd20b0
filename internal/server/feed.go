package server

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	pathpkg "path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"news-reader/internal/metadata"
	"news-reader/internal/models"
)

const (
	atomNamespace   = "http://www.w3.org/2005/Atom"
	itunesNamespace = "http://www.itunes.com/dtds/podcast-1.0.dtd"
)

// episode is one audio edition that could be probed on disk.
type episode struct {
	track    models.Track
	articles []string
}

func (h *serverHandler) handleFeed(w http.ResponseWriter, r *http.Request) {
	base := requestBaseURL(r)
	if base == nil {
		h.logger.Error().Msg("unable to determine request base URL")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	doc := h.feedDocument(base, r.URL.Path, h.episodes())
	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode podcast feed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if _, err := w.Write(append([]byte(xml.Header), output...)); err != nil {
		h.logger.Warn().Err(err).Msg("failed to write podcast feed")
	}
}

// episodes probes the catalog's local audio editions, newest first. Remote
// and missing audio is left out of the feed.
func (h *serverHandler) episodes() []episode {
	var out []episode
	for _, edition := range h.catalog.AudioEditions() {
		path, ok := h.localMediaPath(edition.AudioSource)
		if !ok {
			continue
		}
		track, err := metadata.ProbeTrack(path, h.mediaRoot)
		if err != nil {
			h.logger.Debug().Err(err).Str("audio", edition.AudioSource).Msg("skipping feed episode")
			continue
		}
		out = append(out, episode{track: track, articles: edition.ArticleSources})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].track, out[j].track
		if !a.ModifiedAt.Equal(b.ModifiedAt) {
			return a.ModifiedAt.After(b.ModifiedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// localMediaPath maps a catalog source onto a file below the media root.
func (h *serverHandler) localMediaPath(source string) (string, bool) {
	if u, err := url.Parse(source); err == nil && u.Scheme != "" {
		return "", false
	}
	rel := strings.TrimPrefix(pathpkg.Clean("/"+filepath.ToSlash(source)), "/")
	if rel == "" {
		return "", false
	}
	path := filepath.Join(h.mediaRoot, filepath.FromSlash(rel))
	return path, pathWithinRoot(h.mediaRoot, path)
}

func requestBaseURL(r *http.Request) *url.URL {
	scheme := "http"
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); forwarded != "" {
		if candidate := strings.TrimSpace(strings.Split(forwarded, ",")[0]); candidate != "" {
			scheme = candidate
		}
	} else if r.TLS != nil {
		scheme = "https"
	}

	host := strings.TrimSpace(r.Host)
	if host == "" {
		return nil
	}
	return &url.URL{Scheme: scheme, Host: host}
}

// feedDocument builds the RSS 2.0 document. Every item links back to the
// reader page and encloses the audio served from /media/.
func (h *serverHandler) feedDocument(base *url.URL, feedPath string, episodes []episode) rssDocument {
	resolve := func(p string) string {
		u := *base
		u.Path = p
		return u.String()
	}

	updated := h.now().UTC()
	if len(episodes) > 0 {
		updated = episodes[0].track.ModifiedAt.UTC()
	}

	channel := rssChannel{
		Title:         h.site.Title,
		Link:          resolve("/"),
		Description:   h.site.Description,
		Language:      h.site.Language,
		LastBuildDate: updated.Format(time.RFC1123Z),
		Generator:     "news-reader",
		ITunesAuthor:  h.site.Author,
		Self:          rssAtomLink{Href: resolve(feedPath), Rel: "self", Type: "application/rss+xml"},
	}

	for _, ep := range episodes {
		audio := resolve("/" + pathpkg.Join("media", ep.track.RelativePath))
		item := rssItem{
			Title:       ep.track.Title,
			Link:        resolve("/"),
			GUID:        rssGUID{IsPermaLink: "false", Value: ep.track.ID},
			Description: h.episodeSummary(ep),
			Enclosure: rssEnclosure{
				URL:    audio,
				Length: ep.track.FilesizeBytes,
				Type:   mimeTypeForFilename(ep.track.Filename),
			},
			ITunesAuthor: h.site.Author,
		}
		if !ep.track.ModifiedAt.IsZero() {
			item.PubDate = ep.track.ModifiedAt.UTC().Format(time.RFC1123Z)
		}
		if ep.track.DurationSeconds != nil {
			item.ITunesDuration = itunesDuration(*ep.track.DurationSeconds)
		}
		if ep.track.Artist != nil {
			item.ITunesAuthor = *ep.track.Artist
		}
		channel.Items = append(channel.Items, item)
	}

	return rssDocument{Version: "2.0", AtomNS: atomNamespace, ITunesNS: itunesNamespace, Channel: channel}
}

// episodeSummary names the articles an audio edition narrates.
func (h *serverHandler) episodeSummary(ep episode) string {
	if len(ep.articles) == 0 {
		return "Audio edition of " + h.site.Title
	}
	names := make([]string, len(ep.articles))
	for i, source := range ep.articles {
		names[i] = articleName(source)
	}
	return "Audio edition of " + strings.Join(names, ", ")
}

// articleName shortens an article source to its last path element without
// the extension.
func articleName(source string) string {
	if u, err := url.Parse(source); err == nil && u.Host != "" {
		if base := pathpkg.Base(u.Path); base != "/" && base != "." {
			source = base
		} else {
			return u.Host
		}
	}
	base := pathpkg.Base(filepath.ToSlash(source))
	return strings.TrimSuffix(base, pathpkg.Ext(base))
}

// itunesDuration renders seconds as HH:MM:SS.
func itunesDuration(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

type rssDocument struct {
	XMLName  xml.Name   `xml:"rss"`
	Version  string     `xml:"version,attr"`
	AtomNS   string     `xml:"xmlns:atom,attr"`
	ITunesNS string     `xml:"xmlns:itunes,attr"`
	Channel  rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string      `xml:"title"`
	Link          string      `xml:"link"`
	Description   string      `xml:"description"`
	Language      string      `xml:"language,omitempty"`
	LastBuildDate string      `xml:"lastBuildDate"`
	Generator     string      `xml:"generator"`
	Self          rssAtomLink `xml:"atom:link"`
	ITunesAuthor  string      `xml:"itunes:author,omitempty"`
	Items         []rssItem   `xml:"item"`
}

type rssAtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title          string       `xml:"title"`
	Link           string       `xml:"link"`
	GUID           rssGUID      `xml:"guid"`
	PubDate        string       `xml:"pubDate,omitempty"`
	Description    string       `xml:"description"`
	Enclosure      rssEnclosure `xml:"enclosure"`
	ITunesDuration string       `xml:"itunes:duration,omitempty"`
	ITunesAuthor   string       `xml:"itunes:author,omitempty"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}
