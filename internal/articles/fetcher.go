// Package articles retrieves article markdown from the generation endpoint,
// from remote documents and from text files in the media directory.
package articles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/rs/zerolog"

	"news-reader/internal/models"
)

const (
	defaultAuthor = "Unknown"
	defaultTitle  = "Untitled article"
	summaryLimit  = 280
)

// Fetcher loads articles. Requests carry no parameters, headers or
// credentials, and are neither retried nor bounded by a client timeout;
// callers cancel through the context.
type Fetcher struct {
	endpoint  string
	root      string
	client    *http.Client
	converter *md.Converter
	logger    zerolog.Logger
	now       func() time.Time
}

// NewFetcher creates a Fetcher. endpoint serves generated articles and is
// used for descriptors without an article source; root is the directory
// relative sources are read from.
func NewFetcher(endpoint, root string, client *http.Client, logger zerolog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{
		endpoint:  strings.TrimSpace(endpoint),
		root:      filepath.Clean(root),
		client:    client,
		converter: md.NewConverter("", true, nil),
		logger:    logger,
		now:       time.Now,
	}
}

// generatedArticle is the generation endpoint payload. A full article object
// is accepted as well.
type generatedArticle struct {
	Markdown string `json:"article"`
	models.Article
}

// Fetch loads the article for source. An empty source asks the generation
// endpoint, an http(s) URL is downloaded, anything else is a file below the
// media root.
func (f *Fetcher) Fetch(ctx context.Context, source string) (models.Article, error) {
	source = strings.TrimSpace(source)
	target := source
	if target == "" {
		target = f.endpoint
	}
	if target == "" {
		return models.Article{}, &FetchError{Source: source, Err: errors.New("no article source configured")}
	}

	var (
		article models.Article
		err     error
	)
	if isRemote(target) {
		article, err = f.fetchRemote(ctx, target)
	} else {
		article, err = f.readFile(target)
	}
	if err != nil {
		f.logger.Warn().Err(err).Str("source", target).Msg("article fetch failed")
		return models.Article{}, &FetchError{Source: target, Err: err}
	}

	f.logger.Debug().Str("source", target).Str("title", article.Title).Msg("article fetched")
	return article, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, target string) (models.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return models.Article{}, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return models.Article{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Article{}, &HTTPError{StatusCode: resp.StatusCode, URL: target}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Article{}, fmt.Errorf("reading response body: %w", err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return f.decodeJSON(body)
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return f.convertHTML(string(body))
	}
	return FromMarkdown(string(body), f.now()), nil
}

func (f *Fetcher) decodeJSON(body []byte) (models.Article, error) {
	var payload generatedArticle
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.Article{}, fmt.Errorf("decoding article payload: %w", err)
	}

	if strings.TrimSpace(payload.Content) != "" {
		article := FromMarkdown(payload.Content, f.now())
		if payload.Title != "" {
			article.Title = payload.Title
		}
		if payload.Author != "" {
			article.Author = payload.Author
		}
		if payload.Date != "" {
			article.Date = payload.Date
		}
		if payload.Summary != "" {
			article.Summary = payload.Summary
		}
		return article, nil
	}

	if strings.TrimSpace(payload.Markdown) == "" {
		return models.Article{}, errors.New("article payload is empty")
	}
	return FromMarkdown(payload.Markdown, f.now()), nil
}

func (f *Fetcher) convertHTML(document string) (models.Article, error) {
	markdown, err := f.converter.ConvertString(document)
	if err != nil {
		return models.Article{}, fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return FromMarkdown(markdown, f.now()), nil
}

func (f *Fetcher) readFile(source string) (models.Article, error) {
	rel := pathpkg.Clean("/" + filepath.ToSlash(source))
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || rel == "." {
		return models.Article{}, errors.New("invalid article source")
	}
	path := filepath.Join(f.root, filepath.FromSlash(rel))

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Article{}, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return f.convertHTML(string(data))
	}
	return FromMarkdown(string(data), f.now()), nil
}

// FromMarkdown builds an article around raw markdown. The title is the first
// level-one heading and the summary the first plain text line.
func FromMarkdown(content string, now time.Time) models.Article {
	article := models.Article{
		Title:   defaultTitle,
		Content: content,
		Author:  defaultAuthor,
		Date:    now.UTC().Format(time.DateOnly),
	}

	titled := false
	inFence := false
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			continue
		}
		if inFence || line == "" {
			continue
		}
		if !titled && strings.HasPrefix(line, "# ") {
			article.Title = strings.TrimSpace(line[2:])
			titled = true
			continue
		}
		if article.Summary == "" && isPlainText(line) {
			article.Summary = truncate(line, summaryLimit)
		}
		if titled && article.Summary != "" {
			break
		}
	}
	return article
}

func isPlainText(line string) bool {
	switch line[0] {
	case '#', '-', '!', '`', '*', '>', '|':
		return false
	}
	return true
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

func isRemote(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
