// Package markdown converts the article markdown dialect into styled HTML.
//
// The default engine is a fixed sequence of pattern substitutions covering
// images, headings (levels 1-3), bold, italic, fenced and inline code,
// unordered list items and links. Remaining lines are wrapped in paragraphs
// and double newlines become line breaks. It is not a conforming markdown
// parser: there is no nesting, escaping, blockquotes, ordered lists or
// tables. EngineCommonMark switches to goldmark for full CommonMark + GFM.
//
// Output is not sanitized unless Options.EscapeHTML is set; article content
// is trusted.
package markdown

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Engine selects the markdown implementation used by a Renderer.
type Engine string

const (
	EngineLegacy     Engine = "legacy"
	EngineCommonMark Engine = "commonmark"
)

// ParseEngine maps a configuration value onto an Engine. The empty string
// selects EngineLegacy.
func ParseEngine(value string) (Engine, error) {
	switch Engine(strings.ToLower(strings.TrimSpace(value))) {
	case "", EngineLegacy:
		return EngineLegacy, nil
	case EngineCommonMark:
		return EngineCommonMark, nil
	}
	return "", fmt.Errorf("markdown: unknown engine %q", value)
}

// Options tune a Renderer.
type Options struct {
	Engine Engine
	// EscapeHTML escapes raw HTML found in the source before conversion.
	EscapeHTML bool
	// WrapLists groups consecutive list items into a <ul> container. Without
	// it list items are emitted bare.
	WrapLists bool
}

// Renderer converts markdown into HTML. It holds no mutable state and is safe
// for concurrent use.
type Renderer struct {
	opts     Options
	pipeline pipeline
	engine   goldmark.Markdown
}

// New constructs a Renderer for the given options.
func New(opts Options) *Renderer {
	if opts.Engine == "" {
		opts.Engine = EngineLegacy
	}

	r := &Renderer{
		opts:     opts,
		pipeline: pipeline{escape: opts.EscapeHTML, wrapLists: opts.WrapLists},
	}

	if opts.Engine == EngineCommonMark {
		var rendererOptions []renderer.Option
		if !opts.EscapeHTML {
			rendererOptions = append(rendererOptions, gmhtml.WithUnsafe())
		}
		r.engine = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(rendererOptions...),
		)
	}
	return r
}

// Options returns the configuration the renderer was built with.
func (r *Renderer) Options() Options {
	return r.opts
}

// Render converts markdown into HTML. It never fails: input the engine cannot
// make sense of degrades into paragraph text.
func (r *Renderer) Render(markdown string) string {
	if r.engine == nil {
		return r.pipeline.run(markdown)
	}

	var buf bytes.Buffer
	if err := r.engine.Convert([]byte(markdown), &buf); err != nil {
		return `<p class="` + paragraphClass + `">` + html.EscapeString(markdown) + `</p>`
	}
	return buf.String()
}

var defaultRenderer = New(Options{})

// Render converts markdown using the default legacy engine.
func Render(markdown string) string {
	return defaultRenderer.Render(markdown)
}
