package markdown

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

// Class attributes of the generated markup. The page stylesheet targets them.
const (
	imageClass      = "max-w-full h-auto my-2"
	h1Class         = "text-4xl font-serif font-bold my-6 text-black"
	h2Class         = "text-2xl font-serif font-bold my-4 text-black"
	h3Class         = "text-xl font-serif font-bold my-3 text-black"
	preClass        = "bg-gray-100 p-4 rounded-lg my-4 font-mono overflow-x-auto"
	inlineCodeClass = "bg-gray-100 px-1 rounded font-mono"
	listItemClass   = "ml-6 text-gray-800 my-1"
	listClass       = "list-disc my-4"
	linkClass       = "text-blue-600 hover:underline"
	paragraphClass  = "text-lg leading-relaxed my-4 text-gray-800"

	imageWidth = 500
)

var (
	fencePattern      = regexp.MustCompile("(?s)```(.*?)```")
	imagePattern      = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
	h1Pattern         = regexp.MustCompile(`^# (.*)$`)
	h2Pattern         = regexp.MustCompile(`^## (.*)$`)
	h3Pattern         = regexp.MustCompile(`^### (.*)$`)
	boldPattern       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern     = regexp.MustCompile(`\*(.*?)\*`)
	inlineCodePattern = regexp.MustCompile("`(.*?)`")
	listItemPattern   = regexp.MustCompile(`^- (.*)$`)
	linkPattern       = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)

	imageTemplate      = `<img src="${2}" alt="${1}" width="` + strconv.Itoa(imageWidth) + `" class="` + imageClass + `" />`
	h1Template         = `<h1 class="` + h1Class + `">${1}</h1>`
	h2Template         = `<h2 class="` + h2Class + `">${1}</h2>`
	h3Template         = `<h3 class="` + h3Class + `">${1}</h3>`
	boldTemplate       = `<strong>${1}</strong>`
	italicTemplate     = `<em>${1}</em>`
	inlineCodeTemplate = `<code class="` + inlineCodeClass + `">${1}</code>`
	listItemTemplate   = `<li class="` + listItemClass + `">${1}</li>`
	linkTemplate       = `<a href="${2}" class="` + linkClass + `">${1}</a>`
)

// Placeholder delimiters for lifted fence blocks. Both runes sit in the
// Unicode private use area and are stripped from input beforehand.
const (
	fenceOpen  = '\uE000'
	fenceClose = '\uE001'
)

type lineKind int

const (
	kindBlank lineKind = iota
	kindHeading
	kindListItem
	kindParagraph
	kindRaw
)

type line struct {
	text string
	kind lineKind
}

type pipeline struct {
	escape    bool
	wrapLists bool
}

func (p pipeline) run(source string) string {
	if source == "" {
		return ""
	}
	source = strings.ReplaceAll(source, "\r\n", "\n")
	source = strings.Map(func(r rune) rune {
		if r == fenceOpen || r == fenceClose {
			return -1
		}
		return r
	}, source)

	prose, fences := p.liftFences(source)

	rawLines := strings.Split(prose, "\n")
	lines := make([]line, 0, len(rawLines))
	for _, text := range rawLines {
		lines = append(lines, p.transformLine(text))
	}

	out := p.join(lines)
	out = strings.ReplaceAll(out, "\n\n", "<br/>")
	return restoreFences(out, fences)
}

// liftFences replaces every fenced block with a placeholder so the inline
// passes never see fence content. The rendered blocks are returned in order.
func (p pipeline) liftFences(source string) (string, []string) {
	var fences []string
	prose := fencePattern.ReplaceAllStringFunc(source, func(match string) string {
		body := fencePattern.FindStringSubmatch(match)[1]
		if p.escape {
			body = html.EscapeString(body)
		}
		fences = append(fences, `<pre class="`+preClass+`"><code>`+body+`</code></pre>`)
		return string(fenceOpen) + strconv.Itoa(len(fences)-1) + string(fenceClose)
	})
	return prose, fences
}

func (p pipeline) transformLine(text string) line {
	if text == "" {
		return line{kind: kindBlank}
	}
	if p.escape {
		text = html.EscapeString(text)
	}

	kind := kindParagraph

	text = imagePattern.ReplaceAllString(text, imageTemplate)

	switch {
	case h1Pattern.MatchString(text):
		text = h1Pattern.ReplaceAllString(text, h1Template)
		kind = kindHeading
	case h2Pattern.MatchString(text):
		text = h2Pattern.ReplaceAllString(text, h2Template)
		kind = kindHeading
	case h3Pattern.MatchString(text):
		text = h3Pattern.ReplaceAllString(text, h3Template)
		kind = kindHeading
	}

	text = boldPattern.ReplaceAllString(text, boldTemplate)
	text = italicPattern.ReplaceAllString(text, italicTemplate)
	text = inlineCodePattern.ReplaceAllString(text, inlineCodeTemplate)

	if kind == kindParagraph && listItemPattern.MatchString(text) {
		text = listItemPattern.ReplaceAllString(text, listItemTemplate)
		kind = kindListItem
	}

	text = linkPattern.ReplaceAllString(text, linkTemplate)

	if kind == kindParagraph && strings.HasPrefix(text, string(fenceOpen)) {
		kind = kindRaw
	}
	return line{text: text, kind: kind}
}

func (p pipeline) join(lines []line) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}

		openList := p.wrapLists && l.kind == kindListItem && (i == 0 || lines[i-1].kind != kindListItem)
		closeList := p.wrapLists && l.kind == kindListItem && (i == len(lines)-1 || lines[i+1].kind != kindListItem)

		if openList {
			b.WriteString(`<ul class="` + listClass + `">`)
		}
		switch l.kind {
		case kindParagraph:
			b.WriteString(`<p class="` + paragraphClass + `">`)
			b.WriteString(l.text)
			b.WriteString(`</p>`)
		default:
			b.WriteString(l.text)
		}
		if closeList {
			b.WriteString(`</ul>`)
		}
	}
	return b.String()
}

func restoreFences(out string, fences []string) string {
	if len(fences) == 0 {
		return out
	}
	var b strings.Builder
	for {
		start := strings.IndexRune(out, fenceOpen)
		if start < 0 {
			b.WriteString(out)
			return b.String()
		}
		end := strings.IndexRune(out[start:], fenceClose)
		if end < 0 {
			b.WriteString(out)
			return b.String()
		}
		end += start

		b.WriteString(out[:start])
		index, err := strconv.Atoi(out[start+len(string(fenceOpen)) : end])
		if err == nil && index >= 0 && index < len(fences) {
			b.WriteString(fences[index])
		}
		out = out[end+len(string(fenceClose)):]
	}
}
