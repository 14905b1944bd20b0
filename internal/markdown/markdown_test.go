package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paragraph(inner string) string {
	return `<p class="` + paragraphClass + `">` + inner + `</p>`
}

func TestRenderEmptyInput(t *testing.T) {
	assert.Equal(t, "", Render(""))
	assert.Equal(t, "", New(Options{WrapLists: true, EscapeHTML: true}).Render(""))
}

func TestRenderHeadings(t *testing.T) {
	out := Render("# Title")
	assert.Equal(t, `<h1 class="`+h1Class+`">Title</h1>`, out)
	assert.Equal(t, 1, strings.Count(out, "<h1"))

	assert.Equal(t, `<h2 class="`+h2Class+`">Sub</h2>`, Render("## Sub"))
	assert.Equal(t, `<h3 class="`+h3Class+`">Deep</h3>`, Render("### Deep"))
	assert.Equal(t, paragraph("#NoSpace"), Render("#NoSpace"))
}

func TestRenderBoldAndItalicAreIndependent(t *testing.T) {
	out := Render("**a** and *b*")
	assert.Equal(t, paragraph("<strong>a</strong> and <em>b</em>"), out)
	assert.NotContains(t, out, "<em><strong>")
	assert.NotContains(t, out, "<em></em>")
}

func TestRenderFencedCodeIsVerbatim(t *testing.T) {
	source := "```\nline *one*\n\n# two [x](y)\n```"
	out := Render(source)

	assert.Equal(t, `<pre class="`+preClass+`"><code>`+"\nline *one*\n\n# two [x](y)\n"+`</code></pre>`, out)
	assert.NotContains(t, out, "<br/>")
	assert.NotContains(t, out, "<em>")
}

func TestRenderFenceAmongParagraphs(t *testing.T) {
	out := Render("before\n```go\nx := 1\n```\nafter")

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, paragraph("before"), lines[0])
	assert.Equal(t, `<pre class="`+preClass+`"><code>go`, lines[1])
	assert.Equal(t, "x := 1", lines[2])
	assert.Equal(t, `</code></pre>`, lines[3])
	assert.Equal(t, paragraph("after"), lines[4])
}

func TestRenderInlineCode(t *testing.T) {
	assert.Equal(t,
		paragraph(`use <code class="`+inlineCodeClass+`">go test</code> often`),
		Render("use `go test` often"))
}

func TestRenderListItemsBareByDefault(t *testing.T) {
	out := Render("- one\n- two")
	assert.Equal(t,
		`<li class="`+listItemClass+`">one</li>`+"\n"+`<li class="`+listItemClass+`">two</li>`,
		out)
	assert.NotContains(t, out, "<ul")
}

func TestRenderWrapListsGroupsConsecutiveItems(t *testing.T) {
	r := New(Options{WrapLists: true})
	out := r.Render("- one\n- two\ntext\n- three")

	item := func(s string) string { return `<li class="` + listItemClass + `">` + s + `</li>` }
	expected := strings.Join([]string{
		`<ul class="` + listClass + `">` + item("one"),
		item("two") + `</ul>`,
		paragraph("text"),
		`<ul class="` + listClass + `">` + item("three") + `</ul>`,
	}, "\n")
	assert.Equal(t, expected, out)
}

func TestRenderImageBeforeLink(t *testing.T) {
	out := Render("![AI Coding Assistant](https://example.com/pic.png)")
	assert.Equal(t,
		paragraph(`<img src="https://example.com/pic.png" alt="AI Coding Assistant" width="500" class="`+imageClass+`" />`),
		out)
	assert.NotContains(t, out, "<a ")
}

func TestRenderLinks(t *testing.T) {
	assert.Equal(t,
		paragraph(`As noted in <a href="https://example.com" class="`+linkClass+`">this research paper</a>.`),
		Render("As noted in [this research paper](https://example.com)."))
}

func TestRenderDoubleNewlineBecomesBreak(t *testing.T) {
	assert.Equal(t, paragraph("a")+"<br/>"+paragraph("b"), Render("a\n\nb"))
	assert.Equal(t, paragraph("a")+"<br/>"+paragraph("b"), Render("a\r\n\r\nb"))
}

func TestRenderClassifierIgnoresLeadingLetters(t *testing.T) {
	for _, input := range []string{"hello world", "people", "list", "update"} {
		assert.Equal(t, paragraph(input), Render(input), input)
	}
}

func TestRenderHeadingWithInlineMarkup(t *testing.T) {
	assert.Equal(t,
		`<h2 class="`+h2Class+`">The <strong>Human</strong> Element</h2>`,
		Render("## The **Human** Element"))
}

func TestRenderEscapeHTML(t *testing.T) {
	r := New(Options{EscapeHTML: true})
	assert.Equal(t, paragraph("&lt;script&gt;alert(1)&lt;/script&gt;"), r.Render("<script>alert(1)</script>"))

	out := r.Render("```\n<b>x</b>\n```")
	assert.Contains(t, out, "&lt;b&gt;x&lt;/b&gt;")

	assert.Equal(t, paragraph("<script>alert(1)</script>"), Render("<script>alert(1)</script>"))
}

func TestRenderIgnoresPlaceholderRunesInInput(t *testing.T) {
	out := Render("a\uE0000\uE001b")
	assert.Equal(t, paragraph("a0b"), out)
}

func TestRenderSampleArticle(t *testing.T) {
	source := strings.Join([]string{
		"# The AI Revolution in Tech",
		"",
		"In recent years, **artificial intelligence** has transformed software.",
		"",
		"- Intelligent code completion",
		"- Automated bug detection",
		"",
		"*The above image shows an AI coding assistant in action.*",
	}, "\n")

	out := Render(source)
	assert.Equal(t, 1, strings.Count(out, "<h1"))
	assert.Equal(t, 2, strings.Count(out, "<li"))
	assert.Equal(t, 2, strings.Count(out, "<p "))
	assert.Contains(t, out, "<strong>artificial intelligence</strong>")
	assert.Contains(t, out, "<em>The above image shows an AI coding assistant in action.</em>")
	assert.Equal(t, 3, strings.Count(out, "<br/>"))
}

func TestCommonMarkEngine(t *testing.T) {
	r := New(Options{Engine: EngineCommonMark})
	out := r.Render("# Title\n\n- one\n- two\n")
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<ul>")

	assert.Contains(t, r.Render("<b>raw</b>"), "<b>raw</b>")
	assert.NotContains(t, New(Options{Engine: EngineCommonMark, EscapeHTML: true}).Render("<b>raw</b>\n"), "<b>raw</b>")
}

func TestParseEngine(t *testing.T) {
	engine, err := ParseEngine("")
	require.NoError(t, err)
	assert.Equal(t, EngineLegacy, engine)

	engine, err = ParseEngine(" CommonMark ")
	require.NoError(t, err)
	assert.Equal(t, EngineCommonMark, engine)

	_, err = ParseEngine("textile")
	assert.Error(t, err)
}
