package catalog

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.Typographer))

	descriptionPolicy = newDescriptionPolicy()
)

// Descriptions carry small inline markup such as the flag icon after the text.
func newDescriptionPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").OnElements("span", "img")
	policy.AllowAttrs("loading").OnElements("img")
	policy.RequireNoFollowOnLinks(true)
	return policy
}

func renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(strings.TrimSpace(src)), &buf); err != nil {
		return "", fmt.Errorf("catalog: render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// DescriptionHTML sanitizes an artwork description for rendering. Descriptions can be edited
// on the device, so they are never trusted as-is.
func DescriptionHTML(raw string) template.HTML {
	return template.HTML(strings.TrimSpace(descriptionPolicy.Sanitize(raw)))
}

// Excerpt returns the visible text of an HTML fragment, cut at a word boundary within max
// runes. Used for meta descriptions and image alt text.
func Excerpt(fragment string, max int) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				return ""
			}
			break
		}
		if tt == html.TextToken {
			b.Write(z.Text())
		}
	}

	text := strings.Join(strings.Fields(b.String()), " ")
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}
	cut := string(runes[:max])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, ",.;: ") + "…"
}
