// Package views renders the site's pages from embedded html/template files.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/diagnosis/studio16/internal/catalog"
	"github.com/diagnosis/studio16/internal/chat"
	"github.com/diagnosis/studio16/pkg/logger"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static
var static embed.FS

// Page is what every template receives. Data holds the page-specific view model.
type Page struct {
	Title       string
	Description string
	Path        string
	Data        any
}

type Views struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"richtext": catalog.DescriptionHTML,
	"excerpt":  catalog.Excerpt,
	"imgsrc":   imageSource,
	"prefills": func() []chat.QuickPrefill { return chat.QuickPrefills },
}

// imageSource lets uploaded data URIs through as image sources; html/template would
// otherwise replace them.
func imageSource(src string) template.URL {
	if strings.HasPrefix(src, "data:image/") || strings.HasPrefix(src, "/") || strings.HasPrefix(src, "https://") {
		return template.URL(src)
	}
	return template.URL("#")
}

// New parses each page together with the shared layout.
func New() (*Views, error) {
	names, err := fs.Glob(templates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	v := &Views{pages: make(map[string]*template.Template)}
	for _, name := range names {
		base := strings.TrimSuffix(strings.TrimPrefix(name, "templates/"), ".html")
		if base == "layout" {
			continue
		}
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templates, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("views: parse %s: %w", name, err)
		}
		v.pages[base] = t
	}
	return v, nil
}

// Render executes page into a buffer first so a template error never leaves a half-written
// response.
func (v *Views) Render(w http.ResponseWriter, r *http.Request, status int, page string, p Page) {
	t, ok := v.pages[page]
	if !ok {
		logger.ErrorContext(r.Context(), "unknown page", "page", page)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if p.Path == "" {
		p.Path = r.URL.Path
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, p); err != nil {
		logger.ErrorContext(r.Context(), "failed to render page", "page", page, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Static serves the embedded assets; mount it under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
