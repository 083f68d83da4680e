// Package catalog holds the site's built-in content: artworks, exhibitions and the artist
// biography, embedded at build time.
package catalog

import (
	"embed"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/diagnosis/studio16/internal/domain"
)

//go:embed data/catalog.yaml data/biography.md
var files embed.FS

type Catalog struct {
	artworks    []domain.Artwork
	exhibitions []domain.Exhibition
	bio         Biography
}

// Biography is the About page. Lead is shown up front; More sits behind "Continue Reading".
type Biography struct {
	Name     string
	Born     int
	Country  string
	Portrait string
	Lead     template.HTML
	More     template.HTML
}

type catalogFile struct {
	Artworks    []domain.Artwork    `yaml:"artworks"`
	Exhibitions []domain.Exhibition `yaml:"exhibitions"`
}

type bioFrontMatter struct {
	Name     string `yaml:"name"`
	Born     int    `yaml:"born"`
	Country  string `yaml:"country"`
	Portrait string `yaml:"portrait"`
}

const moreMarker = "<!-- more -->"

// Load parses the embedded content.
func Load() (*Catalog, error) {
	raw, err := files.ReadFile("data/catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("catalog: read: %w", err)
	}
	var cf catalogFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	seen := make(map[string]bool, len(cf.Artworks))
	for _, a := range cf.Artworks {
		if a.ID == "" || seen[a.ID] {
			return nil, fmt.Errorf("catalog: missing or duplicate artwork id %q", a.ID)
		}
		seen[a.ID] = true
	}

	bio, err := loadBiography()
	if err != nil {
		return nil, err
	}
	return &Catalog{artworks: cf.Artworks, exhibitions: cf.Exhibitions, bio: bio}, nil
}

// MustLoad is Load for package init and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func loadBiography() (Biography, error) {
	raw, err := files.ReadFile("data/biography.md")
	if err != nil {
		return Biography{}, fmt.Errorf("catalog: read biography: %w", err)
	}
	fm, body := splitFrontMatter(string(raw))
	var front bioFrontMatter
	if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
		return Biography{}, fmt.Errorf("catalog: parse biography front matter: %w", err)
	}

	lead, more, _ := strings.Cut(body, moreMarker)
	leadHTML, err := renderMarkdown(lead)
	if err != nil {
		return Biography{}, err
	}
	moreHTML, err := renderMarkdown(more)
	if err != nil {
		return Biography{}, err
	}
	return Biography{
		Name:     front.Name,
		Born:     front.Born,
		Country:  front.Country,
		Portrait: front.Portrait,
		Lead:     leadHTML,
		More:     moreHTML,
	}, nil
}

func splitFrontMatter(input string) (string, string) {
	lines := strings.Split(strings.TrimPrefix(input, "\uFEFF"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n\r")
		}
	}
	return "", input
}

// Artworks returns a copy of the built-in artworks in catalog order.
func (c *Catalog) Artworks() []domain.Artwork {
	return append([]domain.Artwork(nil), c.artworks...)
}

func (c *Catalog) Exhibitions() []domain.Exhibition {
	return append([]domain.Exhibition(nil), c.exhibitions...)
}

func (c *Catalog) Exhibition(id string) (domain.Exhibition, bool) {
	for _, e := range c.exhibitions {
		if e.ID == id {
			return e, true
		}
	}
	return domain.Exhibition{}, false
}

func (c *Catalog) Biography() Biography { return c.bio }

// Visible keeps the artworks flagged for display, preserving order.
func Visible(list []domain.Artwork) []domain.Artwork {
	out := make([]domain.Artwork, 0, len(list))
	for _, a := range list {
		if a.ForSale {
			out = append(out, a)
		}
	}
	return out
}

// Featured is the home page carousel: the first n visible artworks.
func Featured(list []domain.Artwork, n int) []domain.Artwork {
	v := Visible(list)
	if len(v) > n {
		v = v[:n]
	}
	return v
}
