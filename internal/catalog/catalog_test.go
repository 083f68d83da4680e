package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/studio16/internal/domain"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	arts := c.Artworks()
	require.Len(t, arts, 12)
	assert.Equal(t, "studio-photo-session", arts[0].ID)
	assert.True(t, arts[0].ForSale)

	i := domain.FindArtwork(arts, "journey-to-nibru")
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, 2024, arts[i].Year)
	assert.Equal(t, "Human Nature", arts[i].Series)

	ex, ok := c.Exhibition("rise-of-marduk")
	require.True(t, ok)
	assert.Equal(t, "Studio 1.6", ex.Gallery)
	assert.Equal(t, "Nairobi, Kenya", ex.Location)
	assert.Equal(t, "2025-01-01", ex.StartDate)
	assert.Len(t, c.Exhibitions(), 5)
}

func TestArtworksReturnsCopy(t *testing.T) {
	c := MustLoad()
	arts := c.Artworks()
	arts[0].Title = "changed"
	assert.Equal(t, "Studio Photo Session", c.Artworks()[0].Title)
}

func TestBiography(t *testing.T) {
	bio := MustLoad().Biography()
	assert.Equal(t, "Mwass Githinji", bio.Name)
	assert.Equal(t, 1995, bio.Born)
	assert.Contains(t, string(bio.Lead), "<h2>Practice &amp; Philosophy</h2>")
	assert.Contains(t, string(bio.Lead), "<em>Buruburu Institute of Fine Arts</em>")
	assert.NotContains(t, string(bio.Lead), "Norval")
	assert.Contains(t, string(bio.More), "<strong>Studio 1.6</strong>")
	assert.Contains(t, string(bio.More), "Norval Sovereign")
}

func TestVisibleAndFeatured(t *testing.T) {
	list := []domain.Artwork{{ID: "a", ForSale: true}, {ID: "b"}, {ID: "c", ForSale: true}, {ID: "d", ForSale: true}}
	assert.Equal(t, []string{"a", "c", "d"}, ids(Visible(list)))
	assert.Equal(t, []string{"a", "c"}, ids(Featured(list, 2)))
}

func ids(list []domain.Artwork) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}

func TestDescriptionHTML(t *testing.T) {
	raw := `Enki.<span class='flag-icon'><img src='/images/kenyan-flag.png' alt='Kenyan Flag' style='width: 20px'/></span><script>alert(1)</script>`
	got := string(DescriptionHTML(raw))

	assert.Contains(t, got, `<span class="flag-icon">`)
	assert.Contains(t, got, `src="/images/kenyan-flag.png"`)
	assert.NotContains(t, got, "<script")
	assert.NotContains(t, got, "style=")
}

func TestExcerpt(t *testing.T) {
	raw := `Damu, once a vegetation god tied to seasonal cycles.<span class='flag-icon'><img src='/x.png' alt='Kenyan Flag'/></span>`
	assert.Equal(t, "Damu, once a vegetation god tied to seasonal cycles.", Excerpt(raw, 0))

	short := Excerpt(raw, 20)
	assert.True(t, strings.HasSuffix(short, "…"))
	assert.Equal(t, "Damu, once a…", short)
}

func TestSplitFrontMatter_IgnoresByteOrderMark(t *testing.T) {
	fm, body := splitFrontMatter("\uFEFF---\nname: Mwass\n---\n\nBody text")
	assert.Equal(t, "name: Mwass", fm)
	assert.Equal(t, "Body text", body)

	fm, body = splitFrontMatter("no front matter")
	assert.Empty(t, fm)
	assert.Equal(t, "no front matter", body)
}
