package handlers

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/studio16/internal/catalog"
	"github.com/diagnosis/studio16/internal/domain"
	"github.com/diagnosis/studio16/internal/editor"
	"github.com/diagnosis/studio16/internal/http/middleware"
	"github.com/diagnosis/studio16/internal/http/response"
	"github.com/diagnosis/studio16/internal/http/views"
)

const (
	featuredCount = 6
	relatedCount  = 3

	exhibitionPrefill = "Hello Mwass, I'd like to book a private viewing of 'Echoes of the Savannah' exhibition at Studio 1.6."
	contactPrefill    = "Hello Mwass, I'd like to get in touch with Studio 1.6."
)

// PagesHandler serves the public site. Artwork lists come from the editor so a device sees
// its own saved edits, filtered to the artworks marked visible.
type PagesHandler struct {
	Views   *views.Views
	Catalog *catalog.Catalog
	Editor  *editor.Editor
}

func NewPagesHandler(v *views.Views, c *catalog.Catalog, ed *editor.Editor) *PagesHandler {
	return &PagesHandler{Views: v, Catalog: c, Editor: ed}
}

func (h *PagesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.home)
	r.Get("/about", h.about)
	r.Get("/artworks", h.artworks)
	r.Get("/artworks/{id}", h.artwork)
	r.Get("/exhibitions", h.exhibitions)
	r.Get("/contact", h.contact)
	r.Get("/studio", h.studio)
	return r
}

type homeView struct {
	Featured []domain.Artwork
	Bio      catalog.Biography
}

type artworksView struct {
	Artworks []domain.Artwork
	Years    []int
	Active   int
	Series   []string
}

type artworkView struct {
	Artwork domain.Artwork
	Related []domain.Artwork
}

type studioView struct {
	ExhibitionPrefill string
	GeneralPrefill    string
}

func (h *PagesHandler) visible(w http.ResponseWriter, r *http.Request) ([]domain.Artwork, bool) {
	list, err := h.Editor.Artworks(r.Context(), middleware.Device(r))
	if err != nil {
		response.FromError(r.Context(), w, err)
		return nil, false
	}
	return catalog.Visible(list), true
}

func (h *PagesHandler) home(w http.ResponseWriter, r *http.Request) {
	list, ok := h.visible(w, r)
	if !ok {
		return
	}
	h.Views.Render(w, r, http.StatusOK, "home", views.Page{
		Data: homeView{Featured: catalog.Featured(list, featuredCount), Bio: h.Catalog.Biography()},
	})
}

func (h *PagesHandler) about(w http.ResponseWriter, r *http.Request) {
	bio := h.Catalog.Biography()
	h.Views.Render(w, r, http.StatusOK, "about", views.Page{
		Title:       "About",
		Description: catalog.Excerpt(string(bio.Lead), 160),
		Data:        bio,
	})
}

func (h *PagesHandler) artworks(w http.ResponseWriter, r *http.Request) {
	all, ok := h.visible(w, r)
	if !ok {
		return
	}

	view := artworksView{Artworks: all}
	for _, a := range all {
		if !slices.Contains(view.Years, a.Year) {
			view.Years = append(view.Years, a.Year)
		}
		if a.Series != "" && !slices.Contains(view.Series, a.Series) {
			view.Series = append(view.Series, a.Series)
		}
	}
	slices.Sort(view.Years)
	slices.Reverse(view.Years)

	if year, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil {
		view.Active = year
		view.Artworks = nil
		for _, a := range all {
			if a.Year == year {
				view.Artworks = append(view.Artworks, a)
			}
		}
	}
	h.Views.Render(w, r, http.StatusOK, "artworks", views.Page{Title: "Artworks", Data: view})
}

func (h *PagesHandler) artwork(w http.ResponseWriter, r *http.Request) {
	list, ok := h.visible(w, r)
	if !ok {
		return
	}
	i := domain.FindArtwork(list, chi.URLParam(r, "id"))
	if i < 0 {
		h.NotFound(w, r)
		return
	}
	art := list[i]

	var related []domain.Artwork
	for _, a := range list {
		if a.ID != art.ID && len(related) < relatedCount {
			related = append(related, a)
		}
	}
	h.Views.Render(w, r, http.StatusOK, "artwork", views.Page{
		Title:       art.Title,
		Description: catalog.Excerpt(art.Description, 160),
		Data:        artworkView{Artwork: art, Related: related},
	})
}

func (h *PagesHandler) exhibitions(w http.ResponseWriter, r *http.Request) {
	h.Views.Render(w, r, http.StatusOK, "exhibitions", views.Page{Title: "Exhibitions", Data: h.Catalog.Exhibitions()})
}

func (h *PagesHandler) contact(w http.ResponseWriter, r *http.Request) {
	h.Views.Render(w, r, http.StatusOK, "contact", views.Page{Title: "Contact"})
}

func (h *PagesHandler) studio(w http.ResponseWriter, r *http.Request) {
	h.Views.Render(w, r, http.StatusOK, "studio", views.Page{
		Title: "Studio 1.6",
		Data:  studioView{ExhibitionPrefill: exhibitionPrefill, GeneralPrefill: contactPrefill},
	})
}

func (h *PagesHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.Views.Render(w, r, http.StatusNotFound, "not_found", views.Page{Title: "Not Found"})
}
