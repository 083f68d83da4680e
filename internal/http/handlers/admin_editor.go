package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/studio16/internal/access"
	"github.com/diagnosis/studio16/internal/domain"
	"github.com/diagnosis/studio16/internal/editor"
	"github.com/diagnosis/studio16/internal/http/middleware"
	"github.com/diagnosis/studio16/internal/http/response"
	"github.com/diagnosis/studio16/internal/http/views"
	"github.com/diagnosis/studio16/pkg/config"
)

// EditorHandler serves the admin page and the editor actions behind the session gate.
type EditorHandler struct {
	Editor *editor.Editor
	Gate   *access.Gate
	Views  *views.Views
	Admin  config.AdminConfig
}

func NewEditorHandler(ed *editor.Editor, gate *access.Gate, v *views.Views, admin config.AdminConfig) *EditorHandler {
	return &EditorHandler{Editor: ed, Gate: gate, Views: v, Admin: admin}
}

// Routes are mounted under /admin next to the access routes.
func (h *EditorHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.page)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(h.Gate))
		r.Post("/artworks/{id}/edit", h.beginEdit)
		r.Post("/artworks/{id}/fields", h.editField)
		r.Post("/artworks/{id}/visibility", h.toggle)
		r.Post("/artworks/{id}/image", h.uploadImage)
		r.Post("/artworks/save-edit", h.saveEdit)
		r.Post("/artworks/cancel-edit", h.cancelEdit)
		r.Post("/save", h.saveAll)
		r.Get("/status", h.status)
		r.Post("/status/dismiss", h.dismissStatus)
		r.Get("/activity", h.activity)
	})
	return r
}

type gateView struct {
	OTPLength   int
	ExampleOTP  string
	ExamplePass string
}

type panelView struct {
	Artworks []domain.Artwork
	Status   domain.SaveStatus
	Log      []domain.ActivityEntry
	Staged   *domain.Artwork
}

// page shows the editor while the session is live and the access gate otherwise.
func (h *EditorHandler) page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dev := middleware.Device(r)

	state, err := h.Gate.Check(ctx, dev)
	if err != nil {
		response.FromError(ctx, w, err)
		return
	}
	if state != domain.GateGranted {
		h.Views.Render(w, r, http.StatusOK, "admin_gate", views.Page{
			Title: "Admin Access",
			Data:  gateView{OTPLength: h.Admin.OTPLength, ExampleOTP: h.Admin.ExampleOTP, ExamplePass: h.Admin.ExamplePass},
		})
		return
	}

	list, err := h.Editor.Working(ctx, dev)
	if err != nil {
		response.FromError(ctx, w, err)
		return
	}
	view := panelView{Artworks: list, Status: h.Editor.Status(dev)}
	if view.Log, err = h.Editor.ActivityLog(ctx, dev); err != nil {
		view.Log = nil
	}
	// newest first on the page
	for i, j := 0, len(view.Log)-1; i < j; i, j = i+1, j-1 {
		view.Log[i], view.Log[j] = view.Log[j], view.Log[i]
	}
	if staged, ok, err := h.Editor.Staged(ctx, dev); err == nil && ok {
		view.Staged = &staged
	}
	h.Views.Render(w, r, http.StatusOK, "admin", views.Page{Title: "Studio Admin", Data: view})
}

func (h *EditorHandler) beginEdit(w http.ResponseWriter, r *http.Request) {
	art, err := h.Editor.BeginEdit(r.Context(), middleware.Device(r), chi.URLParam(r, "id"))
	h.writeArtwork(w, r, art, err)
}

type fieldIn struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *EditorHandler) editField(w http.ResponseWriter, r *http.Request) {
	var in fieldIn
	if !decodeJSON(w, r, &in) {
		return
	}
	art, err := h.Editor.EditField(r.Context(), middleware.Device(r), chi.URLParam(r, "id"), domain.ArtworkField(in.Field), in.Value)
	h.writeArtwork(w, r, art, err)
}

func (h *EditorHandler) saveEdit(w http.ResponseWriter, r *http.Request) {
	art, err := h.Editor.SaveEdit(r.Context(), middleware.Device(r))
	h.writeArtwork(w, r, art, err)
}

func (h *EditorHandler) cancelEdit(w http.ResponseWriter, r *http.Request) {
	if err := h.Editor.CancelEdit(r.Context(), middleware.Device(r)); err != nil {
		response.FromError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EditorHandler) toggle(w http.ResponseWriter, r *http.Request) {
	art, err := h.Editor.ToggleVisibility(r.Context(), middleware.Device(r), chi.URLParam(r, "id"))
	h.writeArtwork(w, r, art, err)
}

type imageOut struct {
	Image string `json:"image"`
}

func (h *EditorHandler) uploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, editor.MaxImageBytes+1<<20)
	file, header, err := r.FormFile("image")
	if err != nil {
		response.BadRequest(w, "image file is required")
		return
	}
	defer file.Close()

	uri, err := h.Editor.UploadImage(r.Context(), middleware.Device(r), chi.URLParam(r, "id"), header.Header.Get("Content-Type"), file)
	if err != nil {
		response.FromError(r.Context(), w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, imageOut{Image: uri})
}

type statusOut struct {
	Status domain.SaveStatus `json:"status"`
}

func (h *EditorHandler) saveAll(w http.ResponseWriter, r *http.Request) {
	dev := middleware.Device(r)
	if err := h.Editor.SaveAll(r.Context(), dev); err != nil {
		response.FromError(r.Context(), w, err)
		return
	}
	response.WriteJSON(w, http.StatusAccepted, statusOut{Status: h.Editor.Status(dev)})
}

func (h *EditorHandler) status(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, statusOut{Status: h.Editor.Status(middleware.Device(r))})
}

func (h *EditorHandler) dismissStatus(w http.ResponseWriter, r *http.Request) {
	dev := middleware.Device(r)
	h.Editor.ResetStatus(dev)
	response.WriteJSON(w, http.StatusOK, statusOut{Status: h.Editor.Status(dev)})
}

func (h *EditorHandler) activity(w http.ResponseWriter, r *http.Request) {
	log, err := h.Editor.ActivityLog(r.Context(), middleware.Device(r))
	if err != nil {
		response.FromError(r.Context(), w, err)
		return
	}
	if log == nil {
		log = []domain.ActivityEntry{}
	}
	response.WriteJSON(w, http.StatusOK, log)
}

func (h *EditorHandler) writeArtwork(w http.ResponseWriter, r *http.Request, art domain.Artwork, err error) {
	if err != nil {
		response.FromError(r.Context(), w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, art)
}
