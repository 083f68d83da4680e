package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/studio16/internal/http/middleware"
	"github.com/diagnosis/studio16/internal/http/response"
)

// maxStoredValue allows a saved catalog carrying uploaded images.
const maxStoredValue = 32 << 20

// DeviceStorageHandler exposes the requesting device's key-value storage to that device,
// like localStorage in the browser's developer tools. Nothing here is checked against the
// admin session: a device can read its pending code or write its own session record.
type DeviceStorageHandler struct{}

func NewDeviceStorageHandler() *DeviceStorageHandler { return &DeviceStorageHandler{} }

func (h *DeviceStorageHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.keys)
	r.Get("/{key}", h.get)
	r.Put("/{key}", h.set)
	r.Delete("/{key}", h.delete)
	return r
}

type keysOut struct {
	Keys []string `json:"keys"`
}

type entryOut struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (h *DeviceStorageHandler) keys(w http.ResponseWriter, r *http.Request) {
	keys, err := middleware.Device(r).Keys(r.Context())
	if err != nil {
		response.FromError(r.Context(), w, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	response.WriteJSON(w, http.StatusOK, keysOut{Keys: keys})
}

func (h *DeviceStorageHandler) get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, ok, err := middleware.Device(r).Get(r.Context(), key)
	if err != nil {
		response.FromError(r.Context(), w, err)
		return
	}
	if !ok {
		response.NotFound(w, "key not set")
		return
	}
	response.WriteJSON(w, http.StatusOK, entryOut{Key: key, Value: value})
}

// set stores the raw request body as the value.
func (h *DeviceStorageHandler) set(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStoredValue))
	if err != nil {
		response.BadRequest(w, "value too large")
		return
	}
	if err := middleware.Device(r).Set(r.Context(), chi.URLParam(r, "key"), string(body)); err != nil {
		response.FromError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DeviceStorageHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := middleware.Device(r).Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		response.FromError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
