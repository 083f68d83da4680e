package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"github.com/diagnosis/studio16/internal/chat"
	"github.com/diagnosis/studio16/internal/domain"
	"github.com/diagnosis/studio16/internal/http/middleware"
	"github.com/diagnosis/studio16/internal/http/response"
	"github.com/diagnosis/studio16/internal/messaging"
	"github.com/diagnosis/studio16/pkg/events"
	"github.com/diagnosis/studio16/pkg/logger"
)

type ChatHandler struct {
	Chat   *chat.Store
	Relay  *messaging.Relay
	Events events.Publisher
	Clock  clockwork.Clock
}

func NewChatHandler(store *chat.Store, relay *messaging.Relay, pub events.Publisher, clk clockwork.Clock) *ChatHandler {
	return &ChatHandler{Chat: store, Relay: relay, Events: pub, Clock: clk}
}

func (h *ChatHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.get)
	r.Post("/context", h.setContext)
	r.Post("/send", h.send)
	r.Post("/close", h.close)
	r.Mount("/handoff", NewRelayHandler(h.Relay).Routes())
	return r
}

type chatOut struct {
	Message  string                     `json:"message"`
	Artwork  *domain.ArtworkChatContext `json:"artwork,omitempty"`
	Prefills []prefillOut               `json:"prefills,omitempty"`
}

type prefillOut struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

func (h *ChatHandler) get(w http.ResponseWriter, r *http.Request) {
	dev := middleware.Device(r)
	msg, err := h.Chat.GenerateMessage(r.Context(), dev)
	if err != nil {
		response.FromError(r.Context(), w, err)
		return
	}
	out := chatOut{Message: msg}
	if ac, ok, err := h.Chat.ArtworkContext(r.Context(), dev); err == nil && ok {
		out.Artwork = &ac
	}
	for _, p := range chat.QuickPrefills {
		out.Prefills = append(out.Prefills, prefillOut{Label: p.Label, Message: p.Message})
	}
	response.WriteJSON(w, http.StatusOK, out)
}

func (h *ChatHandler) setContext(w http.ResponseWriter, r *http.Request) {
	var in domain.MessageContext
	if !decodeJSON(w, r, &in) {
		return
	}
	msg, err := h.Chat.SetContext(r.Context(), middleware.Device(r), in)
	if err != nil {
		response.FromError(r.Context(), w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, chatOut{Message: msg})
}

type sendIn struct {
	Message string `json:"message"`
}

func (h *ChatHandler) send(w http.ResponseWriter, r *http.Request) {
	var in sendIn
	if !decodeJSON(w, r, &in) {
		return
	}
	dev := middleware.Device(r)
	ua := r.UserAgent()

	kind := domain.ContextGeneral
	if _, ok, err := h.Chat.ArtworkContext(r.Context(), dev); err == nil && ok {
		kind = domain.ContextArtworkInquiry
	}

	view, err := launch(r, h.Relay, func(ctx context.Context, op messaging.Opener) (messaging.Surface, error) {
		surface, err := h.Chat.SendAndClear(ctx, dev, op, ua, in.Message)
		if err != nil {
			return "", err
		}
		ev := events.HandoffEvent{Device: dev.ID(), Kind: string(kind), Surface: string(surface), At: h.Clock.Now()}
		if err := h.Events.Publish(ctx, events.ChatHandoff, ev); err != nil {
			logger.WarnContext(ctx, "failed to publish hand-off event", "error", err)
		}
		return surface, nil
	})
	if err != nil {
		response.FromError(r.Context(), w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, view)
}

func (h *ChatHandler) close(w http.ResponseWriter, r *http.Request) {
	if err := h.Chat.ClearContext(r.Context(), middleware.Device(r)); err != nil {
		response.FromError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
