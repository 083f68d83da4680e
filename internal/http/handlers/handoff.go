package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/studio16/internal/http/response"
	"github.com/diagnosis/studio16/internal/messaging"
)

// handoffView tells the page how to finish a hand-off. Desktop responses carry the web URL
// to open. Mobile responses carry the app URI and a ticket: the page reports navigation on
// the ticket and asks it for the outcome.
type handoffView struct {
	Surface messaging.Surface `json:"surface,omitempty"`
	WebURL  string            `json:"webUrl,omitempty"`
	Mobile  bool              `json:"mobile"`
	AppURI  string            `json:"appUri,omitempty"`
	Ticket  string            `json:"ticket,omitempty"`
}

type sendFunc func(ctx context.Context, opener messaging.Opener) (messaging.Surface, error)

var errNoApp = errors.New("desktop browsers have no app to open")

// webOpener records the URL the desktop page should open itself.
type webOpener struct{ url string }

func (o *webOpener) OpenApp(context.Context, string) (<-chan struct{}, error) { return nil, errNoApp }

func (o *webOpener) OpenWeb(_ context.Context, url string) error {
	o.url = url
	return nil
}

// launch runs send against the requesting browser. On mobile the app-or-web race keeps
// running on a relay ticket after this returns.
func launch(r *http.Request, relay *messaging.Relay, send sendFunc) (handoffView, error) {
	if !messaging.IsMobile(r.UserAgent()) {
		op := &webOpener{}
		surface, err := send(r.Context(), op)
		if err != nil {
			return handoffView{}, err
		}
		return handoffView{Surface: surface, WebURL: op.url}, nil
	}

	ticket := relay.Open(r.Context())
	go func() { ticket.Finish(send(ticket.Context(), ticket)) }()

	select {
	case <-ticket.Ready():
	case <-r.Context().Done():
		return handoffView{}, r.Context().Err()
	}
	select {
	case <-ticket.Done():
		surface, web, err := ticket.Outcome()
		if err != nil {
			return handoffView{}, err
		}
		return handoffView{Surface: surface, WebURL: web}, nil
	default:
	}
	app, _ := ticket.Links()
	return handoffView{Mobile: true, AppURI: app, Ticket: ticket.ID()}, nil
}

// RelayHandler is the browser side of a mobile hand-off ticket.
type RelayHandler struct {
	Relay *messaging.Relay
}

func NewRelayHandler(relay *messaging.Relay) *RelayHandler {
	return &RelayHandler{Relay: relay}
}

func (h *RelayHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{id}/navigated", h.navigated)
	r.Get("/{id}/outcome", h.outcome)
	return r
}

func (h *RelayHandler) navigated(w http.ResponseWriter, r *http.Request) {
	ticket, ok := h.Relay.Get(chi.URLParam(r, "id"))
	if !ok {
		response.NotFound(w, "hand-off not found")
		return
	}
	ticket.MarkNavigated()
	w.WriteHeader(http.StatusNoContent)
}

type outcomeOut struct {
	Surface messaging.Surface `json:"surface"`
	WebURL  string            `json:"webUrl,omitempty"`
}

// outcome waits for the race to finish. The page may be frozen in the background while it
// waits; that is fine, the answer is only needed if it comes back.
func (h *RelayHandler) outcome(w http.ResponseWriter, r *http.Request) {
	ticket, ok := h.Relay.Get(chi.URLParam(r, "id"))
	if !ok {
		response.NotFound(w, "hand-off not found")
		return
	}
	select {
	case <-ticket.Done():
	case <-ticket.Context().Done():
		response.NotFound(w, "hand-off expired")
		return
	case <-r.Context().Done():
		return
	}
	surface, web, err := ticket.Outcome()
	if err != nil {
		response.FromError(r.Context(), w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, outcomeOut{Surface: surface, WebURL: web})
}
