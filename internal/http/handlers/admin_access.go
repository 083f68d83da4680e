package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"github.com/diagnosis/studio16/internal/access"
	"github.com/diagnosis/studio16/internal/domain"
	"github.com/diagnosis/studio16/internal/http/middleware"
	"github.com/diagnosis/studio16/internal/http/response"
	"github.com/diagnosis/studio16/internal/messaging"
	"github.com/diagnosis/studio16/pkg/events"
	"github.com/diagnosis/studio16/pkg/logger"
)

const (
	msgCodeSent       = "✅ OTP sent to WhatsApp! Check your messages."
	msgCodeFailed     = "Failed to send OTP. Please try again."
	msgPasswordLength = "Admin password must be 5 characters"
	msgGranted        = "🔓 Access granted! Redirecting to admin panel..."
	msgInvalid        = "❌ Invalid credentials. Please try again."
	msgVerifyFailed   = "Verification failed. Please try again."
)

// AccessHandler runs the admin access gate: code request, verification, logout and the
// liveness stream the admin page listens on.
type AccessHandler struct {
	Issuer        *access.Issuer
	Verifier      *access.Verifier
	Gate          *access.Gate
	Operator      *messaging.Handoff
	Events        events.Publisher
	Clock         clockwork.Clock
	CodeLength    int
	LivenessEvery time.Duration
	// Stopping ends open liveness streams when the server shuts down.
	Stopping context.Context
}

func (h *AccessHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/request", h.request)
	r.Post("/verify", h.verify)
	return r
}

type codeOut struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	WebURL  string `json:"webUrl,omitempty"`
}

// request issues a code and hands the message to the operator number. The code message
// always goes to wa.me, on every device.
func (h *AccessHandler) request(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dev := middleware.Device(r)

	op := &webOpener{}
	pending, err := h.Issuer.SendCode(ctx, dev, func(ctx context.Context, message string) error {
		_, err := h.Operator.Send(ctx, op, "", message)
		return err
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to send admin code", "error", err)
		response.WriteJSON(w, http.StatusBadGateway, codeOut{Message: msgCodeFailed})
		return
	}

	h.publish(ctx, events.AdminCodeIssued, events.AccessEvent{Device: dev.ID(), ExpiresAt: pending.ExpiresAt, At: h.Clock.Now()})
	response.WriteJSON(w, http.StatusOK, codeOut{Success: true, Message: msgCodeSent, WebURL: op.url})
}

type verifyIn struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

func (h *AccessHandler) verify(w http.ResponseWriter, r *http.Request) {
	var in verifyIn
	if !decodeJSON(w, r, &in) {
		return
	}
	if utf8.RuneCountInString(in.Code) != h.CodeLength {
		response.WriteJSON(w, http.StatusBadRequest, messageOut{Message: fmt.Sprintf("OTP must be exactly %d characters", h.CodeLength)})
		return
	}
	if utf8.RuneCountInString(in.Password) != domain.AdminPasswordLen {
		response.WriteJSON(w, http.StatusBadRequest, messageOut{Message: msgPasswordLength})
		return
	}

	ctx := r.Context()
	dev := middleware.Device(r)
	ok, err := h.Verifier.Verify(ctx, dev, in.Code, in.Password)
	var expired *domain.ExpiryError
	switch {
	case errors.As(err, &expired):
		logger.InfoContext(ctx, "admin code expired")
	case err != nil:
		logger.ErrorContext(ctx, "admin verification failed", "error", err)
		response.WriteJSON(w, http.StatusInternalServerError, messageOut{Message: msgVerifyFailed})
		return
	}
	if !ok {
		response.WriteJSON(w, http.StatusUnauthorized, messageOut{Message: msgInvalid})
		return
	}

	if _, err := h.Gate.Check(ctx, dev); err != nil {
		logger.WarnContext(ctx, "gate check after verification", "error", err)
	}
	h.publish(ctx, events.AdminAccessGranted, events.AccessEvent{Device: dev.ID(), At: h.Clock.Now()})
	response.WriteJSON(w, http.StatusOK, messageOut{Success: true, Message: msgGranted})
}

type logoutOut struct {
	Redirect string `json:"redirect"`
}

// Logout ends the session and sends the page back to the studio.
func (h *AccessHandler) Logout(w http.ResponseWriter, r *http.Request) {
	dev := middleware.Device(r)
	if err := h.Gate.Logout(r.Context(), dev); err != nil {
		response.FromError(r.Context(), w, err)
		return
	}
	h.publish(r.Context(), events.AdminLoggedOut, events.AccessEvent{Device: dev.ID(), At: h.Clock.Now()})
	response.WriteJSON(w, http.StatusOK, logoutOut{Redirect: "/studio"})
}

// Liveness streams the gate state as server-sent events: checking, the result of the first
// check, and denied when a later check finds the session gone. The stream ends after denied.
func (h *AccessHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, "streaming unsupported")
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	if h.Stopping != nil {
		defer context.AfterFunc(h.Stopping, cancel)()
	}
	dev := middleware.Device(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(state domain.GateState) {
		fmt.Fprintf(w, "event: state\ndata: %s\n\n", state)
		flusher.Flush()
	}

	emit(domain.GateChecking)
	state, err := h.Gate.Check(ctx, dev)
	if err != nil {
		logger.WarnContext(ctx, "liveness check failed", "error", err)
	}
	emit(state)
	if state != domain.GateGranted {
		return
	}
	for state := range h.Gate.Watch(ctx, dev, h.LivenessEvery) {
		emit(state)
	}
}

func (h *AccessHandler) publish(ctx context.Context, subject string, ev events.AccessEvent) {
	if err := h.Events.Publish(ctx, subject, ev); err != nil {
		logger.WarnContext(ctx, "failed to publish access event", "subject", subject, "error", err)
	}
}
