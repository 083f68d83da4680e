package handlers

import (
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/diagnosis/studio16/internal/http/response"
	"github.com/diagnosis/studio16/internal/utils"
	"github.com/diagnosis/studio16/pkg/logger"
)

const (
	contactSent       = "Message sent successfully. We'll respond within 48 hours."
	maxContactName    = 200
	maxContactMessage = 5000
)

// ContactHandler accepts the contact form. Submissions are acknowledged after a short delay
// and go nowhere else.
type ContactHandler struct {
	Clock clockwork.Clock
	Delay time.Duration
}

func NewContactHandler(clk clockwork.Clock, delay time.Duration) *ContactHandler {
	return &ContactHandler{Clock: clk, Delay: delay}
}

type contactIn struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type messageOut struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Submit answers the contact form. It shares /contact with the contact page.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in contactIn
	if !decodeJSON(w, r, &in) {
		return
	}
	if !utils.WithinLength(in.Name, maxContactName) {
		response.WriteErrorWithDetails(w, http.StatusBadRequest, "Name is required", response.CodeInvalidInput, "name")
		return
	}
	if !utils.IsValidEmail(in.Email) {
		response.WriteErrorWithDetails(w, http.StatusBadRequest, "Invalid email format", response.CodeInvalidInput, "email")
		return
	}
	if !utils.WithinLength(in.Message, maxContactMessage) {
		response.WriteErrorWithDetails(w, http.StatusBadRequest, "Message is required", response.CodeInvalidInput, "message")
		return
	}

	select {
	case <-h.Clock.After(h.Delay):
	case <-r.Context().Done():
		return
	}
	logger.InfoContext(r.Context(), "contact form submitted", "message_length", len(utils.NormalizeString(in.Message)))
	response.WriteJSON(w, http.StatusOK, messageOut{Success: true, Message: contactSent})
}
