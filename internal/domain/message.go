package domain

import "fmt"

type ContextKind string

const (
	ContextGeneral           ContextKind = "general"
	ContextStudioAppointment ContextKind = "studio-appointment"
	ContextArtworkInquiry    ContextKind = "artwork-inquiry"
)

func ParseContextKind(s string) (ContextKind, bool) {
	switch ContextKind(s) {
	case ContextGeneral, ContextStudioAppointment, ContextArtworkInquiry:
		return ContextKind(s), true
	default:
		return "", false
	}
}

// MessageContext is the reason a visitor is being routed into the WhatsApp hand-off.
type MessageContext struct {
	Kind           ContextKind `json:"type"`
	ArtworkTitle   string      `json:"artworkTitle,omitempty"`
	ArtworkYear    int         `json:"artworkYear,omitempty"`
	ArtworkSeries  string      `json:"artworkSeries,omitempty"`
	PrefillMessage string      `json:"prefillMessage,omitempty"`
	FromStudio     bool        `json:"fromStudio,omitempty"`
	FromExhibition bool        `json:"fromExhibition,omitempty"`
}

func (m *MessageContext) Validate() error {
	if _, ok := ParseContextKind(string(m.Kind)); !ok {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown context type %q", m.Kind)}
	}
	if m.Kind == ContextArtworkInquiry && m.ArtworkTitle == "" {
		return &ValidationError{Field: "artworkTitle", Message: "artwork title is required"}
	}
	return nil
}

// ArtworkChatContext is the artwork-scoped payload kept alongside the prefilled message.
type ArtworkChatContext struct {
	Title  string `json:"title"`
	Year   int    `json:"year"`
	Series string `json:"series,omitempty"`
}
