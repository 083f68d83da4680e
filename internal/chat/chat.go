// Package chat keeps the visitor's reason for contacting the artist and turns it into the
// prefilled WhatsApp message.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/diagnosis/studio16/internal/domain"
	"github.com/diagnosis/studio16/internal/messaging"
	"github.com/diagnosis/studio16/internal/storage"
	"github.com/diagnosis/studio16/pkg/logger"
)

const (
	StudioMessage  = "Hello Mwass, I'd like to book an appointment to visit Studio 1.6."
	GeneralMessage = "Hello Mwass, I'm reaching out regarding Studio 1.6."
)

// QuickPrefill is one of the canned openers offered on the chat surface.
type QuickPrefill struct {
	Label   string
	Message string
}

var QuickPrefills = []QuickPrefill{
	{Label: "Acquire artwork", Message: "Hello Mwass, I'm interested in acquiring artwork from Studio 1.6."},
	{Label: "Commission", Message: "Hello Mwass, I'm interested in commissioning a new artwork."},
	{Label: "General inquiry", Message: "Hello Mwass, I have a general inquiry about Studio 1.6."},
}

// OpenFunc is notified whenever a context is set so the shell can present the chat surface.
type OpenFunc func(ctx context.Context, device string, mc domain.MessageContext)

type Store struct {
	handoff *messaging.Handoff

	mu    sync.RWMutex
	hooks []OpenFunc
}

func New(handoff *messaging.Handoff) *Store {
	return &Store{handoff: handoff}
}

func (s *Store) OnOpen(fn OpenFunc) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// ArtworkMessage renders the artwork-inquiry sentence.
func ArtworkMessage(title string, year int, series string) string {
	msg := fmt.Sprintf("Hello Mwass, I'm interested in \"%s\" (%d)", title, year)
	if series != "" {
		msg += " from the " + series + " Series"
	}
	return msg + "."
}

// SetContext records why the visitor is reaching out and stores the derived message.
// The other kind's stored message is always removed so a later context never inherits it.
func (s *Store) SetContext(ctx context.Context, dev *storage.Device, mc domain.MessageContext) (string, error) {
	if err := mc.Validate(); err != nil {
		return "", err
	}

	var msg string
	if mc.Kind == domain.ContextArtworkInquiry {
		msg = ArtworkMessage(mc.ArtworkTitle, mc.ArtworkYear, mc.ArtworkSeries)
		if err := dev.Set(ctx, storage.KeyArtworkMessage, msg); err != nil {
			return "", err
		}
		payload := domain.ArtworkChatContext{Title: mc.ArtworkTitle, Year: mc.ArtworkYear, Series: mc.ArtworkSeries}
		if err := dev.SetJSON(ctx, storage.KeyArtworkContext, payload); err != nil {
			return "", err
		}
		if err := dev.Delete(ctx, storage.KeyStudioMessage); err != nil {
			return "", err
		}
	} else {
		switch {
		case strings.TrimSpace(mc.PrefillMessage) != "":
			msg = mc.PrefillMessage
		case mc.Kind == domain.ContextStudioAppointment:
			msg = StudioMessage
		default:
			msg = GeneralMessage
		}
		if err := dev.Set(ctx, storage.KeyStudioMessage, msg); err != nil {
			return "", err
		}
		if err := dev.Delete(ctx, storage.KeyArtworkMessage, storage.KeyArtworkContext); err != nil {
			return "", err
		}
	}

	logger.DebugContext(ctx, "chat context set", "kind", mc.Kind)
	s.notify(ctx, dev.ID(), mc)
	return msg, nil
}

func (s *Store) notify(ctx context.Context, device string, mc domain.MessageContext) {
	s.mu.RLock()
	hooks := append([]OpenFunc(nil), s.hooks...)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(ctx, device, mc)
	}
}

// GenerateMessage prefers the artwork message, then the studio one, then the general default.
func (s *Store) GenerateMessage(ctx context.Context, dev *storage.Device) (string, error) {
	for _, key := range []string{storage.KeyArtworkMessage, storage.KeyStudioMessage} {
		v, ok, err := dev.Get(ctx, key)
		if err != nil {
			return "", err
		}
		if ok && v != "" {
			return v, nil
		}
	}
	return GeneralMessage, nil
}

// ArtworkContext returns the artwork the visitor is asking about, if any.
func (s *Store) ArtworkContext(ctx context.Context, dev *storage.Device) (domain.ArtworkChatContext, bool, error) {
	var ac domain.ArtworkChatContext
	ok, err := dev.GetJSON(ctx, storage.KeyArtworkContext, &ac)
	return ac, ok, err
}

func (s *Store) ClearContext(ctx context.Context, dev *storage.Device) error {
	return dev.Delete(ctx, storage.KeyArtworkMessage, storage.KeyArtworkContext, storage.KeyStudioMessage)
}

// SendAndClear hands off custom (or the generated message when custom is blank) to the
// studio number and clears the context. The context is kept when the hand-off fails.
func (s *Store) SendAndClear(ctx context.Context, dev *storage.Device, opener messaging.Opener, userAgent, custom string) (messaging.Surface, error) {
	msg := strings.TrimSpace(custom)
	if msg == "" {
		var err error
		if msg, err = s.GenerateMessage(ctx, dev); err != nil {
			return "", err
		}
	}

	surface, err := s.handoff.Send(ctx, opener, userAgent, msg)
	if err != nil {
		return "", err
	}
	if err := s.ClearContext(ctx, dev); err != nil {
		logger.WarnContext(ctx, "clear chat context after send", "error", err)
	}
	return surface, nil
}
