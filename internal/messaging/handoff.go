package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/diagnosis/studio16/internal/domain"
	"github.com/diagnosis/studio16/pkg/logger"
)

type Surface string

const (
	SurfaceApp Surface = "app"
	SurfaceWeb Surface = "web"
)

// Opener is the browsing context that actually navigates. OpenApp returns a channel that
// is closed if the page is seen to navigate away; there is no signal for "the app did not
// open", which is why Send races it against a timer.
type Opener interface {
	OpenApp(ctx context.Context, uri string) (navigated <-chan struct{}, err error)
	OpenWeb(ctx context.Context, url string) error
}

var errEmptyMessage = errors.New("message is empty")

// Handoff sends messages to one fixed WhatsApp number.
type Handoff struct {
	phone        string
	clock        clockwork.Clock
	fallbackWait time.Duration
}

func NewHandoff(phone string, clk clockwork.Clock, fallbackWait time.Duration) *Handoff {
	return &Handoff{phone: phone, clock: clk, fallbackWait: fallbackWait}
}

func (h *Handoff) Phone() string { return h.phone }

func (h *Handoff) FallbackWait() time.Duration { return h.fallbackWait }

// Links builds the app and web URIs for message.
func (h *Handoff) Links(message string) (Links, error) {
	if strings.TrimSpace(message) == "" {
		return Links{}, &domain.TransmissionError{Err: errEmptyMessage}
	}
	links, err := BuildLinks(h.phone, message)
	if err != nil {
		return Links{}, &domain.TransmissionError{Err: err}
	}
	return links, nil
}

// Send opens the message on the opener. Desktop agents always get the web URL. Mobile
// agents get the app URI first; if no navigation is observed within the fallback window
// the web URL is opened as well. The result says which surface was used, never whether
// the message was delivered. Cancelling ctx abandons the wait without opening anything.
func (h *Handoff) Send(ctx context.Context, opener Opener, userAgent, message string) (Surface, error) {
	links, err := h.Links(message)
	if err != nil {
		return "", err
	}

	if !IsMobile(userAgent) {
		return h.openWeb(ctx, opener, links.Web)
	}

	navigated, err := opener.OpenApp(ctx, links.App)
	if err != nil {
		logger.WarnContext(ctx, "app link failed, using web fallback", "error", err)
		return h.openWeb(ctx, opener, links.Web)
	}

	select {
	case <-navigated:
		return SurfaceApp, nil
	case <-h.clock.After(h.fallbackWait):
		logger.DebugContext(ctx, "app not detected, falling back to web", "wait", h.fallbackWait)
		return h.openWeb(ctx, opener, links.Web)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (h *Handoff) openWeb(ctx context.Context, opener Opener, url string) (Surface, error) {
	if err := opener.OpenWeb(ctx, url); err != nil {
		return "", &domain.TransmissionError{Err: err}
	}
	return SurfaceWeb, nil
}
