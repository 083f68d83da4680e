package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/diagnosis/studio16/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url, nats.Name("studio16"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject)

	msg := nats.NewMsg(subject)
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())
	return n.conn.PublishMsg(msg)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		id := msg.Header.Get(nats.MsgIdHdr)
		if id == "" {
			id = fmt.Sprintf("%d", time.Now().UnixNano())
		}
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        id,
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}

// Noop drops every event. Used when NATS_URL is empty.
type Noop struct{}

func (Noop) Publish(context.Context, string, interface{}) error { return nil }
func (Noop) Close() error                                       { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

type Recorded struct {
	Subject string
	Data    interface{}
}

func (r *Recorder) Publish(_ context.Context, subject string, data interface{}) error {
	r.mu.Lock()
	r.events = append(r.events, Recorded{Subject: subject, Data: data})
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

// Subjects cover the admin trail and the chat hand-off. Everything lives under studio.>.
const (
	AllSubjects = "studio.>"

	AdminCodeIssued    = "studio.admin.code_issued"
	AdminAccessGranted = "studio.admin.access_granted"
	AdminLoggedOut     = "studio.admin.logged_out"

	ArtworkEdited     = "studio.artwork.edited"
	VisibilityToggled = "studio.artwork.visibility_toggled"
	ImageReplaced     = "studio.artwork.image_replaced"
	CatalogSaved      = "studio.catalog.saved"

	ChatHandoff = "studio.chat.handoff"
)

// ActivityEvent mirrors an audit log entry so a subscriber sees what the device saw.
type ActivityEvent struct {
	Device        string    `json:"device"`
	Action        string    `json:"action"`
	ArtworkID     string    `json:"artwork_id,omitempty"`
	ArtworkTitle  string    `json:"artwork_title,omitempty"`
	NewStatus     string    `json:"new_status,omitempty"`
	ArtworksCount int       `json:"artworks_count,omitempty"`
	At            time.Time `json:"at"`
}

type AccessEvent struct {
	Device    string    `json:"device"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	At        time.Time `json:"at"`
}

type HandoffEvent struct {
	Device  string    `json:"device"`
	Kind    string    `json:"kind"`
	Surface string    `json:"surface"`
	At      time.Time `json:"at"`
}
