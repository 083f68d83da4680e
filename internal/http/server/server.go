// Package server assembles the site: it owns the services and routes requests to them.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"

	"github.com/diagnosis/studio16/internal/access"
	"github.com/diagnosis/studio16/internal/catalog"
	"github.com/diagnosis/studio16/internal/chat"
	"github.com/diagnosis/studio16/internal/domain"
	"github.com/diagnosis/studio16/internal/editor"
	"github.com/diagnosis/studio16/internal/http/handlers"
	devicemw "github.com/diagnosis/studio16/internal/http/middleware"
	"github.com/diagnosis/studio16/internal/http/views"
	"github.com/diagnosis/studio16/internal/messaging"
	"github.com/diagnosis/studio16/internal/storage"
	"github.com/diagnosis/studio16/pkg/config"
	"github.com/diagnosis/studio16/pkg/events"
	"github.com/diagnosis/studio16/pkg/logger"
	mw "github.com/diagnosis/studio16/pkg/middleware"
)

// relayTTL bounds how long a mobile hand-off ticket waits for the page to ask for its outcome.
const relayTTL = 2 * time.Minute

type Options struct {
	Config *config.Config
	Store  storage.Store
	Events events.Publisher
	Clock  clockwork.Clock
}

// Server holds the collaborators behind the router. Close stops their timers.
type Server struct {
	Handler http.Handler

	Gate   *access.Gate
	Editor *editor.Editor
	Relay  *messaging.Relay

	stop context.CancelFunc
}

func New(opts Options) (*Server, error) {
	cfg := opts.Config
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	pub := opts.Events
	if pub == nil {
		pub = events.Noop{}
	}

	cat, err := catalog.Load()
	if err != nil {
		return nil, err
	}
	v, err := views.New()
	if err != nil {
		return nil, err
	}

	studio := messaging.NewHandoff(cfg.Messaging.StudioPhone, clk, cfg.Messaging.FallbackWait)
	operator := messaging.NewHandoff(cfg.Messaging.OperatorPhone, clk, cfg.Messaging.FallbackWait)
	relay := messaging.NewRelay(clk, relayTTL)

	chatStore := chat.New(studio)
	chatStore.OnOpen(func(ctx context.Context, device string, mc domain.MessageContext) {
		logger.DebugContext(ctx, "chat context set", "type", mc.Kind)
	})

	gate := access.NewGate(clk, cfg.Admin.RefreshWindow)
	gate.OnTransition(func(device string, from, to domain.GateState) {
		logger.Debug("admin gate transition", "device_id", device, "from", from, "to", to)
	})
	passwords := access.NewPasswordChecker(cfg.Admin.Password, clk, cfg.Admin.PasswordLatency)
	issuer := access.NewIssuer(clk, cfg.Admin.OTPLength, cfg.Admin.CodeTTL)
	verifier := access.NewVerifier(clk, cfg.Admin.OTPLength, cfg.Admin.CodeTTL, cfg.Admin.SessionTTL, passwords)
	ed := editor.New(cat, gate, clk, pub, cfg.Editor)

	stopping, stop := context.WithCancel(context.Background())
	pages := handlers.NewPagesHandler(v, cat, ed)
	accessH := &handlers.AccessHandler{
		Issuer:        issuer,
		Verifier:      verifier,
		Gate:          gate,
		Operator:      operator,
		Events:        pub,
		Clock:         clk,
		CodeLength:    cfg.Admin.OTPLength,
		LivenessEvery: cfg.Admin.LivenessEvery,
		Stopping:      stopping,
	}
	editorH := handlers.NewEditorHandler(ed, gate, v, cfg.Admin)
	devices := devicemw.NewDevices(opts.Store, cfg.Device, clk)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("studio16"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.Health(func(ctx context.Context) error { return storage.Ping(ctx, opts.Store) }))
	r.NotFound(pages.NotFound)

	r.Handle("/static/*", views.Static())

	r.Group(func(r chi.Router) {
		r.Use(devices.Middleware)

		site := pages.Routes()
		site.Post("/contact", handlers.NewContactHandler(clk, cfg.Messaging.ContactDelay).Submit)
		r.Mount("/", site)
		r.Mount("/chat", handlers.NewChatHandler(chatStore, relay, pub, clk).Routes())

		admin := editorH.Routes()
		admin.Mount("/access", accessH.Routes())
		admin.Post("/logout", accessH.Logout)
		admin.Get("/liveness", accessH.Liveness)
		r.Mount("/admin", admin)

		r.Route("/api", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   cfg.Server.AllowedOrigins,
				AllowedMethods:   []string{"GET", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
				ExposedHeaders:   []string{"X-Request-ID"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
			r.Get("/config", handlers.PublicConfig(cfg))
			r.Mount("/device/storage", handlers.NewDeviceStorageHandler().Routes())
		})
	})

	return &Server{Handler: r, Gate: gate, Editor: ed, Relay: relay, stop: stop}, nil
}

// HTTPServer wraps the handler with the configured timeouts. Shutdown closes open liveness
// streams so it does not wait on them.
func (s *Server) HTTPServer(cfg config.ServerConfig) *http.Server {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	srv.RegisterOnShutdown(s.stop)
	return srv
}

// Close ends liveness streams and cancels pending saves and hand-offs.
func (s *Server) Close() {
	s.stop()
	s.Editor.Close()
	s.Relay.Close()
}

// Open connects the configured storage driver and event bus. An empty NATS URL disables
// publishing.
func Open(ctx context.Context, cfg *config.Config) (storage.Store, events.Publisher, error) {
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.NATS.URL == "" {
		return store, events.Noop{}, nil
	}
	bus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	return store, bus, nil
}
