// Package acceptor is the HTTP entry point of the bridge service. It
// accepts media-stream WebSockets from the telephony provider, resolves the
// agent profile for each call and runs one bridge per accepted call.
//
// Calls that cannot be served are closed with an application close code
// before any model connection is attempted:
//
//	4400  missing call or agent id
//	4404  agent profile not found, or its provider is not served here
//	4429  accept rate or session cap exceeded
//	4500  profile store failure
package acceptor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/haivivi/callbridge/pkg/bridge"
	"github.com/haivivi/callbridge/pkg/profile"
)

// ErrShutdown is returned by Shutdown when ctx expires before all calls
// have ended.
var ErrShutdown = errors.New("acceptor: shutdown timed out")

// DefaultLookupTimeout bounds one profile lookup.
const DefaultLookupTimeout = 5 * time.Second

// Config configures an Acceptor.
type Config struct {
	// Profiles resolves agent IDs. Required.
	Profiles profile.Store

	// Dialer opens model legs. Required.
	Dialer bridge.ModelDialer

	// Bridge is passed to every bridge. Its Recorder receives call edges.
	Bridge bridge.Config

	// Provider is the only profile provider accepted.
	// Defaults to profile.ProviderOpenAI.
	Provider string

	// PublicURL is the externally reachable base URL used in TwiML,
	// e.g. "wss://bridge.example.com". If empty, derived from the request.
	PublicURL string

	// AcceptRate limits new calls per second; AcceptBurst is the bucket
	// size. A zero rate disables the limit.
	AcceptRate  float64
	AcceptBurst int

	// MaxSessions caps concurrent calls. Zero means unlimited.
	MaxSessions int

	// LookupTimeout bounds one profile lookup. Defaults to DefaultLookupTimeout.
	LookupTimeout time.Duration

	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Acceptor serves the bridge HTTP routes. It implements http.Handler.
type Acceptor struct {
	cfg      Config
	logger   *slog.Logger
	router   chi.Router
	upgrader websocket.Upgrader
	limiter  *rate.Limiter

	mu       sync.Mutex
	sessions map[string]*bridge.Bridge
	closing  bool
	running  sync.WaitGroup
}

// New creates an Acceptor.
func New(cfg Config) *Acceptor {
	if cfg.Provider == "" {
		cfg.Provider = profile.ProviderOpenAI
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = DefaultLookupTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Bridge.Logger == nil {
		cfg.Bridge.Logger = cfg.Logger
	}

	a := &Acceptor{
		cfg:    cfg,
		logger: cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The provider is not a browser and sends no Origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*bridge.Bridge),
	}
	if cfg.AcceptRate > 0 {
		burst := max(cfg.AcceptBurst, 1)
		a.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), burst)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/healthz", a.handleHealth)
	r.Get("/sessions", a.handleSessions)
	r.Get("/media-stream", a.handleMediaStream)
	r.Get("/media-stream/{callID}/{agentID}", a.handleMediaStream)
	r.Post("/twiml/{callID}/{agentID}", a.handleTwiML)
	a.router = r
	return a
}

// ServeHTTP implements http.Handler.
func (a *Acceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// allow reports whether the accept rate admits one more call.
func (a *Acceptor) allow() bool {
	return a.limiter == nil || a.limiter.Allow()
}

// register adds b to the live set unless the acceptor is shutting down or
// full.
func (a *Acceptor) register(b *bridge.Bridge) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closing {
		return false
	}
	if a.cfg.MaxSessions > 0 && len(a.sessions) >= a.cfg.MaxSessions {
		return false
	}
	a.sessions[b.Session().ID] = b
	a.running.Add(1)
	return true
}

func (a *Acceptor) deregister(b *bridge.Bridge) {
	a.mu.Lock()
	delete(a.sessions, b.Session().ID)
	a.mu.Unlock()
	a.running.Done()
}

// Len returns the number of live calls.
func (a *Acceptor) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}

// Shutdown stops accepting calls, closes every live bridge and waits for
// them to finish or for ctx to expire.
func (a *Acceptor) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.closing = true
	live := make([]*bridge.Bridge, 0, len(a.sessions))
	for _, b := range a.sessions {
		live = append(live, b)
	}
	a.mu.Unlock()

	a.logger.Info("acceptor: shutting down", "sessions", len(live))
	for _, b := range live {
		b.Close()
	}

	done := make(chan struct{})
	go func() {
		a.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrShutdown
	}
}
