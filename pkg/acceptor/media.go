package acceptor

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/haivivi/callbridge/pkg/bridge"
	"github.com/haivivi/callbridge/pkg/mediastream"
	"github.com/haivivi/callbridge/pkg/profile"
)

// Close reasons sent with the application close codes.
const (
	reasonMissingID        = "missing call or agent id"
	reasonNotFound         = "agent profile not found"
	reasonProviderMismatch = "agent provider mismatch"
	reasonLookupFailed     = "profile lookup failed"
	reasonTooMany          = "too many sessions"
)

// callTarget extracts the call and agent IDs from the path, falling back to
// the callId and agentId query parameters.
func callTarget(r *http.Request) (callID, agentID string) {
	callID = chi.URLParam(r, "callID")
	agentID = chi.URLParam(r, "agentID")
	q := r.URL.Query()
	if callID == "" {
		callID = q.Get("callId")
	}
	if agentID == "" {
		agentID = q.Get("agentId")
	}
	return callID, agentID
}

func (a *Acceptor) handleMediaStream(w http.ResponseWriter, r *http.Request) {
	callID, agentID := callTarget(r)

	ws, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("acceptor: upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn := mediastream.NewConn(ws)
	logger := a.logger.With("callID", callID, "agentID", agentID, "remote", r.RemoteAddr)

	reject := func(code int, reason string, args ...any) {
		logger.Warn("acceptor: call rejected", append([]any{"code", code, "reason", reason}, args...)...)
		conn.Close(code, reason)
	}

	if callID == "" || agentID == "" {
		reject(mediastream.CloseBadRequest, reasonMissingID)
		return
	}
	if !a.allow() {
		reject(mediastream.CloseTooManySessions, reasonTooMany, "limit", "rate")
		return
	}

	p, code, reason, err := a.lookup(r.Context(), agentID)
	if code != 0 {
		reject(code, reason, "error", err)
		return
	}

	b := bridge.New(conn, a.cfg.Dialer, bridge.SessionParams{CallID: callID, Profile: p}, a.cfg.Bridge)
	if !a.register(b) {
		reject(mediastream.CloseTooManySessions, reasonTooMany, "limit", "sessions")
		return
	}
	defer a.deregister(b)

	logger.Info("acceptor: call accepted", "session", b.Session().ID)
	err = b.Run(context.WithoutCancel(r.Context()))
	switch {
	case err == nil:
		logger.Info("acceptor: call ended")
	case errors.Is(err, bridge.ErrSetup):
		logger.Warn("acceptor: call setup failed", "error", err)
	default:
		logger.Warn("acceptor: call ended with error", "error", err)
	}
}

// lookup resolves agentID. A non-zero code means the call must be rejected
// with that close code and reason.
func (a *Acceptor) lookup(ctx context.Context, agentID string) (*profile.Profile, int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.LookupTimeout)
	defer cancel()

	p, err := a.cfg.Profiles.Get(ctx, agentID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return nil, mediastream.CloseNotFound, reasonNotFound, err
	case err != nil:
		return nil, mediastream.CloseInternalError, reasonLookupFailed, err
	case p == nil:
		return nil, mediastream.CloseNotFound, reasonNotFound, nil
	case p.Provider != a.cfg.Provider:
		return nil, mediastream.CloseNotFound, reasonProviderMismatch, nil
	}
	return p, 0, "", nil
}
