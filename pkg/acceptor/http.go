package acceptor

import (
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/haivivi/callbridge/pkg/bridge"
	"github.com/haivivi/callbridge/pkg/jsontime"
	"github.com/haivivi/callbridge/pkg/mediastream"
)

// SessionView is one live call as listed by GET /sessions.
type SessionView struct {
	ID        string            `json:"id"`
	CallID    string            `json:"call_id"`
	AgentID   string            `json:"agent_id"`
	StreamID  string            `json:"stream_id,omitempty"`
	State     string            `json:"state"`
	Lifecycle string            `json:"lifecycle"`
	CreatedAt jsontime.Milli    `json:"created_at,omitzero"`
	Age       jsontime.Duration `json:"age,omitzero"`
	Stats     bridge.Stats      `json:"stats"`
}

// Sessions returns the live calls, oldest first.
func (a *Acceptor) Sessions() []SessionView {
	a.mu.Lock()
	live := make([]*bridge.Bridge, 0, len(a.sessions))
	for _, b := range a.sessions {
		live = append(live, b)
	}
	a.mu.Unlock()

	now := time.Now()
	views := make([]SessionView, 0, len(live))
	for _, b := range live {
		s := b.Session()
		v := SessionView{
			ID:        s.ID,
			CallID:    s.CallID,
			AgentID:   s.AgentID,
			StreamID:  s.StreamID,
			State:     s.State.String(),
			Lifecycle: s.State.Lifecycle(),
			Stats:     b.Stats(),
		}
		if !s.CreatedAt.IsZero() {
			v.CreatedAt = jsontime.Milli(s.CreatedAt)
			v.Age = jsontime.Duration(now.Sub(s.CreatedAt).Truncate(time.Millisecond))
		}
		views = append(views, v)
	}
	slices.SortFunc(views, func(x, y SessionView) int {
		if c := x.CreatedAt.Time().Compare(y.CreatedAt.Time()); c != 0 {
			return c
		}
		return strings.Compare(x.ID, y.ID)
	})
	return views
}

func (a *Acceptor) handleHealth(w http.ResponseWriter, _ *http.Request) {
	a.mu.Lock()
	closing := a.closing
	a.mu.Unlock()
	if closing {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (a *Acceptor) handleSessions(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.Sessions()); err != nil {
		a.logger.Warn("acceptor: write sessions", "error", err)
	}
}

// handleTwiML answers the provider's voice webhook with a document that
// connects the call to our media-stream route.
func (a *Acceptor) handleTwiML(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	agentID := chi.URLParam(r, "agentID")

	doc, err := mediastream.TwiML(a.streamURL(r, callID, agentID),
		[2]string{"callId", callID},
		[2]string{"agentId", agentID},
	)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.Write(doc)
}

func (a *Acceptor) streamURL(r *http.Request, callID, agentID string) string {
	base := strings.TrimSuffix(a.cfg.PublicURL, "/")
	if base == "" {
		scheme := "wss"
		if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
			scheme = "ws"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/media-stream/" + url.PathEscape(callID) + "/" + url.PathEscape(agentID)
}
