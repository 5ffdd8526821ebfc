package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWebSocketURL is the default WebSocket endpoint.
const DefaultWebSocketURL = "wss://api.openai.com/v1/realtime"

// DefaultHandshakeTimeout bounds the WebSocket opening handshake.
const DefaultHandshakeTimeout = 10 * time.Second

// Client dials realtime sessions. It holds immutable configuration and may
// be shared by any number of concurrent calls.
type Client struct {
	config *clientConfig
}

type clientConfig struct {
	apiKey           string
	organization     string
	project          string
	wsURL            string
	model            string
	handshakeTimeout time.Duration
}

// Option configures the Client.
type Option func(*clientConfig)

// NewClient creates a new Realtime client.
func NewClient(apiKey string, opts ...Option) *Client {
	if apiKey == "" {
		panic("realtime: API key is required")
	}

	cfg := &clientConfig{
		apiKey:           apiKey,
		wsURL:            DefaultWebSocketURL,
		model:            ModelGPT4oRealtimePreview,
		handshakeTimeout: DefaultHandshakeTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{config: cfg}
}

// WithOrganization sets the organization ID for API requests.
func WithOrganization(orgID string) Option {
	return func(c *clientConfig) {
		c.organization = orgID
	}
}

// WithProject sets the project ID for API requests.
func WithProject(projectID string) Option {
	return func(c *clientConfig) {
		c.project = projectID
	}
}

// WithWebSocketURL sets the WebSocket URL.
func WithWebSocketURL(u string) Option {
	return func(c *clientConfig) {
		if u != "" {
			c.wsURL = u
		}
	}
}

// WithModel sets the model requested on every dial.
func WithModel(model string) Option {
	return func(c *clientConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHandshakeTimeout bounds the opening handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.handshakeTimeout = d
		}
	}
}

// Model returns the model requested on dial.
func (c *Client) Model() string {
	return c.config.model
}

// Dial opens a new realtime session. The server answers with
// session.created once the session is ready for configuration.
func (c *Client) Dial(ctx context.Context) (*Session, error) {
	u, err := url.Parse(c.config.wsURL)
	if err != nil {
		return nil, fmt.Errorf("realtime: bad url: %w", err)
	}
	q := u.Query()
	q.Set("model", c.config.model)
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+c.config.apiKey)
	headers.Set("OpenAI-Beta", "realtime=v1")
	if c.config.organization != "" {
		headers.Set("OpenAI-Organization", c.config.organization)
	}
	if c.config.project != "" {
		headers.Set("OpenAI-Project", c.config.project)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.config.handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			return nil, &Error{
				Code:       "connection_failed",
				Message:    fmt.Sprintf("failed to connect: %v", err),
				HTTPStatus: resp.StatusCode,
			}
		}
		return nil, fmt.Errorf("realtime: failed to connect: %w", err)
	}
	return newSession(conn), nil
}
