package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mdsim/ratedrps-go/internal/protocol"
)

const defaultWait = 90 * time.Second

// Client talks to the server: a websocket connection for game traffic and
// plain HTTP for the health check.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	conn       *websocket.Conn
}

// NewClient creates a client for the given server URL
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Connect dials the websocket endpoint, authenticating with the token
func (c *Client) Connect() error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"token": {c.token}}.Encode()

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("connection rejected: invalid token")
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	c.conn = conn
	return nil
}

// Close shuts down the websocket connection
func (c *Client) Close() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Send writes an envelope to the server
func (c *Client) Send(t protocol.Type, payload any) error {
	env, err := protocol.NewEnvelope(t, payload)
	if err != nil {
		return err
	}
	return c.conn.WriteJSON(env)
}

// WaitFor reads envelopes until one of the wanted type arrives. An ERROR
// envelope from the server fails the wait.
func (c *Client) WaitFor(t protocol.Type, timeout time.Duration) (protocol.Envelope, error) {
	if timeout == 0 {
		timeout = defaultWait
	}
	deadline := time.Now().Add(timeout)

	for {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return protocol.Envelope{}, err
		}
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return protocol.Envelope{}, fmt.Errorf("waiting for %s: %w", t, err)
		}
		switch env.Type {
		case t:
			return env, nil
		case protocol.TypeError:
			var p protocol.ErrorPayload
			if err := env.Decode(&p); err != nil {
				return protocol.Envelope{}, fmt.Errorf("server error")
			}
			return protocol.Envelope{}, fmt.Errorf("server error: %s", p.Message)
		}
	}
}

// Health calls the health check endpoint
func (c *Client) Health() (map[string]string, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/health_check")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var result map[string]string
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return result, nil
}
