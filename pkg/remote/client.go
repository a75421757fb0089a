// Package remote talks to the backend chat API when one is reachable. The
// chat service treats it as the first delivery tier and falls back to the
// simulated channel when it is not.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrUnreachable is returned when the backend failed the last health probe.
var ErrUnreachable = errors.New("remote chat backend unreachable")

// SessionData is the fetch-or-create response shape.
type SessionData struct {
	Id       string        `json:"id"`
	Messages []MessageData `json:"messages"`
}

// MessageData is one structured message on the wire.
type MessageData struct {
	Id           string   `json:"id"`
	Text         string   `json:"text"`
	Sender       string   `json:"sender,omitempty"`
	Timestamp    string   `json:"timestamp,omitempty"`
	TableData    string   `json:"table_data,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	NextQuestion []string `json:"next_question,omitempty"`
	ResponseType string   `json:"response_type,omitempty"`
}

// TokenFunc supplies the current bearer token for each request.
type TokenFunc func() (string, bool)

type Client struct {
	BaseURL      string
	SendTimeout  time.Duration
	ProbeTimeout time.Duration

	// ProbeInterval caches probe outcomes so a burst of sends does not
	// hammer the health endpoint. Zero disables the cache.
	ProbeInterval time.Duration

	httpClient *http.Client
	token      TokenFunc

	probeMu     sync.Mutex
	lastProbe   time.Time
	lastHealthy bool
}

func NewClient(baseURL string, sendTimeout, probeTimeout time.Duration, token TokenFunc) *Client {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &Client{
		BaseURL:      baseURL,
		SendTimeout:  sendTimeout,
		ProbeTimeout: probeTimeout,
		httpClient:   &http.Client{},
		token:        token,
	}
}

// Configured reports whether a backend URL is set at all.
func (c *Client) Configured() bool {
	return c != nil && c.BaseURL != ""
}

// Probe checks backend availability within the probe timeout. Results are
// reused for ProbeInterval when one is set.
func (c *Client) Probe(ctx context.Context) bool {
	if !c.Configured() {
		return false
	}
	if c.ProbeInterval > 0 {
		c.probeMu.Lock()
		if !c.lastProbe.IsZero() && time.Since(c.lastProbe) < c.ProbeInterval {
			healthy := c.lastHealthy
			c.probeMu.Unlock()
			return healthy
		}
		c.probeMu.Unlock()
	}

	healthy := c.probeOnce(ctx)

	if c.ProbeInterval > 0 {
		c.probeMu.Lock()
		c.lastProbe = time.Now()
		c.lastHealthy = healthy
		c.probeMu.Unlock()
	}
	return healthy
}

func (c *Client) probeOnce(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode < http.StatusInternalServerError
}

// FetchOrCreateSession resolves the session for a module or agent scope.
func (c *Client) FetchOrCreateSession(ctx context.Context, module string, agentId int) (*SessionData, error) {
	var path string
	switch {
	case module != "":
		path = fmt.Sprintf("/api/v1/chat/module/%s", module)
	case agentId != 0:
		path = fmt.Sprintf("/api/v1/agents/%d/chat", agentId)
	default:
		return c.createSession(ctx)
	}

	var session SessionData
	if err := c.do(ctx, http.MethodGet, path, nil, &session, c.SendTimeout); err != nil {
		return nil, err
	}
	if session.Id == "" {
		return nil, errors.New("invalid session data")
	}
	return &session, nil
}

func (c *Client) createSession(ctx context.Context) (*SessionData, error) {
	body := map[string]interface{}{
		"module":   nil,
		"agent_id": nil,
		"metadata": map[string]interface{}{},
	}
	var session SessionData
	if err := c.do(ctx, http.MethodPost, "/api/v1/chat/sessions", body, &session, c.SendTimeout); err != nil {
		return nil, err
	}
	if session.Id == "" {
		return nil, errors.New("invalid session data")
	}
	return &session, nil
}

// Send posts a user message and waits for the structured assistant reply
// within the send timeout.
func (c *Client) Send(ctx context.Context, sessionId, text string) (*MessageData, error) {
	path := fmt.Sprintf("/api/v1/chat/%s/send", sessionId)
	body := map[string]string{"text": text}

	var reply MessageData
	if err := c.do(ctx, http.MethodPost, path, body, &reply, c.SendTimeout); err != nil {
		return nil, err
	}
	if reply.Text == "" {
		return nil, errors.New("empty response from backend")
	}
	return &reply, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, timeout time.Duration) error {
	if !c.Configured() {
		return ErrUnreachable
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if token, ok := c.token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote chat error (%d): %s", resp.StatusCode, string(bodyBytes))
	}

	return json.Unmarshal(bodyBytes, out)
}
