package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticToken(token string) TokenFunc {
	return func() (string, bool) { return token, token != "" }
}

func TestConfigured(t *testing.T) {
	assert.False(t, NewClient("", 0, 0, nil).Configured())
	assert.True(t, NewClient("http://localhost:9999", 0, 0, nil).Configured())

	var nilClient *Client
	assert.False(t, nilClient.Configured())
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, 0, nil)
	assert.True(t, c.Probe(context.Background()))

	srv.Close()
	assert.False(t, c.Probe(context.Background()))
}

func TestProbeCachesWithinInterval(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, 0, nil)
	c.ProbeInterval = time.Minute

	assert.True(t, c.Probe(context.Background()))
	assert.True(t, c.Probe(context.Background()))
	assert.True(t, c.Probe(context.Background()))
	assert.Equal(t, 1, hits)
}

func TestFetchOrCreateSessionRoutes(t *testing.T) {
	var gotPath, gotMethod, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(SessionData{Id: "sess-1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, 0, staticToken("tok"))
	ctx := context.Background()

	_, err := c.FetchOrCreateSession(ctx, "demand-planning", 0)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/chat/module/demand-planning", gotPath)
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "Bearer tok", gotAuth)

	_, err = c.FetchOrCreateSession(ctx, "", 7)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/agents/7/chat", gotPath)
	assert.Equal(t, http.MethodGet, gotMethod)

	_, err = c.FetchOrCreateSession(ctx, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/chat/sessions", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
}

func TestFetchOrCreateSessionRejectsMissingId(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(SessionData{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, 0, nil)
	_, err := c.FetchOrCreateSession(context.Background(), "demand-planning", 0)
	assert.Error(t, err)
}

func TestSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/sess-1/send", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["text"])
		_ = json.NewEncoder(w).Encode(MessageData{Id: "msg-1", Text: "hi back"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, 0, nil)
	reply, err := c.Send(context.Background(), "sess-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi back", reply.Text)
}

func TestSendRejectsEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(MessageData{Id: "msg-1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, 0, nil)
	_, err := c.Send(context.Background(), "sess-1", "hello")
	assert.Error(t, err)
}

func TestSendTimesOut(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, 50*time.Millisecond, 0, nil)
	start := time.Now()
	_, err := c.Send(context.Background(), "sess-1", "hello")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestUnconfiguredClientFailsFast(t *testing.T) {
	c := NewClient("", 0, 0, nil)
	_, err := c.Send(context.Background(), "sess-1", "hello")
	assert.ErrorIs(t, err, ErrUnreachable)
}
