package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/scribe-gateway/internal/config"
	"github.com/2389/scribe-gateway/internal/conversation"
	"github.com/2389/scribe-gateway/internal/slack"
	"github.com/2389/scribe-gateway/internal/store"
)

const testSigningSecret = "test-signing-secret"

// fakeSender satisfies conversation.MessageSender without network access.
type fakeSender struct {
	seq  atomic.Int64
	fail bool
}

func (f *fakeSender) Post(_ context.Context, threadID, body string) (*slack.PostResult, error) {
	if f.fail {
		return nil, &slack.SendError{Reason: "channel_not_found"}
	}
	ts := fmt.Sprintf("1700000000.%06d", f.seq.Add(1))
	result := &slack.PostResult{ThreadID: threadID, DeliveryToken: ts}
	if result.ThreadID == "" {
		result.ThreadID = ts
	}
	return result, nil
}

func setupGateway(t *testing.T) (*Gateway, *fakeSender) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sender := &fakeSender{}
	cfg := &config.Config{
		Server: config.ServerConfig{HTTPAddr: "127.0.0.1:0"},
		Slack: config.SlackConfig{
			BotToken:      "xoxb-test",
			SigningSecret: testSigningSecret,
			Channel:       "C123",
		},
	}

	g := &Gateway{
		cfg:      cfg,
		logger:   testLogger(),
		store:    st,
		router:   conversation.New(st, sender, nil),
		verifier: slack.NewSignatureVerifier(testSigningSecret),
	}
	return g, sender
}

func doJSON(t *testing.T, g *Gateway, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	g.routes().ServeHTTP(rec, req)
	return rec
}

// doSignedEvent posts a payload to /events with a valid Slack signature.
func doSignedEvent(t *testing.T, g *Gateway, payload string) *httptest.ResponseRecorder {
	t.Helper()
	ts := fmt.Sprintf("%d", time.Now().Unix())
	sig := g.verifier.Sign([]byte(payload), ts)

	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader([]byte(payload)))
	req.Header.Set(slack.TimestampHeader, ts)
	req.Header.Set(slack.SignatureHeader, sig)

	rec := httptest.NewRecorder()
	g.routes().ServeHTTP(rec, req)
	return rec
}

func TestPostMessage_OK(t *testing.T) {
	g, _ := setupGateway(t)

	rec := doJSON(t, g, http.MethodPost, "/post-message",
		map[string]string{"author": "alice", "message": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PostMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.NotEmpty(t, resp.MessageTS)
	assert.NotEmpty(t, resp.ThreadTS)
}

func TestPostMessage_MissingFields(t *testing.T) {
	g, _ := setupGateway(t)

	rec := doJSON(t, g, http.MethodPost, "/post-message", map[string]string{"author": "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, g, http.MethodPost, "/post-message", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessage_InvalidJSON(t *testing.T) {
	g, _ := setupGateway(t)

	req := httptest.NewRequest(http.MethodPost, "/post-message", bytes.NewReader([]byte("{nope")))
	rec := httptest.NewRecorder()
	g.routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessage_SendFailure(t *testing.T) {
	g, sender := setupGateway(t)
	sender.fail = true

	rec := doJSON(t, g, http.MethodPost, "/post-message",
		map[string]string{"author": "alice", "message": "hello"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "channel_not_found")
}

func TestEvents_BadSignature(t *testing.T) {
	g, _ := setupGateway(t)

	payload := `{"type":"event_callback"}`
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader([]byte(payload)))
	req.Header.Set(slack.TimestampHeader, fmt.Sprintf("%d", time.Now().Unix()))
	req.Header.Set(slack.SignatureHeader, "v0=deadbeef")

	rec := httptest.NewRecorder()
	g.routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvents_ChallengeEcho(t *testing.T) {
	g, _ := setupGateway(t)

	rec := doSignedEvent(t, g, `{"type":"url_verification","challenge":"abc123"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "abc123", resp["challenge"])
}

func TestEvents_RoutesThreadReply(t *testing.T) {
	g, _ := setupGateway(t)

	// Establish alice's thread
	rec := doJSON(t, g, http.MethodPost, "/post-message",
		map[string]string{"author": "alice", "message": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	var sent PostMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sent))

	// Operator replies in the thread
	payload := fmt.Sprintf(
		`{"type":"event_callback","event":{"type":"message","user":"U1","text":"hi back","thread_ts":%q,"ts":"1700000009.000900"}}`,
		sent.ThreadTS)
	rec = doSignedEvent(t, g, payload)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	// History shows both messages in order with correct attribution
	rec = doJSON(t, g, http.MethodGet, "/history/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, "alice", history.Author)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "hello", history.Messages[0].Message)
	assert.False(t, history.Messages[0].Bot)
	assert.Equal(t, "hi back", history.Messages[1].Message)
	assert.True(t, history.Messages[1].Bot)
}

func TestEvents_BotEventDiscarded(t *testing.T) {
	g, _ := setupGateway(t)

	rec := doJSON(t, g, http.MethodPost, "/post-message",
		map[string]string{"author": "alice", "message": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	var sent PostMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sent))

	payload := fmt.Sprintf(
		`{"type":"event_callback","event":{"type":"message","bot_id":"B1","text":"echo","thread_ts":%q}}`,
		sent.ThreadTS)
	rec = doSignedEvent(t, g, payload)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	// Log is unchanged
	rec = doJSON(t, g, http.MethodGet, "/history/alice", nil)
	var history HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history.Messages, 1)
}

func TestEvents_UnknownThreadAcknowledged(t *testing.T) {
	g, _ := setupGateway(t)

	payload := `{"type":"event_callback","event":{"type":"message","user":"U1","text":"stray","thread_ts":"1690000000.000001"}}`
	rec := doSignedEvent(t, g, payload)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestHistory_NotFound(t *testing.T) {
	g, _ := setupGateway(t)

	rec := doJSON(t, g, http.MethodGet, "/history/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	g, _ := setupGateway(t)

	rec := doJSON(t, g, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
