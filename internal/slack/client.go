// ABOUTME: Minimal Slack Web API client for posting messages into threads
// ABOUTME: Implements the conversation.MessageSender contract over chat.postMessage

package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultAPIBaseURL is the Slack Web API endpoint prefix.
const DefaultAPIBaseURL = "https://slack.com/api"

// defaultTimeout bounds each Slack round trip.
const defaultTimeout = 10 * time.Second

// SendError is returned when a Slack API call fails. Reason carries the
// Slack error code (e.g. "channel_not_found") or a transport description.
type SendError struct {
	Reason string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("slack send failed: %s", e.Reason)
}

// PostResult is the outcome of a successful post. ThreadID identifies the
// thread the message landed in (for a thread-opening post this is the ts of
// the root message itself); DeliveryToken is the ts of the posted message.
type PostResult struct {
	ThreadID      string
	DeliveryToken string
}

// Client posts messages to a single Slack channel, one thread per author.
type Client struct {
	baseURL    string
	token      string
	channel    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the Slack API base URL (used by tests).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Slack client posting into the given channel with the
// given bot token.
func NewClient(token, channel string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultAPIBaseURL,
		token:      token,
		channel:    channel,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default().With("component", "slack"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// postMessageRequest is the chat.postMessage JSON body.
type postMessageRequest struct {
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

// postMessageResponse is the subset of the chat.postMessage response we use.
type postMessageResponse struct {
	OK    bool   `json:"ok"`
	TS    string `json:"ts"`
	Error string `json:"error"`
}

// Post sends body to Slack. With an empty threadID the post establishes a
// new thread and the returned ThreadID is the ts of the root message;
// otherwise the message is posted as a reply into the given thread.
// Failures are reported as *SendError.
func (c *Client) Post(ctx context.Context, threadID, body string) (*PostResult, error) {
	payload := postMessageRequest{
		Channel:  c.channel,
		Text:     body,
		ThreadTS: threadID,
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SendError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &SendError{Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var apiResp postMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, &SendError{Reason: "malformed response: " + err.Error()}
	}

	if !apiResp.OK {
		return nil, &SendError{Reason: apiResp.Error}
	}

	result := &PostResult{
		ThreadID:      threadID,
		DeliveryToken: apiResp.TS,
	}
	if result.ThreadID == "" {
		result.ThreadID = apiResp.TS
	}

	c.logger.Debug("posted message", "thread_ts", result.ThreadID, "ts", apiResp.TS)
	return result, nil
}
