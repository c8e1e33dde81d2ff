// ABOUTME: HTTP API handlers for outbound posts, the Slack events webhook, and history
// ABOUTME: Maps router outcomes onto the JSON wire surface and status codes

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/2389/scribe-gateway/internal/conversation"
	"github.com/2389/scribe-gateway/internal/slack"
	"github.com/2389/scribe-gateway/internal/store"
)

// PostMessageRequest is the JSON request body for POST /post-message.
type PostMessageRequest struct {
	Author  string `json:"author"`
	Message string `json:"message"`
}

// PostMessageResponse is the JSON response for a successful outbound post.
type PostMessageResponse struct {
	OK        bool   `json:"ok"`
	MessageTS string `json:"message_ts"`
	ThreadTS  string `json:"thread_ts"`
}

// HistoryMessage is a single entry in a history response. Bot mirrors the
// stored origin: true only for messages that arrived from the Slack side.
type HistoryMessage struct {
	Message   string `json:"message"`
	Bot       bool   `json:"bot"`
	Timestamp string `json:"timestamp"`
}

// HistoryResponse is the JSON response for GET /history/{author}.
type HistoryResponse struct {
	Author   string           `json:"author"`
	Messages []HistoryMessage `json:"messages"`
}

// handlePostMessage handles POST /post-message requests.
// It relays a message from a named author into their Slack thread, creating
// the author and the thread on first contact.
func (g *Gateway) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := g.router.Send(r.Context(), req.Author, req.Message)
	if err != nil {
		var valErr *conversation.ValidationError
		if errors.As(err, &valErr) {
			g.sendJSONError(w, http.StatusBadRequest, valErr.Error())
			return
		}

		var sendErr *slack.SendError
		if errors.As(err, &sendErr) {
			sendFailures.Inc()
			g.logger.Error("slack post failed", "author", req.Author, "reason", sendErr.Reason)
			g.sendJSONError(w, http.StatusInternalServerError, sendErr.Error())
			return
		}

		g.logger.Error("send failed", "author", req.Author, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	messagesSent.Inc()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PostMessageResponse{
		OK:        true,
		MessageTS: result.DeliveryToken,
		ThreadTS:  result.ThreadID,
	})
}

// handleEvents handles POST /events, the Slack events webhook.
// The request signature is verified over the raw body before any parsing.
// Apart from signature failures the endpoint always acknowledges with
// {"ok":true} so Slack never enters a retry storm; routing failures are
// logged and swallowed.
func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	err = g.verifier.Verify(body,
		r.Header.Get(slack.TimestampHeader),
		r.Header.Get(slack.SignatureHeader))
	if err != nil {
		g.logger.Warn("rejected event with bad signature", "remote", r.RemoteAddr)
		g.sendJSONError(w, http.StatusBadRequest, "invalid request signature")
		return
	}

	payload, err := slack.ParsePayload(body)
	if err != nil {
		g.logger.Warn("unparseable event payload", "error", err)
		g.ackEvent(w)
		return
	}

	// URL-verification handshake: echo the challenge verbatim
	if payload.Type == slack.PayloadTypeURLVerification {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"challenge": payload.Challenge})
		return
	}

	inbound, ok := slack.Classify(payload.Event)
	if !ok {
		inboundIgnored.Inc()
		g.ackEvent(w)
		return
	}

	routed, err := g.router.RouteInbound(r.Context(), inbound.ThreadID, inbound.Body)
	if err != nil {
		g.logger.Error("inbound routing failed", "thread_id", inbound.ThreadID, "error", err)
	} else if routed != nil {
		inboundRouted.Inc()
	} else {
		inboundIgnored.Inc()
	}

	g.ackEvent(w)
}

// handleHistory handles GET /history/{author} requests.
// Returns the author's full message log, oldest first. An unknown author and
// an author with zero messages both yield 404.
func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	author := mux.Vars(r)["author"]

	messages, err := g.router.History(r.Context(), author)
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "no messages for this author")
		return
	}
	if err != nil {
		g.logger.Error("history query failed", "author", author, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := HistoryResponse{
		Author:   author,
		Messages: make([]HistoryMessage, len(messages)),
	}
	for i, msg := range messages {
		response.Messages[i] = HistoryMessage{
			Message:   msg.Body,
			Bot:       msg.Origin == store.OriginAutomated,
			Timestamp: msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ackEvent acknowledges receipt of a webhook event.
func (g *Gateway) ackEvent(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true}`))
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
