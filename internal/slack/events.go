// ABOUTME: Slack event payload types and the inbound event classifier
// ABOUTME: Filters raw webhook events before they reach the conversation router

package slack

import "encoding/json"

// Event payload types delivered to the events webhook.
const (
	PayloadTypeURLVerification = "url_verification"
	PayloadTypeEventCallback   = "event_callback"

	EventTypeMessage = "message"
)

// EventPayload is the outer envelope of a Slack events API request.
type EventPayload struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge,omitempty"`
	Event     *Event `json:"event,omitempty"`
}

// Event is the inner event of an event_callback payload. Only the fields the
// classifier needs are decoded.
type Event struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype,omitempty"`
	User     string `json:"user,omitempty"`
	BotID    string `json:"bot_id,omitempty"`
	Text     string `json:"text,omitempty"`
	Channel  string `json:"channel,omitempty"`
	TS       string `json:"ts,omitempty"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

// ParsePayload decodes a raw events API request body.
func ParsePayload(body []byte) (*EventPayload, error) {
	var payload EventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Inbound is a classified event accepted for routing. ThreadID is empty when
// the message was not posted inside a thread; the router ignores those.
type Inbound struct {
	ThreadID string
	Body     string
}

// Classify decides whether an event should be routed. It is a pure filter:
// no state, no side effects. Rules, in order:
//
//  1. Bot-originated events (bot_id set) are discarded so the system never
//     echoes its own or other bots' messages back into storage.
//  2. Anything that is not a plain message post (wrong type, or a subtype
//     like message_changed) is discarded.
//  3. Events with an empty body are discarded.
//
// Everything else is accepted with its thread identity and text extracted.
func Classify(ev *Event) (*Inbound, bool) {
	if ev == nil {
		return nil, false
	}
	if ev.BotID != "" {
		return nil, false
	}
	if ev.Type != EventTypeMessage || ev.Subtype != "" {
		return nil, false
	}
	if ev.Text == "" {
		return nil, false
	}

	return &Inbound{
		ThreadID: ev.ThreadTS,
		Body:     ev.Text,
	}, true
}
