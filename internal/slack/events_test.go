package slack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_AcceptsPlainThreadReply(t *testing.T) {
	inbound, ok := Classify(&Event{
		Type:     "message",
		User:     "U123",
		Text:     "hi back",
		Channel:  "C123",
		TS:       "1700000001.000200",
		ThreadTS: "1700000000.000100",
	})
	require.True(t, ok)
	assert.Equal(t, "1700000000.000100", inbound.ThreadID)
	assert.Equal(t, "hi back", inbound.Body)
}

func TestClassify_AcceptsMessageWithoutThread(t *testing.T) {
	// Top-level channel messages pass the filter with an empty thread id;
	// the router ignores them downstream.
	inbound, ok := Classify(&Event{
		Type: "message",
		User: "U123",
		Text: "hello channel",
	})
	require.True(t, ok)
	assert.Empty(t, inbound.ThreadID)
}

func TestClassify_DiscardsBotEvents(t *testing.T) {
	_, ok := Classify(&Event{
		Type:     "message",
		BotID:    "B123",
		Text:     "echo of ourselves",
		ThreadTS: "1700000000.000100",
	})
	assert.False(t, ok)
}

func TestClassify_DiscardsNonMessageEvents(t *testing.T) {
	_, ok := Classify(&Event{Type: "reaction_added", User: "U123", Text: "x"})
	assert.False(t, ok)
}

func TestClassify_DiscardsSubtypedMessages(t *testing.T) {
	_, ok := Classify(&Event{Type: "message", Subtype: "message_changed", Text: "edited"})
	assert.False(t, ok)
}

func TestClassify_DiscardsEmptyBody(t *testing.T) {
	_, ok := Classify(&Event{Type: "message", User: "U123", ThreadTS: "1700000000.000100"})
	assert.False(t, ok)
}

func TestClassify_NilEvent(t *testing.T) {
	_, ok := Classify(nil)
	assert.False(t, ok)
}

func TestParsePayload_URLVerification(t *testing.T) {
	payload, err := ParsePayload([]byte(`{"type":"url_verification","challenge":"abc123"}`))
	require.NoError(t, err)
	assert.Equal(t, PayloadTypeURLVerification, payload.Type)
	assert.Equal(t, "abc123", payload.Challenge)
	assert.Nil(t, payload.Event)
}

func TestParsePayload_EventCallback(t *testing.T) {
	raw := `{
		"type": "event_callback",
		"event": {
			"type": "message",
			"user": "U123",
			"text": "hi back",
			"channel": "C123",
			"ts": "1700000001.000200",
			"thread_ts": "1700000000.000100"
		}
	}`
	payload, err := ParsePayload([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, PayloadTypeEventCallback, payload.Type)
	require.NotNil(t, payload.Event)
	assert.Equal(t, "1700000000.000100", payload.Event.ThreadTS)
}

func TestParsePayload_Malformed(t *testing.T) {
	_, err := ParsePayload([]byte(`{"type":`))
	assert.Error(t, err)
}
