// ABOUTME: Thread router - the central layer mapping authors to Slack threads
// ABOUTME: All messages flow through here; the store log is the source of truth

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/scribe-gateway/internal/slack"
	"github.com/2389/scribe-gateway/internal/store"
)

// ValidationError reports a missing or empty required field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// ConversationStore defines what the router needs from storage
type ConversationStore interface {
	GetOrCreateAuthor(ctx context.Context, name string) (*store.Author, bool, error)
	GetAuthorByName(ctx context.Context, name string) (*store.Author, error)
	FindAuthorByThread(ctx context.Context, threadID string) (*store.Author, error)
	AppendMessage(ctx context.Context, msg *store.Message) error
	ListMessages(ctx context.Context, authorID string) ([]*store.Message, error)
	AssignThreadAndAppend(ctx context.Context, authorID, threadID string, msg *store.Message) error
}

// MessageSender defines what the router needs from the platform layer.
// Posting with an empty threadID establishes a new thread.
type MessageSender interface {
	Post(ctx context.Context, threadID, body string) (*slack.PostResult, error)
}

// Router is the single source of truth for which thread an author uses and
// which author owns a thread. It resolves or creates the author's thread
// lazily on first send and attributes inbound replies by thread identity.
type Router struct {
	store  ConversationStore
	sender MessageSender
	logger *slog.Logger
}

// New creates a new Router
func New(st ConversationStore, sender MessageSender, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		store:  st,
		sender: sender,
		logger: logger.With("component", "conversation"),
	}
}

// SendResult is the outcome of a successful outbound send.
type SendResult struct {
	ThreadID      string // The thread the message landed in
	DeliveryToken string // Platform token for the posted message (Slack ts)
}

// RouteResult identifies the author an inbound event was attributed to.
// A nil RouteResult with a nil error means the event was ignored.
type RouteResult struct {
	AuthorID string
}

// Send resolves or creates the author, posts body into their thread (opening
// the thread on first send), and appends the message to the author's log.
//
// Key principle: the append only happens after the Slack post is confirmed,
// so a failed send leaves no partial state. On a first send the thread
// assignment and the append commit as one transaction.
func (r *Router) Send(ctx context.Context, authorName, body string) (*SendResult, error) {
	if authorName == "" {
		return nil, &ValidationError{Field: "author"}
	}
	if body == "" {
		return nil, &ValidationError{Field: "message"}
	}

	author, created, err := r.store.GetOrCreateAuthor(ctx, authorName)
	if err != nil {
		return nil, fmt.Errorf("resolving author: %w", err)
	}
	if created {
		r.logger.Debug("author created", "author", authorName, "author_id", author.ID)
	}

	if author.ThreadID != "" {
		return r.sendToThread(ctx, author, body)
	}

	// First send: the thread-opening post's ts becomes the thread id
	res, err := r.sender.Post(ctx, "", body)
	if err != nil {
		return nil, err
	}

	msg := newMessage(author.ID, body, store.OriginHuman)
	err = r.store.AssignThreadAndAppend(ctx, author.ID, res.ThreadID, msg)
	if err == nil {
		r.logger.Debug("thread opened",
			"author", authorName,
			"thread_id", res.ThreadID,
			"message_id", msg.ID)
		return &SendResult{ThreadID: res.ThreadID, DeliveryToken: res.DeliveryToken}, nil
	}

	// Lost a concurrent first-send race: another request assigned the thread
	// between our lookup and commit. Re-read the winner's thread and post the
	// body there instead of proceeding with our own.
	if errors.Is(err, store.ErrThreadAssigned) {
		r.logger.Debug("thread assignment race lost, re-reading author", "author", authorName)
		author, lookupErr := r.store.GetAuthorByName(ctx, authorName)
		if lookupErr != nil {
			return nil, fmt.Errorf("re-reading author after race: %w", lookupErr)
		}
		if author.ThreadID == "" {
			return nil, fmt.Errorf("author %q has no thread after assignment race", authorName)
		}
		return r.sendToThread(ctx, author, body)
	}

	return nil, fmt.Errorf("committing first send: %w", err)
}

// sendToThread posts body into the author's existing thread and appends it
// to the log once the post is confirmed.
func (r *Router) sendToThread(ctx context.Context, author *store.Author, body string) (*SendResult, error) {
	res, err := r.sender.Post(ctx, author.ThreadID, body)
	if err != nil {
		return nil, err
	}

	msg := newMessage(author.ID, body, store.OriginHuman)
	if err := r.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("recording message: %w", err)
	}

	r.logger.Debug("message sent",
		"author", author.Name,
		"thread_id", author.ThreadID,
		"message_id", msg.ID)

	return &SendResult{ThreadID: author.ThreadID, DeliveryToken: res.DeliveryToken}, nil
}

// RouteInbound attributes an inbound platform event to the author owning the
// thread and appends it as an automated message. Events without a thread
// identity, or on threads no author owns, are ignored: no message row is
// created and no error is raised. This path never posts back to Slack.
func (r *Router) RouteInbound(ctx context.Context, threadID, body string) (*RouteResult, error) {
	if threadID == "" {
		return nil, nil
	}

	author, err := r.store.FindAuthorByThread(ctx, threadID)
	if errors.Is(err, store.ErrNotFound) {
		r.logger.Debug("inbound event on unknown thread ignored", "thread_id", threadID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving thread owner: %w", err)
	}

	msg := newMessage(author.ID, body, store.OriginAutomated)
	if err := r.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("recording inbound message: %w", err)
	}

	r.logger.Debug("inbound message routed",
		"author", author.Name,
		"thread_id", threadID,
		"message_id", msg.ID)

	return &RouteResult{AuthorID: author.ID}, nil
}

// History returns an author's message log, oldest first. An unknown author
// and an author with no messages both surface as store.ErrNotFound.
func (r *Router) History(ctx context.Context, authorName string) ([]*store.Message, error) {
	author, err := r.store.GetAuthorByName(ctx, authorName)
	if err != nil {
		return nil, err
	}

	messages, err := r.store.ListMessages(ctx, author.ID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, store.ErrNotFound
	}

	return messages, nil
}

func newMessage(authorID, body string, origin store.Origin) *store.Message {
	return &store.Message{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Body:      body,
		Origin:    origin,
		CreatedAt: time.Now(),
	}
}
