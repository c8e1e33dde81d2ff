// ABOUTME: Store interface and data types for scribe-gateway persistence
// ABOUTME: Defines Author, Message structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrThreadAssigned is returned when assigning a thread to an author that
// already has one. Thread assignment is single-shot and permanent.
var ErrThreadAssigned = errors.New("thread already assigned")

// ErrDuplicateThread is returned when a thread id is already claimed by
// another author. No two authors may ever share a thread.
var ErrDuplicateThread = errors.New("thread already claimed by another author")

// Origin tags who authored a message.
//
// Convention (fixed): OriginAutomated marks only messages that arrived from
// the platform side, i.e. operator replies delivered through Slack. Messages
// submitted for outbound delivery on behalf of an author are OriginHuman.
type Origin string

const (
	OriginHuman     Origin = "human"
	OriginAutomated Origin = "automated"
)

// Author represents an external correspondent tracked by name.
// An author is created the first time an outbound send names them and is
// never deleted or renamed. ThreadID is empty until the first send opens
// the author's Slack thread; once set it never changes.
type Author struct {
	ID        string
	Name      string
	ThreadID  string
	CreatedAt time.Time
}

// Message is a single immutable entry in an author's conversation log.
type Message struct {
	ID        string
	AuthorID  string
	Body      string
	Origin    Origin
	CreatedAt time.Time
}

// Store defines the interface for author and message persistence
type Store interface {
	// Authors
	GetOrCreateAuthor(ctx context.Context, name string) (author *Author, created bool, err error)
	GetAuthorByName(ctx context.Context, name string) (*Author, error)
	FindAuthorByThread(ctx context.Context, threadID string) (*Author, error)

	// Thread assignment (single-shot)
	AssignThread(ctx context.Context, authorID, threadID string) error

	// Messages (append-only log)
	AppendMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, authorID string) ([]*Message, error)

	// AssignThreadAndAppend commits a first-send's thread assignment and
	// message append as one transaction: either both land or neither does.
	AssignThreadAndAppend(ctx context.Context, authorID, threadID string, msg *Message) error

	// Close releases any resources held by the store
	Close() error
}
