// Package store provides persistent storage for the gateway using SQLite.
//
// # Data Models
//
//   - Author: An external correspondent tracked by unique name, with at most
//     one Slack thread assigned for their whole lifetime
//   - Message: An immutable entry in an author's log, tagged with an Origin
//     (human for outbound submissions, automated for platform-side replies)
//
// # Invariants
//
// The store is the arbiter for the system's hard invariants:
//
//   - One author row per name (UNIQUE constraint on authors.name)
//   - One author per thread (UNIQUE constraint on authors.thread_id)
//   - Thread assignment is single-shot; reassignment fails with
//     ErrThreadAssigned
//   - Messages are append-only; there is no update or delete path
//
// Under concurrent first-sends for the same new name, the name constraint
// decides the winner: the losing insert fails and the caller re-reads the
// existing row.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//	PRAGMA foreign_keys=ON;
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrThreadAssigned: Author already has a thread
//   - ErrDuplicateThread: Thread already claimed by another author
//
// All methods accept context.Context for cancellation support.
package store
