// Package conversation implements the thread-scoped router between authors
// and Slack.
//
// # Overview
//
// The Router sits between the HTTP handlers and the Slack client. Each
// named author maps to exactly one Slack thread; the mapping is created
// lazily on the author's first outbound message and never changes
// afterwards. Inbound platform replies are attributed back to the owning
// author by thread identity. The store's message log, not Slack, is the
// source of truth for conversation history.
//
// # Operations
//
//   - Send(ctx, author, body): resolve or create the author's thread, post
//     the message, and record it with origin human
//   - RouteInbound(ctx, threadID, body): attribute a platform reply to the
//     thread's owner and record it with origin automated; unknown threads
//     are ignored without error
//   - History(ctx, author): the author's log, oldest first
//
// # Ordering of effects
//
// A message is only recorded after the Slack post is confirmed, so a failed
// send leaves no partial state. On a first send the thread assignment and
// the message append commit as a single store transaction; if a concurrent
// first-send wins the assignment race, the loser re-reads the author and
// joins the winner's thread.
package conversation
