// Package engine provides the core game logic for Flipmatch, a
// tile-matching (pairs/concentration) game for multiple players.
//
// The engine package implements:
//   - The Session, Player and Card domain model
//   - Paired-deck generation with uniform shuffling
//   - The slot-assignment protocol used when players join or reconnect
//   - Turn initiation (turn order starts the moment the last seat fills)
//   - Replay, which rebuilds the deck and resets player counters
//   - Read-only projections used by the session directory listing
//
// Core Types:
//
// Session is the root aggregate, identified by a short opaque id. Its
// Cards slice always describes a square board; its Players slice is a
// fixed set of seats allocated at creation and never resized. Player is
// one seat, vacant until a player claims it. Card is one tile, carrying
// the value shared with exactly one partner card.
//
// Purity:
//
// Everything in this package is pure state manipulation. Nothing here
// performs I/O; persistence is owned by the session package and
// orchestration by the service package. Callers mutate a Session through
// the exported methods and are responsible for writing the result back.
//
// Usage:
//
//	sess, err := engine.NewSession(4, 2, "eighties", engine.VisibilityPublic, 30)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	player, joined := sess.JoinPlayer("p1", "Ann")
//	if !joined {
//		// every seat is taken by someone else
//	}
//
// Concurrency:
//
// A Session value is not safe for concurrent mutation. The intended use
// is one short-lived read-modify-write cycle per request; see the session
// package for how concurrent writers are reconciled at the store.
package engine
