// Package session persists game sessions in Redis.
//
// The repository owns the "game:<id>" key namespace and the record
// lifecycle: sessions are serialized as JSON, every save resets a 24 hour
// expiration (sliding TTL), and records disappear on their own once the
// window lapses. There is no explicit delete path.
//
// Concurrency:
//
// A plain Save is a blind overwrite: two handlers that fetched the same
// snapshot and save concurrently resolve last-writer-wins over the whole
// record, silently dropping the earlier write. Update closes that race
// for the mutation paths that need it (joins, replays) with an
// optimistic, WATCH-based read-modify-write: the commit aborts and
// retries if another writer touched the record in between.
package session
