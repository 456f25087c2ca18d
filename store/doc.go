// Package store is a thin Redis adapter: byte-level get, set with
// expiry, exists, and an optimistic read-modify-write primitive. It owns
// the connection pool and per-operation timeouts and knows nothing about
// game sessions; the key namespace and record codec live one layer up in
// the session package.
package store
