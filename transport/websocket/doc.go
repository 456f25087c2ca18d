// Package websocket pushes game updates to connected browsers.
//
// The hub keeps one subscriber set per game plus a lobby set for clients
// watching the public directory. The engine never pushes directly: an API
// handler finishes its mutation, then hands the updated session and the
// refreshed directory listing to the hub for fan-out. Clients are
// write-only from the server's point of view; inbound frames only keep
// the connection alive.
package websocket
