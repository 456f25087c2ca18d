// Package api exposes the game service over REST.
//
// Routes live under /api: game creation, the public directory listing,
// fetching a game by id, joining a seat, and replaying a finished round,
// plus the theme catalog. /ws upgrades to a WebSocket subscription. After
// every successful mutation the server fans the updated session and the
// refreshed directory out through the websocket hub; the service itself
// never pushes.
//
// Error mapping follows the service's taxonomy: invalid parameters and
// theme problems are 400s, an unknown game id is a 404, a full session is
// a 409 (it is a normal outcome, not a server fault), and store failures
// are 500s.
package api
