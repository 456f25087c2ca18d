package engine

import (
	"errors"
	"time"
)

var (
	ErrInvalidParameters       = errors.New("invalid game parameters")
	ErrInsufficientThemeValues = errors.New("theme does not provide enough values for this board")
)

// DefaultFlipsAllowed is the number of cards a player may reveal per turn.
const DefaultFlipsAllowed = 2

// TurnNotStarted is the Turn value of a session whose seats are not all
// filled yet.
const TurnNotStarted = -1

// Visibility controls whether a session shows up in the public directory.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is one of the known visibility values.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Card is a single tile on the board. Exactly two cards in a session
// share each Value. Flipped and Matched are presentation state owned by
// the move-validation layer; they ride along in the record so the whole
// session round-trips through the store.
type Card struct {
	Value   int  `json:"value"`
	Flipped bool `json:"flipped"`
	Matched bool `json:"matched"`
}

// Player is one seat in a session. A seat is vacant while ID and Name are
// both empty; a successful join fills both and marks the seat joined and
// online.
type Player struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Joined          bool   `json:"joined"`
	Online          bool   `json:"online"`
	Score           int    `json:"score"`
	Turns           int    `json:"turns"`
	InaccurateTurns int    `json:"inaccurateTurns"`
}

// Vacant reports whether the seat has never been claimed (or was cleared).
func (p Player) Vacant() bool {
	return p.ID == "" && p.Name == ""
}

// Session is one game in progress or forming. Turn is an index into
// Players, or TurnNotStarted while seats remain vacant.
type Session struct {
	ID           string     `json:"id"`
	Cards        []Card     `json:"cards"`
	Players      []Player   `json:"players"`
	Theme        string     `json:"theme"`
	FlipsAllowed int        `json:"flipsAllowed"`
	Turn         int        `json:"turn"`
	Visibility   Visibility `json:"visibility"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// PlayerPresence is one entry of the directory listing: the player's
// online flag keyed under "name". The shape is kept as-is for
// compatibility with the listing consumers, which only need a minimal
// payload per seat.
type PlayerPresence map[string]bool

// Summary is the read-only projection served by the session directory.
type Summary struct {
	ID      string           `json:"id"`
	Theme   string           `json:"theme"`
	Size    string           `json:"size"`
	Players []PlayerPresence `json:"players"`
}
