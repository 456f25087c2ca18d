package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// NewSession creates a freshly-formed session: a shuffled deck for a
// boardSize×boardSize board, playerCount vacant seats, and no turn order
// yet. availableValues is the size of the chosen theme's value pool.
func NewSession(boardSize, playerCount int, theme string, visibility Visibility, availableValues int) (*Session, error) {
	if boardSize <= 0 {
		return nil, fmt.Errorf("%w: board size must be positive, got %d", ErrInvalidParameters, boardSize)
	}
	if playerCount <= 0 {
		return nil, fmt.Errorf("%w: player count must be positive, got %d", ErrInvalidParameters, playerCount)
	}
	if !visibility.Valid() {
		return nil, fmt.Errorf("%w: unknown visibility %q", ErrInvalidParameters, visibility)
	}

	cards, err := GenerateDeck(boardSize, availableValues)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:           newSessionID(),
		Cards:        cards,
		Players:      make([]Player, playerCount),
		Theme:        theme,
		FlipsAllowed: DefaultFlipsAllowed,
		Turn:         TurnNotStarted,
		Visibility:   visibility,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// newSessionID derives a short opaque id from a random UUID.
func newSessionID() string {
	return uuid.NewString()[:8]
}

// BoardSize recomputes the side length from the card count. Both replay
// and the directory listing depend on this exact rounding rule, including
// for odd boards where the deck is one card short of the full square.
func (s *Session) BoardSize() int {
	return int(math.Round(math.Sqrt(float64(len(s.Cards)))))
}

// ResolveSlot finds the seat a joining player should occupy: a single
// ordered pass over the seats, stopping at the first one that either
// already belongs to playerID (reconnect) or has never been joined. The
// second return is false when every seat is taken by someone else.
func (s *Session) ResolveSlot(playerID string) (int, bool) {
	for i, p := range s.Players {
		if p.ID == playerID || !p.Joined {
			return i, true
		}
	}
	return 0, false
}

// JoinPlayer claims a seat for the given player and recomputes the turn
// state. Rejoining with an id that already holds a seat re-targets that
// seat and re-marks it online, so reconnects never consume a second
// vacant seat. When the session is full to this player the session is
// left untouched and ok is false; that is a normal outcome, not an error.
//
// The turn index moves off TurnNotStarted exactly once, on the join that
// fills the last vacant seat.
func (s *Session) JoinPlayer(playerID, name string) (player *Player, ok bool) {
	idx, ok := s.ResolveSlot(playerID)
	if !ok {
		return nil, false
	}

	slot := &s.Players[idx]
	slot.ID = playerID
	slot.Name = name
	slot.Joined = true
	slot.Online = true

	if s.Turn == TurnNotStarted && AllPlayersJoined(s.Players) {
		s.Turn = 0
	}

	return slot, true
}

// Replay rebuilds the session for another round under the given theme:
// every seat keeps its identity but its counters reset, the deck is
// regenerated at the current board size, and the turn state is re-derived
// from seat occupancy. A table of players that never fully formed goes
// back to waiting; a full table starts the new round immediately.
func (s *Session) Replay(theme string, availableValues int) error {
	cards, err := GenerateDeck(s.BoardSize(), availableValues)
	if err != nil {
		return err
	}

	for i := range s.Players {
		s.Players[i].Score = 0
		s.Players[i].Turns = 0
		s.Players[i].InaccurateTurns = 0
	}

	s.Cards = cards
	s.Theme = theme

	s.Turn = TurnNotStarted
	if AllPlayersJoined(s.Players) {
		s.Turn = 0
	}

	return nil
}

// AllPlayersJoined reports whether every seat has been claimed at least
// once since creation or the last replay.
func AllPlayersJoined(players []Player) bool {
	for _, p := range players {
		if !p.Joined {
			return false
		}
	}
	return true
}

// AnyPlayerOnline reports whether at least one seat is currently online.
func (s *Session) AnyPlayerOnline() bool {
	for _, p := range s.Players {
		if p.Online {
			return true
		}
	}
	return false
}

// Summary builds the directory-listing projection of the session.
func (s *Session) Summary() Summary {
	n := s.BoardSize()
	players := make([]PlayerPresence, len(s.Players))
	for i, p := range s.Players {
		players[i] = PlayerPresence{"name": p.Online}
	}

	return Summary{
		ID:      s.ID,
		Theme:   s.Theme,
		Size:    fmt.Sprintf("%dx%d", n, n),
		Players: players,
	}
}
