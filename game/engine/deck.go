package engine

import (
	"fmt"
	"math/rand/v2"
)

// GenerateDeck builds a shuffled, paired deck for a square board of the
// given side length. The theme provides availableValues distinct card
// values; the deck draws floor(boardSize²/2) of them without repetition,
// duplicates each once, and shuffles the result uniformly. On boards with
// an odd number of cells one cell stays empty, so the deck is one card
// short of the board.
func GenerateDeck(boardSize, availableValues int) ([]Card, error) {
	// A 1x1 board would hold zero pairs and could never replay.
	if boardSize < 2 {
		return nil, fmt.Errorf("%w: board size must be at least 2, got %d", ErrInvalidParameters, boardSize)
	}

	pairCount := boardSize * boardSize / 2
	if availableValues < pairCount {
		return nil, fmt.Errorf("%w: need %d values, theme has %d", ErrInsufficientThemeValues, pairCount, availableValues)
	}

	// Draw pairCount distinct values from 1..availableValues.
	values := make([]int, 0, pairCount*2)
	for _, v := range rand.Perm(availableValues)[:pairCount] {
		values = append(values, v+1, v+1)
	}

	rand.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})

	cards := make([]Card, len(values))
	for i, v := range values {
		cards[i] = Card{Value: v}
	}

	return cards, nil
}
