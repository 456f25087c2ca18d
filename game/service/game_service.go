package service

import (
	"context"

	"github.com/flipmatch/flipmatch/game/engine"
	"github.com/flipmatch/flipmatch/game/themes"
)

// GameService defines all game-related operations.
type GameService interface {
	// Session lifecycle
	CreateGame(ctx context.Context, params CreateGameParams) (*engine.Session, error)
	GetGame(ctx context.Context, id string) (*engine.Session, error)
	ListGames(ctx context.Context) ([]engine.Summary, error)

	// Mutations
	// JoinGame returns (nil, nil) when every seat is taken by someone
	// else; a full session is a normal outcome, not an error.
	JoinGame(ctx context.Context, id, playerID, name string) (*engine.Player, error)
	ReplayGame(ctx context.Context, id, theme string) (*engine.Session, error)

	// Themes
	ListThemes(ctx context.Context) ([]*themes.Info, error)
	SaveTheme(ctx context.Context, name string, theme *themes.Theme) error
}

// SessionRepository defines the persistence operations the service needs.
type SessionRepository interface {
	Fetch(ctx context.Context, id string) (*engine.Session, error)
	Save(ctx context.Context, sess *engine.Session) (*engine.Session, error)
	Update(ctx context.Context, id string, mutate func(*engine.Session) (bool, error)) (*engine.Session, error)
	All(ctx context.Context) ([]*engine.Session, error)
}

// ThemeCatalog defines the theme lookups the service needs.
type ThemeCatalog interface {
	CardsAvailable(name string) (int, error)
	List() ([]*themes.Info, error)
	Save(name string, theme *themes.Theme) error
}

// CreateGameParams carries the validated inputs for a new session.
type CreateGameParams struct {
	BoardSize   int
	PlayerCount int
	Theme       string
	Visibility  engine.Visibility
}
