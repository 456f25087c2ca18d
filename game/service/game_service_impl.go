package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/flipmatch/flipmatch/game/engine"
	"github.com/flipmatch/flipmatch/game/themes"
)

// gameServiceImpl implements the GameService interface.
type gameServiceImpl struct {
	sessions SessionRepository
	themes   ThemeCatalog
	logger   zerolog.Logger
}

// NewGameService creates a new game service instance.
func NewGameService(sessions SessionRepository, catalog ThemeCatalog, logger zerolog.Logger) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		themes:   catalog,
		logger:   logger,
	}
}

// CreateGame builds a fresh session for the requested board and seat
// count and persists it. The theme catalog is consulted first so that a
// board too large for the theme's pool fails before anything is written.
func (s *gameServiceImpl) CreateGame(ctx context.Context, params CreateGameParams) (*engine.Session, error) {
	theme := params.Theme
	if theme == "" {
		theme = themes.DefaultThemeName
	}

	available, err := s.themes.CardsAvailable(theme)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve theme %s: %w", theme, err)
	}

	sess, err := engine.NewSession(params.BoardSize, params.PlayerCount, theme, params.Visibility, available)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("game", sess.ID).
		Str("theme", theme).
		Int("board", params.BoardSize).
		Int("players", params.PlayerCount).
		Str("visibility", string(params.Visibility)).
		Msg("game created")

	return sess, nil
}

// GetGame loads one session by id.
func (s *gameServiceImpl) GetGame(ctx context.Context, id string) (*engine.Session, error) {
	return s.sessions.Fetch(ctx, id)
}

// ListGames returns directory summaries for every public session, newest
// first. Private sessions are reachable by id but never listed.
func (s *gameServiceImpl) ListGames(ctx context.Context) ([]engine.Summary, error) {
	all, err := s.sessions.All(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	summaries := make([]engine.Summary, 0, len(all))
	for _, sess := range all {
		if sess.Visibility != engine.VisibilityPublic {
			continue
		}
		summaries = append(summaries, sess.Summary())
	}
	return summaries, nil
}

// JoinGame claims a seat through the repository's optimistic update, so
// two players joining the same game at once cost a retry instead of a
// lost seat. A full session returns (nil, nil) without writing.
func (s *gameServiceImpl) JoinGame(ctx context.Context, id, playerID, name string) (*engine.Player, error) {
	var joined *engine.Player

	_, err := s.sessions.Update(ctx, id, func(sess *engine.Session) (bool, error) {
		player, ok := sess.JoinPlayer(playerID, name)
		joined = player
		return ok, nil
	})
	if err != nil {
		return nil, err
	}
	if joined == nil {
		s.logger.Debug().Str("game", id).Str("player", playerID).Msg("join refused, session full")
		return nil, nil
	}

	s.logger.Info().Str("game", id).Str("player", playerID).Str("name", name).Msg("player joined")
	return joined, nil
}

// ReplayGame starts another round of an existing session under the given
// theme. It goes through the optimistic update path for the same reason
// joins do.
func (s *gameServiceImpl) ReplayGame(ctx context.Context, id, theme string) (*engine.Session, error) {
	if theme == "" {
		theme = themes.DefaultThemeName
	}

	available, err := s.themes.CardsAvailable(theme)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve theme %s: %w", theme, err)
	}

	sess, err := s.sessions.Update(ctx, id, func(sess *engine.Session) (bool, error) {
		if err := sess.Replay(theme, available); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("game", id).Str("theme", theme).Msg("game replayed")
	return sess, nil
}

// ListThemes returns the theme catalog listing.
func (s *gameServiceImpl) ListThemes(ctx context.Context) ([]*themes.Info, error) {
	return s.themes.List()
}

// SaveTheme adds or replaces a theme in the catalog.
func (s *gameServiceImpl) SaveTheme(ctx context.Context, name string, theme *themes.Theme) error {
	if err := s.themes.Save(name, theme); err != nil {
		return err
	}
	s.logger.Info().Str("theme", name).Int("cards", len(theme.Cards)).Msg("theme saved")
	return nil
}
