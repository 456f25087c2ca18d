package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipmatch/flipmatch/game/engine"
	"github.com/flipmatch/flipmatch/store"
)

func setupRepository(t *testing.T) (*miniredis.Miniredis, *Repository) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	st := store.NewWithClient(client, zerolog.Nop())
	return mr, NewRepository(st, zerolog.Nop())
}

func newSession(t *testing.T) *engine.Session {
	t.Helper()
	sess, err := engine.NewSession(4, 2, "eighties", engine.VisibilityPublic, 100)
	require.NoError(t, err)
	return sess
}

func TestRepository_SaveFetchRoundTrip(t *testing.T) {
	_, repo := setupRepository(t)
	ctx := context.Background()

	sess := newSession(t)
	sess.JoinPlayer("p1", "Ann")

	saved, err := repo.Save(ctx, sess)
	require.NoError(t, err)
	assert.Same(t, sess, saved, "save echoes the session")

	got, err := repo.Fetch(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.Cards, got.Cards)
	assert.Equal(t, sess.Players, got.Players)
	assert.Equal(t, sess.Theme, got.Theme)
	assert.Equal(t, sess.FlipsAllowed, got.FlipsAllowed)
	assert.Equal(t, sess.Turn, got.Turn)
	assert.Equal(t, sess.Visibility, got.Visibility)
	assert.True(t, sess.CreatedAt.Equal(got.CreatedAt))
}

func TestRepository_SaveSetsSlidingTTL(t *testing.T) {
	mr, repo := setupRepository(t)
	ctx := context.Background()

	sess := newSession(t)
	_, err := repo.Save(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, Retention, mr.TTL("game:"+sess.ID))

	// A later save resets the window.
	mr.FastForward(12 * time.Hour)
	_, err = repo.Save(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, Retention, mr.TTL("game:"+sess.ID))
}

func TestRepository_FetchNotFound(t *testing.T) {
	_, repo := setupRepository(t)

	_, err := repo.Fetch(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_FetchCorruptRecord(t *testing.T) {
	mr, repo := setupRepository(t)

	require.NoError(t, mr.Set("game:bad", "{not json"))

	_, err := repo.Fetch(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestRepository_Exists(t *testing.T) {
	mr, repo := setupRepository(t)
	ctx := context.Background()

	sess := newSession(t)
	assert.False(t, repo.Exists(ctx, sess.ID))

	_, err := repo.Save(ctx, sess)
	require.NoError(t, err)
	assert.True(t, repo.Exists(ctx, sess.ID))

	// A dead store reads as absent.
	mr.Close()
	assert.False(t, repo.Exists(ctx, sess.ID))
}

func TestRepository_UpdateJoinPersists(t *testing.T) {
	_, repo := setupRepository(t)
	ctx := context.Background()

	sess := newSession(t)
	_, err := repo.Save(ctx, sess)
	require.NoError(t, err)

	updated, err := repo.Update(ctx, sess.ID, func(s *engine.Session) (bool, error) {
		_, ok := s.JoinPlayer("p1", "Ann")
		return ok, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", updated.Players[0].ID)

	got, err := repo.Fetch(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "p1", got.Players[0].ID)
	assert.True(t, got.Players[0].Joined)
}

func TestRepository_UpdateConcurrentJoinsKeepBothSeats(t *testing.T) {
	mr, repo := setupRepository(t)
	ctx := context.Background()

	sess := newSession(t)
	_, err := repo.Save(ctx, sess)
	require.NoError(t, err)

	// While p2's update is in flight, p1 joins and commits first. p2's
	// transaction loses the race, re-reads the record with p1 seated, and
	// resolves to the remaining seat instead of overwriting p1's.
	calls := 0
	updated, err := repo.Update(ctx, sess.ID, func(s *engine.Session) (bool, error) {
		calls++
		if calls == 1 {
			rival := *s
			rival.Players = append([]engine.Player(nil), s.Players...)
			rival.JoinPlayer("p1", "Ann")
			data, jerr := json.Marshal(&rival)
			require.NoError(t, jerr)
			require.NoError(t, mr.Set("game:"+sess.ID, string(data)))
		}
		_, ok := s.JoinPlayer("p2", "Bo")
		return ok, nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, calls, "the losing join must re-run against the fresh record")
	assert.Equal(t, "p1", updated.Players[0].ID)
	assert.Equal(t, "p2", updated.Players[1].ID)
	assert.Equal(t, 0, updated.Turn, "both joins landed, so the turn started")

	got, err := repo.Fetch(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "p1", got.Players[0].ID)
	assert.Equal(t, "p2", got.Players[1].ID)
}

func TestRepository_UpdateNoWriteLeavesRecordUntouched(t *testing.T) {
	mr, repo := setupRepository(t)
	ctx := context.Background()

	sess := newSession(t)
	sess.JoinPlayer("p1", "Ann")
	sess.JoinPlayer("p2", "Bo")
	_, err := repo.Save(ctx, sess)
	require.NoError(t, err)

	before, err := mr.Get("game:" + sess.ID)
	require.NoError(t, err)

	_, err = repo.Update(ctx, sess.ID, func(s *engine.Session) (bool, error) {
		_, ok := s.JoinPlayer("p3", "Cy") // full table
		return ok, nil
	})
	require.NoError(t, err)

	after, err := mr.Get("game:" + sess.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a no-op join must leave the stored record byte-for-byte unchanged")
}

func TestRepository_UpdateMissing(t *testing.T) {
	_, repo := setupRepository(t)

	_, err := repo.Update(context.Background(), "missing", func(s *engine.Session) (bool, error) {
		return true, nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_UpdatePassesThroughMutationErrors(t *testing.T) {
	_, repo := setupRepository(t)
	ctx := context.Background()

	sess := newSession(t)
	_, err := repo.Save(ctx, sess)
	require.NoError(t, err)

	_, err = repo.Update(ctx, sess.ID, func(s *engine.Session) (bool, error) {
		return false, s.Replay("tiny", 1) // pool too small for a 4x4 board
	})
	assert.ErrorIs(t, err, engine.ErrInsufficientThemeValues)
}

func TestRepository_All(t *testing.T) {
	mr, repo := setupRepository(t)
	ctx := context.Background()

	a := newSession(t)
	b := newSession(t)
	_, err := repo.Save(ctx, a)
	require.NoError(t, err)
	_, err = repo.Save(ctx, b)
	require.NoError(t, err)

	// Corrupt garbage is skipped, not fatal.
	require.NoError(t, mr.Set("game:junk", "oops"))

	all, err := repo.All(ctx)
	require.NoError(t, err)

	ids := []string{all[0].ID}
	if len(all) > 1 {
		ids = append(ids, all[1].ID)
	}
	assert.Len(t, all, 2)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}
