package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewWithClient(client, zerolog.Nop())
}

func TestStore_SetGet(t *testing.T) {
	_, st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", []byte("v"), time.Minute))

	data, found, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), data)
}

func TestStore_GetMissing(t *testing.T) {
	_, st := setupStore(t)

	data, found, err := st.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, data)
}

func TestStore_SetRefreshesTTL(t *testing.T) {
	mr, st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", []byte("v1"), time.Hour))
	mr.FastForward(30 * time.Minute)
	require.NoError(t, st.Set(ctx, "k", []byte("v2"), time.Hour))

	assert.Equal(t, time.Hour, mr.TTL("k"))
}

func TestStore_Exists(t *testing.T) {
	_, st := setupStore(t)
	ctx := context.Background()

	assert.False(t, st.Exists(ctx, "k"))
	require.NoError(t, st.Set(ctx, "k", []byte("v"), 0))
	assert.True(t, st.Exists(ctx, "k"))
}

func TestStore_ExistsDowngradesErrors(t *testing.T) {
	mr, st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", []byte("v"), 0))
	mr.Close()

	// A dead server must read as absent, never as present.
	assert.False(t, st.Exists(ctx, "k"))
}

func TestStore_Keys(t *testing.T) {
	_, st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "game:a", []byte("1"), 0))
	require.NoError(t, st.Set(ctx, "game:b", []byte("2"), 0))
	require.NoError(t, st.Set(ctx, "other:c", []byte("3"), 0))

	keys, err := st.Keys(ctx, "game:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"game:a", "game:b"}, keys)
}

func TestStore_Update(t *testing.T) {
	mr, st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", []byte("old"), time.Hour))

	err := st.Update(ctx, "k", time.Hour, func(old []byte, found bool) ([]byte, error) {
		require.True(t, found)
		require.Equal(t, []byte("old"), old)
		return []byte("new"), nil
	})
	require.NoError(t, err)

	assert.Equal(t, "new", mustGet(t, mr, "k"))
}

func TestStore_UpdateSkipsWrite(t *testing.T) {
	mr, st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", []byte("old"), time.Hour))

	err := st.Update(ctx, "k", time.Hour, func(old []byte, found bool) ([]byte, error) {
		return nil, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "old", mustGet(t, mr, "k"))
}

func TestStore_UpdateRetriesOnConflict(t *testing.T) {
	mr, st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", []byte("v1"), time.Hour))

	calls := 0
	err := st.Update(ctx, "k", time.Hour, func(old []byte, found bool) ([]byte, error) {
		calls++
		if calls == 1 {
			// A second writer touches the key between the watched read
			// and the commit; the transaction must abort and re-run
			// against the fresh value.
			require.NoError(t, mr.Set("k", "intruder"))
		}
		return append([]byte("seen:"), old...), nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, calls, "mutate must re-run after losing the race")
	assert.Equal(t, "seen:intruder", mustGet(t, mr, "k"))
}

func TestStore_UpdateConflictExhaustion(t *testing.T) {
	mr, st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", []byte("v1"), time.Hour))

	calls := 0
	err := st.Update(ctx, "k", time.Hour, func(old []byte, found bool) ([]byte, error) {
		calls++
		// Lose the race on every attempt.
		require.NoError(t, mr.Set("k", fmt.Sprintf("intruder-%d", calls)))
		return []byte("mine"), nil
	})
	require.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, maxUpdateRetries, calls)
	// The losing write never lands; the last intruder's value survives.
	assert.Equal(t, fmt.Sprintf("intruder-%d", maxUpdateRetries), mustGet(t, mr, "k"))
}

func TestStore_UpdateMissingKey(t *testing.T) {
	_, st := setupStore(t)

	var sawFound bool
	err := st.Update(context.Background(), "absent", time.Hour, func(old []byte, found bool) ([]byte, error) {
		sawFound = found
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, sawFound)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
