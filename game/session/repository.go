package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/flipmatch/flipmatch/game/engine"
	"github.com/flipmatch/flipmatch/store"
)

var (
	ErrNotFound         = errors.New("session not found")
	ErrCorruptRecord    = errors.New("corrupt session record")
	ErrStoreUnavailable = errors.New("session store unavailable")
)

const (
	// keyPrefix namespaces session records in the store.
	keyPrefix = "game:"

	// Retention is the sliding expiration window: every save pushes the
	// record's expiry this far into the future.
	Retention = 24 * time.Hour
)

// Repository reads and writes session records through the store adapter.
type Repository struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewRepository creates a session repository over the given store.
func NewRepository(st *store.Store, logger zerolog.Logger) *Repository {
	return &Repository{store: st, logger: logger}
}

func key(id string) string {
	return keyPrefix + id
}

// Fetch loads the session with the given id. A missing key is
// ErrNotFound; a record that no longer deserializes is ErrCorruptRecord,
// never silently defaulted.
func (r *Repository) Fetch(ctx context.Context, id string) (*engine.Session, error) {
	data, found, err := r.store.Get(ctx, key(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var sess engine.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, id, err)
	}
	return &sess, nil
}

// Exists reports whether a session record is present. Store failures read
// as false: absence is assumed on ambiguity, never presence.
func (r *Repository) Exists(ctx context.Context, id string) bool {
	return r.store.Exists(ctx, key(id))
}

// Save overwrites the whole session record and resets its expiration to
// Retention from now. The session is echoed back so calls chain. Save is
// a blind overwrite; mutations that may race should go through Update.
func (r *Repository) Save(ctx context.Context, sess *engine.Session) (*engine.Session, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session %s: %w", sess.ID, err)
	}
	if err := r.store.Set(ctx, key(sess.ID), data, Retention); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return sess, nil
}

// Update applies mutate to the current record under optimistic
// concurrency control and persists the result, resetting the TTL. mutate
// returns false to finish without writing (the session is returned as
// read); any error from mutate aborts the update unchanged. Concurrent
// writers cost a retry, not a lost write.
func (r *Repository) Update(ctx context.Context, id string, mutate func(*engine.Session) (bool, error)) (*engine.Session, error) {
	var out *engine.Session

	err := r.store.Update(ctx, key(id), Retention, func(old []byte, found bool) ([]byte, error) {
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		var sess engine.Session
		if err := json.Unmarshal(old, &sess); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, id, err)
		}

		write, err := mutate(&sess)
		if err != nil {
			return nil, err
		}
		out = &sess
		if !write {
			return nil, nil
		}
		return json.Marshal(&sess)
	})

	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCorruptRecord):
		return nil, err
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, store.ErrConflict):
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		// mutate's own error, passed through untouched.
		return nil, err
	}
}

// All loads every live session record. Records that fail to decode are
// skipped with a warning rather than failing the whole listing.
func (r *Repository) All(ctx context.Context) ([]*engine.Session, error) {
	keys, err := r.store.Keys(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	sessions := make([]*engine.Session, 0, len(keys))
	for _, k := range keys {
		data, found, err := r.store.Get(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if !found {
			continue // expired between SCAN and GET
		}

		var sess engine.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			r.logger.Warn().Str("key", k).Err(err).Msg("skipping corrupt session record")
			continue
		}
		sessions = append(sessions, &sess)
	}
	return sessions, nil
}
