package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// ErrUnavailable wraps any transport-level Redis failure.
	ErrUnavailable = errors.New("store unavailable")
	// ErrConflict is returned when an optimistic update keeps losing the
	// race for its key and runs out of retries.
	ErrConflict = errors.New("store update conflict")
)

const (
	opTimeout = 2 * time.Second

	// maxUpdateRetries bounds the optimistic retry loop in Update.
	maxUpdateRetries = 3
)

// Store is a Redis-backed key/value adapter.
type Store struct {
	client *redis.Client
	logger zerolog.Logger
}

// Config holds Redis connection configuration.
type Config struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
}

// New connects to Redis and verifies the connection with a ping.
func New(config Config, logger zerolog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	logger.Info().
		Str("addr", config.Addr).
		Int("db", config.DB).
		Msg("connected to Redis")

	return &Store{client: client, logger: logger}, nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *redis.Client, logger zerolog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

// Get reads the raw bytes at key. Absence is not an error: a missing key
// returns found == false with a nil error.
func (s *Store) Get(ctx context.Context, key string) (data []byte, found bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err = s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, true, nil
}

// Set writes value under key and (re)sets its expiry. A zero ttl stores
// the key without expiration.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Exists reports whether key is present. Any store error is treated as
// absent: ambiguity never reports presence.
func (s *Store) Exists(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("redis exists failed, assuming absent")
		return false
	}
	return n > 0
}

// Keys returns all keys matching pattern via SCAN.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return keys, nil
}

// Update performs an optimistic read-modify-write on key: it watches the
// key, hands the current bytes to fn, and commits fn's result in a
// transaction that aborts if another writer touched the key in between.
// Lost races are retried up to maxUpdateRetries times before giving up
// with ErrConflict. fn may return nil bytes with a nil error to skip the
// write entirely.
func (s *Store) Update(ctx context.Context, key string, ttl time.Duration, fn func(old []byte, found bool) ([]byte, error)) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	txf := func(tx *redis.Tx) error {
		old, err := tx.Get(ctx, key).Bytes()
		found := true
		if err == redis.Nil {
			old, found = nil, false
		} else if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		next, err := fn(old, found)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug().Str("key", key).Int("attempt", attempt+1).Msg("update lost the race, retrying")
			continue
		}
		return err
	}
	return fmt.Errorf("%w: key %s", ErrConflict, key)
}

// Ping checks whether Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
