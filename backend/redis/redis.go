package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ternvale/excache/backend"
)

var ErrNilClient = errors.New("redis backend: nil client")

// Store adapts a redis client to the backend contract.
type Store struct {
	rdb          goredis.UniversalClient
	closeClient  bool
	resetPattern string
}

var _ backend.Store = (*Store)(nil)

type Config struct {
	Client goredis.UniversalClient

	// CloseClient: set true only if this store exclusively owns the
	// client.
	CloseClient bool

	// ResetPattern scopes Reset to a SCAN pattern, typically
	// excache.KeyPrefix(name) + "*". Empty disables Reset
	// (backend.ErrResetUnsupported) rather than risk flushing keys the
	// cache does not own.
	ResetPattern string
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Store{
		rdb:          cfg.Client,
		closeClient:  cfg.CloseClient,
		resetPattern: cfg.ResetPattern,
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0 // non-positive TTL means "no expiry" per backend contract
	}
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Reset unlinks every key matching the configured pattern via SCAN, so
// unrelated keyspaces in the same database survive.
func (s *Store) Reset(ctx context.Context) error {
	if s.resetPattern == "" {
		return backend.ErrResetUnsupported
	}
	iter := s.rdb.Scan(ctx, 0, s.resetPattern, 512).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Unlink(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close releases the underlying client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
