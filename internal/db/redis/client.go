// Package redis implements db.Store on Redis 8 through rueidis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/whatmovie/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	readyPollMin = 50 * time.Millisecond
	readyPollMax = time.Second
)

// Config holds connection parameters.
type Config struct {
	Addrs        []string
	Username     string
	Password     string
	DB           int
	ClientName   string
	WriteTimeout time.Duration
}

func (c Config) option() rueidis.ClientOption {
	return rueidis.ClientOption{
		InitAddress:      c.Addrs,
		Username:         c.Username,
		Password:         c.Password,
		SelectDB:         c.DB,
		ClientName:       c.ClientName,
		ConnWriteTimeout: c.WriteTimeout,
		DisableCache:     true,
		// FT.SEARCH replies are parsed as flat RESP2 arrays.
		AlwaysRESP2: true,
	}
}

// Store talks to Redis with the Query Engine enabled (HNSW vectors, BM25 text).
type Store struct {
	client rueidis.Client
}

// NewStore dials the configured addresses.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	client, err := rueidis.NewClient(cfg.option())
	if err != nil {
		return nil, fmt.Errorf("redis: connect %s: %w", strings.Join(cfg.Addrs, ","), err)
	}
	return Wrap(client), nil
}

// Wrap builds a Store on an existing client, such as a rueidis/mock one.
func Wrap(client rueidis.Client) *Store {
	return &Store{client: client}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings until Redis answers, backing off between attempts.
// Redis replies LOADING while it replays its dataset after a restart.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wait := readyPollMin
	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("redis not ready after %s (last error: %v): %w", timeout, err, ctx.Err())
		case <-time.After(wait):
		}
		wait = min(2*wait, readyPollMax)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr reports whether err is a server error reply mentioning msg.
func isRedisErr(err error, msg string) bool {
	re, ok := rueidis.IsRedisErr(err)
	return ok && strings.Contains(strings.ToLower(re.Error()), strings.ToLower(msg))
}
