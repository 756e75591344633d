package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/redis/go-redis/v9"
)

// StateDB is the SONiC STATE_DB database number.
const StateDB = 6

// PubSub is a subscription opened by Subscribe.
type PubSub = redis.PubSub

// Client wraps the Redis client for SONiC STATE_DB operations.
type Client struct {
	rdb *redis.Client
}

// Config contains Redis connection configuration. Addr is a unix socket path when
// it starts with "/".
type Config struct {
	Addr    string
	DB      int
	Timeout time.Duration
}

func (c *Config) network() string {
	if strings.HasPrefix(c.Addr, "/") {
		return "unix"
	}
	return "tcp"
}

// DefaultConfig returns a default Redis configuration for SONiC STATE_DB.
func DefaultConfig() *Config {
	return &Config{
		Addr:    "127.0.0.1:6379",
		DB:      StateDB,
		Timeout: 5 * time.Second,
	}
}

// NewClient creates a new Redis client with the given configuration.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	glog.V(2).Infof("Connecting to Redis at %s (database %d)", config.Addr, config.DB)

	rdb := redis.NewClient(&redis.Options{
		Network:     config.network(),
		Addr:        config.Addr,
		DB:          config.DB,
		DialTimeout: config.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		glog.Errorf("Failed to connect to Redis at %s: %v", config.Addr, err)
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	glog.V(2).Info("Successfully connected to Redis")
	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	if c != nil && c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Ping tests the connection to Redis.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// HGetAll returns every field of a hash. A missing key yields an empty map.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	result, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read hash '%s': %w", key, err)
	}
	return result, nil
}

// Keys returns the keys matching pattern.
func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := c.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys '%s': %w", pattern, err)
	}
	return keys, nil
}

// ReplaceHashes overwrites every given hash inside one MULTI/EXEC transaction. Each
// key is deleted first; keys mapped to an empty or nil map stay deleted.
func (c *Client) ReplaceHashes(ctx context.Context, hashes map[string]map[string]string) error {
	keys := make([]string, 0, len(hashes))
	for key := range hashes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Del(ctx, key)
			if fields := hashes[key]; len(fields) > 0 {
				pipe.HSet(ctx, key, pairs(fields))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write %v: %w", keys, err)
	}
	return nil
}

// Publish sends message on channel.
func (c *Client) Publish(ctx context.Context, channel, message string) error {
	if err := c.rdb.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("failed to publish on '%s': %w", channel, err)
	}
	return nil
}

// Subscribe opens a subscription and waits for the server to confirm it.
func (c *Client) Subscribe(ctx context.Context, channels ...string) (*PubSub, error) {
	if len(channels) == 0 {
		return nil, errors.New("no channel to subscribe")
	}
	ps := c.rdb.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %v: %w", channels, err)
	}
	return ps, nil
}

func pairs(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]string, 0, 2*len(names))
	for _, name := range names {
		out = append(out, name, fields[name])
	}
	return out
}
