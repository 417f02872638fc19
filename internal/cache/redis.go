package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/vivero-po/internal/config"
)

const (
	defaultRedisHost = "127.0.0.1"
	defaultRedisPort = "6379"
	defaultStatusTTL = time.Minute
	defaultNamespace = "default"
	pingTimeout      = 5 * time.Second
	purgeBatch       = 100
)

// keyspace names the cached planning read models. Every key of one state
// store lives under the same root so a run or a reset can drop them
// together without touching other stores sharing the server.
type keyspace struct {
	root string
}

func newKeyspace(namespace string) keyspace {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = defaultNamespace
	}
	return keyspace{root: "vivero:" + namespace + ":planning:"}
}

func (k keyspace) status() string {
	return k.root + "status"
}

func (k keyspace) executions(limit int) string {
	return k.root + "executions:" + strconv.Itoa(limit)
}

func (k keyspace) pattern() string {
	return k.root + "*"
}

// connectRedis opens the client and checks the server answers before the
// planner relies on it.
func connectRedis(cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

func statusTTL(cfg config.CacheConfig) time.Duration {
	if cfg.StatusTTLSeconds <= 0 {
		return defaultStatusTTL
	}
	return time.Duration(cfg.StatusTTLSeconds) * time.Second
}

// redisOptions prefers REDIS_URL; otherwise host, port, password and db.
func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = defaultRedisHost
	}
	if port == "" {
		port = defaultRedisPort
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

// purge unlinks every key matching pattern, a batch at a time.
func purge(ctx context.Context, client *redis.Client, pattern string) (int, error) {
	iter := client.Scan(ctx, 0, pattern, purgeBatch).Iterator()

	removed := 0
	batch := make([]string, 0, purgeBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis unlink: %w", err)
		}
		removed += len(batch)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	return removed, flush()
}
