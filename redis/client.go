package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
	"github.com/kelseyhightower/envconfig"
)

type DB int
type ReleaseLock func() error

type Client struct {
	client         redis.UniversalClient
	lockExpiration time.Duration
	ttl            time.Duration
}

type Config struct {
	Enabled                 bool    `envconfig:"SOAR_REDIS_ENABLED" default:"false"`
	DB                      int     `envconfig:"SOAR_REDIS_DB" default:"0"`
	LockExpirationSeconds   int     `envconfig:"SOAR_REDIS_LOCK_EXPIRATION" default:"30"`
	TTLHours                int     `envconfig:"SOAR_REDIS_TTL_HOURS" default:"0"`
	Host                    string  `envconfig:"SOAR_REDIS_HOST" default:"localhost"`
	Port                    string  `envconfig:"SOAR_REDIS_PORT" default:"6379"`
	HASentinelPort          string  `envconfig:"SOAR_REDIS_HA_SENTINEL_PORT" default:"26379"`
	HASentinelMasterName    string  `envconfig:"SOAR_REDIS_HA_MASTER_NAME" default:"mymaster"`
	Password                string  `envconfig:"SOAR_REDIS_AUTH_PASSWORD"`
	AuthRequired            bool    `envconfig:"SOAR_REDIS_AUTH_REQUIRED" default:"false"`
	HAMode                  bool    `envconfig:"SOAR_REDIS_HA_MODE" default:"false"`
	HASentinelSocketTimeout float32 `envconfig:"SOAR_REDIS_SOCKET_TIMEOUT" default:"0.5"`
}

func NewClient(cfg *Config) *Client {
	var client redis.UniversalClient
	if cfg.HAMode {
		client = CreateClusterClient(cfg, DB(cfg.DB))
	} else {
		client = CreateClient(cfg, DB(cfg.DB))
	}
	return WrapClient(client,
		time.Duration(cfg.LockExpirationSeconds)*time.Second,
		time.Duration(cfg.TTLHours)*time.Hour)
}

// WrapClient wraps an existing connection; a zero ttl keeps keys forever.
func WrapClient(client redis.UniversalClient, lockExpiration, ttl time.Duration) *Client {
	return &Client{client: client, lockExpiration: lockExpiration, ttl: ttl}
}

func CreateClusterClient(cfg *Config, db DB) *redis.ClusterClient {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.HASentinelPort)
	timeout := time.Duration(float64(cfg.HASentinelSocketTimeout) * float64(time.Second))
	options := redis.FailoverOptions{
		SentinelAddrs: []string{addr},
		ReadTimeout:   timeout,
		WriteTimeout:  timeout,
		MaxRetries:    6,
		DB:            int(db),
		MasterName:    cfg.HASentinelMasterName,
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewFailoverClusterClient(&options)
}

func CreateClient(cfg *Config, db DB) *redis.Client {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	options := redis.Options{
		Addr:       addr,
		MaxRetries: 6,
		DB:         int(db),
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewClient(&options)
}

// GetJSON decodes the value under key into v. It reports false when the key is absent.
func (client *Client) GetJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	b, err := client.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("redis key %s: %w", key, err)
	}
	return true, nil
}

func (client *Client) SetJSON(ctx context.Context, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.client.Set(ctx, key, b, client.ttl).Err()
}

func (client *Client) Lock(ctx context.Context, key string) (ReleaseLock, error) {
	lockCl := redislock.New(client.client)
	str := redislock.LimitRetry(redislock.LinearBackoff(time.Second), 20)
	lockKey := fmt.Sprintf("lock:%s", key)
	lock, err := lockCl.Obtain(ctx, lockKey, client.lockExpiration, &redislock.Options{RetryStrategy: str})
	if err != nil {
		return nil, err
	}
	return func() error {
		return lock.Release(context.Background())
	}, nil
}

func (client *Client) Close() error {
	return client.client.Close()
}

func ReadEnvironment() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
