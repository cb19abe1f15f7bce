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

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("redis: key not found")

type Client struct {
	client         redis.UniversalClient
	lockExpiration time.Duration
	lockRetries    int
}

var ctx = context.Background()

type Config struct {
	LockExpirationSeconds   int     `envconfig:"POS_REDIS_LOCK_EXPIRATION" default:"3"`
	LockRetries             int     `envconfig:"POS_REDIS_LOCK_RETRIES" default:"20"`
	Host                    string  `envconfig:"POS_REDIS_HOST" required:"true"`
	Port                    string  `envconfig:"POS_REDIS_PORT" required:"true"`
	HASentinelPort          string  `envconfig:"POS_REDIS_HA_SENTINEL_PORT" default:"26379"`
	HASentinelMasterName    string  `envconfig:"POS_REDIS_HA_MASTER_NAME" default:"mymaster"`
	Password                string  `envconfig:"POS_REDIS_AUTH_PASSWORD" default:"0"`
	AuthRequired            bool    `envconfig:"POS_REDIS_AUTH_REQUIRED" default:"false"`
	HAMode                  bool    `envconfig:"POS_REDIS_HA_MODE" default:"false"`
	HASentinelSocketTimeout float32 `envconfig:"POS_REDIS_SOCKET_TIMEOUT" default:"0.5"`
}

func NewClient(db DB) (Client, error) {
	cfg, err := readEnvironment()
	if err != nil {
		return Client{}, err
	}
	var client redis.UniversalClient
	if cfg.HAMode {
		client = CreateClusterClient(cfg, db)
	} else {
		client = CreateClient(cfg, db)
	}
	return Client{
		client:         client,
		lockExpiration: time.Duration(cfg.LockExpirationSeconds) * time.Second,
		lockRetries:    cfg.LockRetries,
	}, nil
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
	options := redis.Options{
		Addr:       fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		MaxRetries: 6,
		DB:         int(db),
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewClient(&options)
}

func (client *Client) GetBytes(redisKey string) ([]byte, error) {
	b, err := client.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %w", redisKey, ErrNotFound)
	}
	return b, err
}

// SetBytes stores value under redisKey. A zero expiration keeps it forever.
func (client *Client) SetBytes(redisKey string, value []byte, expiration time.Duration) error {
	return client.client.Set(ctx, redisKey, value, expiration).Err()
}

// GetDoc decodes the JSON document stored under redisKey into doc.
func (client *Client) GetDoc(redisKey string, doc interface{}) error {
	b, err := client.GetBytes(redisKey)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(b, doc); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", redisKey, err)
	}
	return nil
}

func (client *Client) SaveDoc(redisKey string, doc interface{}) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return client.SetBytes(redisKey, b, 0)
}

// UpdateDoc reads the document under redisKey into doc, applies update and
// writes it back while holding the key lock.
func (client *Client) UpdateDoc(redisKey string, doc interface{}, update func() error) (err error) {
	releaseLock, err := client.Lock(redisKey)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = releaseLock()
			return
		}
		err = releaseLock()
	}()
	if err = client.GetDoc(redisKey, doc); err != nil {
		return err
	}
	if err = update(); err != nil {
		return err
	}
	return client.SaveDoc(redisKey, doc)
}

func (client *Client) Lock(redisKey string) (ReleaseLock, error) {
	lockCl := redislock.New(client.client)
	str := redislock.LimitRetry(redislock.LinearBackoff(time.Second), client.lockRetries)
	lock, err := lockCl.Obtain(ctx, LockKey(redisKey), client.lockExpiration, &redislock.Options{RetryStrategy: str})
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", redisKey, err)
	}
	return func() error {
		return lock.Release(ctx)
	}, nil
}

func LockKey(redisKey string) string {
	return fmt.Sprintf("lock:%s", redisKey)
}

func (client *Client) Close() error {
	return client.client.Close()
}

func readEnvironment() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
