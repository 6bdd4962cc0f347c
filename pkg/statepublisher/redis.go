package statepublisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/einride/clock-go/pkg/clock"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig configures the connection of a RedisPublisher.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	KeyPrefix      string
	Channel        string
	ConnectTimeout time.Duration
	RetryInterval  time.Duration
}

// RedisPublisher stores the latest snapshot in a hash of service name to
// status and announces every snapshot on a pub/sub channel.
type RedisPublisher struct {
	client    *redis.Client
	keyPrefix string
	channel   string
}

var _ Publisher = &RedisPublisher{}

// NewRedisPublisher wraps a connected client.
func NewRedisPublisher(client *redis.Client, keyPrefix, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, keyPrefix: keyPrefix, channel: channel}
}

// RedisPublisherProvider connects to Redis, retrying every cfg.RetryInterval on
// the clock until cfg.ConnectTimeout.
func RedisPublisherProvider(cfg RedisConfig, c clock.Clock, logger *zap.Logger) PublisherProvider {
	return func(ctx context.Context) (Publisher, error) {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err := ping(ctx, client, cfg, c, logger); err != nil {
			_ = client.Close()
			return nil, err
		}
		return NewRedisPublisher(client, cfg.KeyPrefix, cfg.Channel), nil
	}
}

func ping(ctx context.Context, client *redis.Client, cfg RedisConfig, c clock.Clock, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	for attempt := 1; ; attempt++ {
		err := client.Ping(ctx).Err()
		if err == nil {
			logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("attempts", attempt))
			return nil
		}
		logger.Warn("redis connection failed, retrying",
			zap.String("addr", cfg.Addr),
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return errors.Wrapf(err, "redis unavailable at %s after %d attempts", cfg.Addr, attempt)
		case <-c.After(cfg.RetryInterval):
		}
	}
}

// Key returns the hash key holding the services of a registry.
func (p *RedisPublisher) Key(registry string) string {
	return p.keyPrefix + ":" + registry
}

type redisMessage struct {
	Registry       string            `json:"registry"`
	PublishTime    time.Time         `json:"publishTime"`
	LastChangeTime *time.Time        `json:"lastChangeTime,omitempty"`
	Services       map[string]string `json:"services"`
}

func encodeSnapshot(snapshot Snapshot) ([]byte, error) {
	msg := redisMessage{
		Registry:    snapshot.Registry,
		PublishTime: snapshot.PublishTime.UTC(),
		Services:    make(map[string]string, len(snapshot.Services)),
	}
	if !snapshot.LastChangeTime.IsZero() {
		lastChange := snapshot.LastChangeTime.UTC()
		msg.LastChangeTime = &lastChange
	}
	for _, service := range snapshot.Services {
		msg.Services[service.Name] = service.Status.String()
	}
	return json.Marshal(msg)
}

func hashFields(snapshot Snapshot) []interface{} {
	fields := make([]interface{}, 0, 2*len(snapshot.Services))
	for _, service := range snapshot.Services {
		fields = append(fields, service.Name, service.Status.String())
	}
	return fields
}

// Publish replaces the registry hash with the snapshot and publishes it on the channel.
func (p *RedisPublisher) Publish(ctx context.Context, snapshot Snapshot) error {
	payload, err := encodeSnapshot(snapshot)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	key := p.Key(snapshot.Registry)
	pipe := p.client.TxPipeline()
	pipe.Del(ctx, key)
	if fields := hashFields(snapshot); len(fields) > 0 {
		pipe.HSet(ctx, key, fields...)
	}
	pipe.Publish(ctx, p.channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "publish snapshot of %s", snapshot.Registry)
	}
	return nil
}

// Close the Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
