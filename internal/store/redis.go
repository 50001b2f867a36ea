package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eldtechnologies/gamelog-relay/internal/metrics"
	"github.com/eldtechnologies/gamelog-relay/internal/models"
)

const subscribeBuffer = 256

// RedisBus is the publish/subscribe bus between the game application and the relay.
type RedisBus struct {
	client *redis.Client
	prefix string
}

// NewRedisBus connects to Redis and verifies the connection.
func NewRedisBus(ctx context.Context, redisURL, prefix string) (*RedisBus, error) {
	if prefix == "" {
		return nil, errors.New("topic prefix is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisBus{client: client, prefix: prefix}, nil
}

// Close closes the Redis connection.
func (b *RedisBus) Close() error {
	return b.client.Close()
}

// Ping checks the Redis connection.
func (b *RedisBus) Ping(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.RedisLatency.Observe(time.Since(start).Seconds()) }()
	return b.client.Ping(ctx).Err()
}

// Prefix returns the topic prefix shared by all per-channel topics.
func (b *RedisBus) Prefix() string {
	return b.prefix
}

// TopicFor returns the topic a channel's log entries are published on.
func TopicFor(prefix, channelID string) string {
	return fmt.Sprintf("%s:%s", prefix, channelID)
}

// TopicPattern returns the pattern matching every per-channel topic.
func TopicPattern(prefix string) string {
	return prefix + ":*"
}

// ChannelFromTopic extracts the destination channel ID from a topic name.
func ChannelFromTopic(prefix, topic string) (string, bool) {
	channelID, ok := strings.CutPrefix(topic, prefix+":")
	if !ok || channelID == "" {
		return "", false
	}
	return channelID, true
}

// Subscribe pattern-subscribes to every channel topic. The subscription is
// health-checked every healthCheck interval while idle. Callers must close the
// returned PubSub.
func (b *RedisBus) Subscribe(ctx context.Context, healthCheck time.Duration) (*redis.PubSub, <-chan *redis.Message, error) {
	ps := b.client.PSubscribe(ctx, TopicPattern(b.prefix))

	// Wait for the subscription to be confirmed before handing out the channel.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("psubscribe %s: %w", TopicPattern(b.prefix), err)
	}

	opts := []redis.ChannelOption{redis.WithChannelSize(subscribeBuffer)}
	if healthCheck > 0 {
		opts = append(opts, redis.WithChannelHealthCheckInterval(healthCheck))
	}
	return ps, ps.Channel(opts...), nil
}

// Publish sends a log entry to a channel's topic.
func (b *RedisBus) Publish(ctx context.Context, channelID string, entry models.LogEntry) error {
	data, err := models.EncodeEntry(entry)
	if err != nil {
		return err
	}

	start := time.Now()
	err = b.client.Publish(ctx, TopicFor(b.prefix, channelID), data).Err()
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	return err
}
