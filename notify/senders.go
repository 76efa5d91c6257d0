package notify

import (
	"context"
	"encoding/json"
	"fmt"

	identity "github.com/elimuconnect/go-identity"
	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueKey is the Redis list RedisSender appends to
const DefaultQueueKey = "elimuconnect:notifications"

// LogSender writes messages to a logger. Useful in development where no
// mail relay is configured.
type LogSender struct {
	Logger identity.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = stdLogger{}
	}
	logger.Info("notify: [%s] to=%s subject=%q account=%s", msg.Kind, msg.To, msg.Subject, msg.AccountID)
	return nil
}

// RedisSender pushes JSON encoded messages onto a Redis list for a mail
// worker to consume.
type RedisSender struct {
	client redis.UniversalClient
	key    string
}

func NewRedisSender(client redis.UniversalClient, key string) *RedisSender {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisSender{client: client, key: key}
}

// Key returns the list the sender writes to
func (s *RedisSender) Key() string {
	return s.key
}

func (s *RedisSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("message has no recipient", errors.CategoryBadInput).
			WithMetadata(map[string]any{"kind": msg.Kind, "message_id": msg.ID.String()})
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode notification")
	}

	if err := s.client.RPush(ctx, s.key, payload).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to enqueue notification").
			WithMetadata(map[string]any{"key": s.key})
	}
	return nil
}

// ParseRedisURL builds a client from a redis:// URL
func ParseRedisURL(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid redis url")
	}
	return redis.NewClient(opts), nil
}

type stdLogger struct{}

func (stdLogger) Debug(format string, args ...any) { fmt.Printf("[DBG] NOTIFY "+format+"\n", args...) }
func (stdLogger) Info(format string, args ...any)  { fmt.Printf("[INF] NOTIFY "+format+"\n", args...) }
func (stdLogger) Warn(format string, args ...any)  { fmt.Printf("[WRN] NOTIFY "+format+"\n", args...) }
func (stdLogger) Error(format string, args ...any) { fmt.Printf("[ERR] NOTIFY "+format+"\n", args...) }
