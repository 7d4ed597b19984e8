package sink

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/use-agent/cataloger/models"
)

// Redis publishes one stream entry per record. Consumers read the stream
// with XREAD / XREADGROUP.
type Redis struct {
	client *redis.Client
	maxLen int64
}

// NewRedis creates the client. maxLen trims the stream approximately;
// zero disables trimming.
func NewRedis(addr, password string, db int, maxLen int64) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Redis{client: client, maxLen: maxLen}
}

func (s *Redis) Name() string { return NameRedis }

// Write implements Sink. destination is the stream key, default "products".
// All entries go out in one pipeline.
func (s *Redis) Write(ctx context.Context, destination string, batch models.ExtractionBatch) error {
	stream := destination
	if stream == "" {
		stream = DefaultTable
	}

	pipe := s.client.Pipeline()
	for i, r := range batch {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			MaxLen: s.maxLen,
			Approx: s.maxLen > 0,
			Values: map[string]interface{}{
				"position": strconv.Itoa(i),
				"brand":    r.Brand,
				"model":    r.Model,
				"price":    r.Price,
			},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: xadd %s: %w", stream, err)
	}
	return nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}
