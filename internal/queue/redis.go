package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const extractionJobQueue = "extraction:job:queue"

var _ JobQueue = (*RedisJobQueue)(nil)

// RedisJobQueue dispatches job payloads over a redis list. Publish is a
// single RPUSH, Subscribe drains with BLPOP so multiple workers can
// share the queue.
type RedisJobQueue struct {
	client *redis.Client
}

func NewRedisJobQueue(addr string) *RedisJobQueue {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // No password set
		DB:       0,  // Use default DB
		Protocol: 2,  // Connection protocol
	})

	return &RedisJobQueue{client: client}
}

func (q *RedisJobQueue) Publish(ctx context.Context, payload *JobPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return q.client.RPush(ctx, extractionJobQueue, data).Err()
}

func (q *RedisJobQueue) Subscribe(ctx context.Context) (<-chan *JobPayload, error) {
	ch := make(chan *JobPayload)

	go func() {
		defer close(ch)
		for {
			res, err := q.client.BLPop(ctx, 5*time.Second, extractionJobQueue).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				logrus.Errorf("error popping extraction job: %v", err)
				time.Sleep(time.Second)
				continue
			}

			// BLPop returns [key, value]
			if len(res) != 2 {
				continue
			}

			payload := &JobPayload{}
			if err := json.Unmarshal([]byte(res[1]), payload); err != nil {
				logrus.Errorf("error decoding extraction job payload: %v", err)
				continue
			}

			select {
			case ch <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
