package persistence

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"cowork-console/internal/console/domain/model"
	"cowork-console/internal/console/domain/repository"
	"cowork-console/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

const (
	streamPrefix    = "console:events:"
	maxReplayEvents = 1000
)

// RedisEventJournal implements repository.EventJournal using Redis Streams.
// One stream per collection keeps the change history available for replay
// by other instances or reconnecting clients.
type RedisEventJournal struct {
	client    *redis.Client
	maxLength int64
	log       logger.Logger
}

// NewRedisEventJournal creates a Redis-backed event journal. maxLength caps
// each stream via approximate trimming; zero disables trimming.
func NewRedisEventJournal(client *redis.Client, maxLength int64, log logger.Logger) *RedisEventJournal {
	return &RedisEventJournal{
		client:    client,
		maxLength: maxLength,
		log:       log.WithComponent("event-journal"),
	}
}

var _ repository.EventJournal = (*RedisEventJournal)(nil)

func (j *RedisEventJournal) Append(ctx context.Context, event model.ChangeEvent) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: streamPrefix + event.Collection,
		Values: map[string]interface{}{
			"type":           string(event.Type),
			"collection":     event.Collection,
			"itemId":         event.ItemID,
			"data":           data,
			"timestamp":      event.Timestamp.UnixNano(),
			"sequenceNumber": event.Sequence,
		},
	}
	if j.maxLength > 0 {
		args.MaxLen = j.maxLength
		args.Approx = true
	}

	if _, err := j.client.XAdd(ctx, args).Result(); err != nil {
		j.log.Errorf("failed to journal %s event for %s: %v", event.Type, event.Collection, err)
		return err
	}
	return nil
}

func (j *RedisEventJournal) EventsSince(ctx context.Context, collection string, afterSequence int64) ([]model.ChangeEvent, error) {
	stream := streamPrefix + collection

	exists, err := j.client.Exists(ctx, stream).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return []model.ChangeEvent{}, nil
	}

	msgs, err := j.client.XRangeN(ctx, stream, "-", "+", maxReplayEvents).Result()
	if err != nil {
		if err == redis.Nil {
			return []model.ChangeEvent{}, nil
		}
		return nil, err
	}

	events := make([]model.ChangeEvent, 0, len(msgs))
	for _, msg := range msgs {
		event, err := parseJournalMessage(msg)
		if err != nil {
			j.log.Warnf("skipping malformed journal entry %s: %v", msg.ID, err)
			continue
		}
		if event.Sequence > afterSequence {
			events = append(events, event)
		}
	}
	return events, nil
}

func (j *RedisEventJournal) LatestSequence(ctx context.Context) (int64, error) {
	var latest int64
	var cursor uint64
	for {
		keys, next, err := j.client.Scan(ctx, cursor, streamPrefix+"*", 100).Result()
		if err != nil {
			return 0, err
		}
		for _, key := range keys {
			msgs, err := j.client.XRevRangeN(ctx, key, "+", "-", 1).Result()
			if err != nil {
				return 0, err
			}
			for _, msg := range msgs {
				if v, ok := msg.Values["sequenceNumber"].(string); ok {
					if seq, err := strconv.ParseInt(v, 10, 64); err == nil && seq > latest {
						latest = seq
					}
				}
			}
		}
		cursor = next
		if cursor == 0 {
			return latest, nil
		}
	}
}

func parseJournalMessage(msg redis.XMessage) (model.ChangeEvent, error) {
	event := model.ChangeEvent{}

	if v, ok := msg.Values["type"].(string); ok {
		event.Type = model.EventType(v)
	}
	if v, ok := msg.Values["collection"].(string); ok {
		event.Collection = v
	}
	if v, ok := msg.Values["itemId"].(string); ok {
		event.ItemID = v
	}
	if v, ok := msg.Values["data"].(string); ok && v != "" && v != "null" {
		if err := json.Unmarshal([]byte(v), &event.Data); err != nil {
			return event, err
		}
	}
	if v, ok := msg.Values["timestamp"].(string); ok {
		if nanos, err := strconv.ParseInt(v, 10, 64); err == nil {
			event.Timestamp = time.Unix(0, nanos)
		}
	}
	if v, ok := msg.Values["sequenceNumber"].(string); ok {
		if seq, err := strconv.ParseInt(v, 10, 64); err == nil {
			event.Sequence = seq
		}
	}
	return event, nil
}
