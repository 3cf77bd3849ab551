package persistence

import (
	"context"
	"testing"
	"time"

	"cowork-console/internal/console/domain/model"
	"cowork-console/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJournalMessage(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	msg := redis.XMessage{
		ID: "1-0",
		Values: map[string]interface{}{
			"type":           "created",
			"collection":     "partners",
			"itemId":         "p1",
			"data":           `{"name":"雲端數位科技"}`,
			"timestamp":      "1785585600000000000",
			"sequenceNumber": "7",
		},
	}

	event, err := parseJournalMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, model.EventTypeCreated, event.Type)
	assert.Equal(t, "partners", event.Collection)
	assert.Equal(t, "p1", event.ItemID)
	assert.Equal(t, "雲端數位科技", event.Data["name"])
	assert.True(t, event.Timestamp.Equal(ts))
	assert.Equal(t, int64(7), event.Sequence)
}

func TestParseJournalMessageNullData(t *testing.T) {
	event, err := parseJournalMessage(redis.XMessage{
		Values: map[string]interface{}{
			"type":           "deleted",
			"collection":     "partners",
			"itemId":         "p1",
			"data":           "null",
			"sequenceNumber": "3",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.EventTypeDeleted, event.Type)
	assert.Nil(t, event.Data)
}

func TestParseJournalMessageMalformedData(t *testing.T) {
	_, err := parseJournalMessage(redis.XMessage{
		Values: map[string]interface{}{
			"type": "updated",
			"data": "{not json",
		},
	})
	assert.Error(t, err)
}

func createTestRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         "localhost:6379",
		DB:           15,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

func testEvent(seq int64, id string) model.ChangeEvent {
	return model.ChangeEvent{
		Type:       model.EventTypeCreated,
		Collection: "partners",
		ItemID:     id,
		Data:       map[string]any{"name": "雲端數位科技"},
		Timestamp:  time.Now(),
		Sequence:   seq,
	}
}

func TestRedisEventJournal_AppendAndReplay(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := createTestRedisClient()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available for testing:", err)
	}
	defer func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cleanupCancel()
		client.FlushDB(cleanupCtx)
		client.Close()
	}()
	client.FlushDB(ctx)

	journal := NewRedisEventJournal(client, 100, logger.NewLoggerWithConfig("error", "text"))

	for seq, id := range map[int64]string{1: "p1", 2: "p2", 3: "p3"} {
		require.NoError(t, journal.Append(ctx, testEvent(seq, id)))
	}

	events, err := journal.EventsSince(ctx, "partners", 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Greater(t, e.Sequence, int64(1))
		assert.Equal(t, "雲端數位科技", e.Data["name"])
	}

	latest, err := journal.LatestSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest)
}

func TestRedisEventJournal_SkipsMalformedEntries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := createTestRedisClient()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available for testing:", err)
	}
	defer func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cleanupCancel()
		client.FlushDB(cleanupCtx)
		client.Close()
	}()
	client.FlushDB(ctx)

	journal := NewRedisEventJournal(client, 100, logger.NewLoggerWithConfig("error", "text"))
	require.NoError(t, journal.Append(ctx, testEvent(1, "p1")))

	// Inject an entry with unparseable data next to the valid one.
	_, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamPrefix + "partners",
		Values: map[string]interface{}{
			"type":           "updated",
			"collection":     "partners",
			"itemId":         "p2",
			"data":           "{not json",
			"sequenceNumber": "2",
		},
	}).Result()
	require.NoError(t, err)

	events, err := journal.EventsSince(ctx, "partners", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "p1", events[0].ItemID)
}

func TestRedisEventJournal_EventsSinceMissingStream(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := createTestRedisClient()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available for testing:", err)
	}
	defer client.Close()

	journal := NewRedisEventJournal(client, 100, logger.NewLoggerWithConfig("error", "text"))
	events, err := journal.EventsSince(ctx, "never-written", 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}
