package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atti/internal/determinazioni/models"
	id "atti/pkg/domain"
	"atti/pkg/platform/circuit"
)

type record struct {
	key     string
	value   []byte
	headers map[string]string
}

type fakeProducer struct {
	records []record
	err     error
	calls   int
}

func (f *fakeProducer) Publish(_ context.Context, key string, value []byte, headers map[string]string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record{key: key, value: value, headers: headers})
	return nil
}

func TestPublishLifecycle(t *testing.T) {
	at := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

	t.Run("keys by numero and encodes the transition", func(t *testing.T) {
		producer := &fakeProducer{}
		k := NewKafka(producer)

		err := k.PublishLifecycle(context.Background(), models.LifecycleEvent{
			Type:              models.EventPublished,
			DeterminazioneID:  id.DeterminazioneID(3),
			Number:            "DET-2026-003",
			ProcessInstanceID: "proc-3",
			From:              models.StatusSigned,
			To:                models.StatusPublished,
			Actor:             "mrossi",
			OccurredAt:        at,
		})
		require.NoError(t, err)
		require.Len(t, producer.records, 1)

		rec := producer.records[0]
		assert.Equal(t, "DET-2026-003", rec.key)
		assert.Equal(t, "ATTO_PUBBLICATO", rec.headers[HeaderEventType])
		assert.Equal(t, "DET-2026-003", rec.headers[HeaderNumero])

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.value, &body))
		assert.Equal(t, "3", body["determinazioneId"])
		assert.Equal(t, "proc-3", body["processInstanceId"])
		assert.Equal(t, "FIRMATA", body["da"])
		assert.Equal(t, "PUBBLICATA", body["a"])
		assert.Equal(t, "2026-05-04T09:30:00Z", body["timestamp"])
	})

	t.Run("creation has no previous status", func(t *testing.T) {
		producer := &fakeProducer{}
		k := NewKafka(producer)

		require.NoError(t, k.PublishLifecycle(context.Background(), models.LifecycleEvent{
			Type:       models.EventCreated,
			Number:     "DET-2026-001",
			To:         models.StatusDraft,
			OccurredAt: at,
		}))

		var body map[string]any
		require.NoError(t, json.Unmarshal(producer.records[0].value, &body))
		assert.Nil(t, body["da"])
		assert.Nil(t, body["processInstanceId"])
		assert.Contains(t, body, "da")
	})

	t.Run("wraps producer errors", func(t *testing.T) {
		boom := errors.New("broker unavailable")
		k := NewKafka(&fakeProducer{err: boom})
		err := k.PublishLifecycle(context.Background(), models.LifecycleEvent{Type: models.EventCreated, Number: "DET-2026-001"})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("breaker short circuits a failing broker", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("broker unavailable")}
		k := NewKafka(producer, WithBreaker(circuit.New("kafka", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))))
		ev := models.LifecycleEvent{Type: models.EventCreated, Number: "DET-2026-001", OccurredAt: at}

		assert.Error(t, k.PublishLifecycle(context.Background(), ev))
		assert.Error(t, k.PublishLifecycle(context.Background(), ev))
		err := k.PublishLifecycle(context.Background(), ev)
		assert.ErrorIs(t, err, ErrCircuitOpen)
		assert.Equal(t, 2, producer.calls, "no produce attempt while open")
	})
}
