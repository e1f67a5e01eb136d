// Package publisher announces determinazione lifecycle events on Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"atti/internal/determinazioni/models"
	"atti/pkg/platform/circuit"
)

// ErrCircuitOpen is returned without contacting the broker while the
// breaker is open.
var ErrCircuitOpen = errors.New("lifecycle publisher: circuit open")

// Producer is the slice of the Kafka producer used for lifecycle events.
type Producer interface {
	Publish(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// Kafka publishes one record per lifecycle event, keyed by numero so every
// event of a determinazione lands on the same partition in order.
type Kafka struct {
	producer Producer
	breaker  *circuit.Breaker
}

type Option func(*Kafka)

// WithBreaker skips publication while the broker keeps failing, so a Kafka
// outage does not add produce timeouts to every lifecycle request.
func WithBreaker(b *circuit.Breaker) Option {
	return func(k *Kafka) {
		k.breaker = b
	}
}

func NewKafka(producer Producer, opts ...Option) *Kafka {
	k := &Kafka{producer: producer}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// payload is the record value consumed by the process engine and the
// publication board.
type payload struct {
	EventType         string  `json:"eventType"`
	DeterminazioneID  string  `json:"determinazioneId"`
	Numero            string  `json:"numero"`
	ProcessInstanceID *string `json:"processInstanceId"`
	Da                *string `json:"da"`
	A                 string  `json:"a"`
	Utente            string  `json:"utente"`
	Timestamp         string  `json:"timestamp"`
}

const (
	HeaderEventType = "event_type"
	HeaderNumero    = "numero"
)

func (k *Kafka) PublishLifecycle(ctx context.Context, event models.LifecycleEvent) error {
	p := payload{
		EventType:        string(event.Type),
		DeterminazioneID: event.DeterminazioneID.String(),
		Numero:           event.Number,
		A:                string(event.To),
		Utente:           event.Actor,
		Timestamp:        event.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if event.ProcessInstanceID != "" {
		p.ProcessInstanceID = &event.ProcessInstanceID
	}
	if event.From != "" {
		from := string(event.From)
		p.Da = &from
	}

	value, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal lifecycle event: %w", err)
	}
	headers := map[string]string{
		HeaderEventType: string(event.Type),
		HeaderNumero:    event.Number,
	}
	if k.breaker != nil && !k.breaker.Allow() {
		return ErrCircuitOpen
	}
	if err := k.producer.Publish(ctx, event.Number, value, headers); err != nil {
		if k.breaker != nil {
			k.breaker.RecordFailure()
		}
		return fmt.Errorf("publish %s for %s: %w", event.Type, event.Number, err)
	}
	if k.breaker != nil {
		k.breaker.RecordSuccess()
	}
	return nil
}
