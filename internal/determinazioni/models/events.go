package models

import (
	"time"

	id "atti/pkg/domain"
)

// EventType labels a lifecycle event. Values match the audit trail vocabulary.
type EventType string

const (
	EventCreated       EventType = "DETERMINAZIONE_CREATA"
	EventStatusUpdated EventType = "STATO_AGGIORNATO"
	EventPublished     EventType = "ATTO_PUBBLICATO"
)

// LifecycleEvent is emitted after a lifecycle change commits.
type LifecycleEvent struct {
	Type              EventType
	DeterminazioneID  id.DeterminazioneID
	Number            string
	ProcessInstanceID string
	From              Status
	To                Status
	Actor             string
	OccurredAt        time.Time
}

// CorrelationID is the id audit events are filed under: the process
// instance when the record is driven by the engine, the numero otherwise.
func (e LifecycleEvent) CorrelationID() string {
	if e.ProcessInstanceID != "" {
		return e.ProcessInstanceID
	}
	return e.Number
}
