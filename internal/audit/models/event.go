package models

import (
	"strings"
	"time"

	id "atti/pkg/domain"
	dErrors "atti/pkg/domain-errors"
)

// Event is one append-only entry of the audit trail.
type Event struct {
	ID                id.AuditEventID
	ProcessInstanceID string
	EventType         string
	UserID            string
	Timestamp         time.Time
	Details           string
}

// NewEvent is the caller supplied part of an event. ID and Timestamp are
// always assigned server side.
type NewEvent struct {
	ProcessInstanceID string
	EventType         string
	UserID            string
	Details           string
}

func (n *NewEvent) Normalize() {
	n.ProcessInstanceID = strings.TrimSpace(n.ProcessInstanceID)
	n.EventType = strings.TrimSpace(n.EventType)
	n.UserID = strings.TrimSpace(n.UserID)
}

// Filter narrows a query. Set fields are combined with AND; bounds are inclusive.
type Filter struct {
	ProcessInstanceID string
	UserID            string
	From              *time.Time
	To                *time.Time
}

func (f Filter) Validate() error {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return dErrors.New(dErrors.CodeValidation, "from must not be after to")
	}
	return nil
}

// Matches reports whether e satisfies every set field of f.
func (f Filter) Matches(e *Event) bool {
	if f.ProcessInstanceID != "" && e.ProcessInstanceID != f.ProcessInstanceID {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	return true
}
