package handler

import (
	"time"

	"atti/internal/audit/models"
)

type EventResponse struct {
	ID                string    `json:"id"`
	ProcessInstanceID string    `json:"processInstanceId,omitempty"`
	EventType         string    `json:"eventType"`
	UserID            string    `json:"userId,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	Details           string    `json:"details,omitempty"`
}

func FromEvent(e *models.Event) *EventResponse {
	return &EventResponse{
		ID:                e.ID.String(),
		ProcessInstanceID: e.ProcessInstanceID,
		EventType:         e.EventType,
		UserID:            e.UserID,
		Timestamp:         e.Timestamp,
		Details:           e.Details,
	}
}

func FromEvents(events []*models.Event) []*EventResponse {
	out := make([]*EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, FromEvent(e))
	}
	return out
}
