package handler

import (
	"net/url"
	"strings"
	"time"

	"atti/internal/audit/models"
	dErrors "atti/pkg/domain-errors"
)

// AppendRequest is the body of POST /audit. Any id or timestamp sent by the
// client is ignored.
type AppendRequest struct {
	ProcessInstanceID string `json:"processInstanceId"`
	EventType         string `json:"eventType"`
	UserID            string `json:"userId"`
	Details           string `json:"details"`
}

func (r *AppendRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.EventType = strings.TrimSpace(r.EventType)
	if r.EventType == "" {
		return dErrors.New(dErrors.CodeValidation, "eventType is required")
	}
	return nil
}

func (r *AppendRequest) NewEvent() models.NewEvent {
	return models.NewEvent{
		ProcessInstanceID: r.ProcessInstanceID,
		EventType:         r.EventType,
		UserID:            r.UserID,
		Details:           r.Details,
	}
}

const (
	layoutLocalDateTime = "2006-01-02T15:04:05"
	layoutDate          = "2006-01-02"
)

// ParseFilter reads the audit query parameters. from and to accept RFC 3339,
// a local date-time or a bare date; a bare date in to covers the whole day.
func ParseFilter(q url.Values) (models.Filter, error) {
	f := models.Filter{
		ProcessInstanceID: strings.TrimSpace(q.Get("processInstanceId")),
		UserID:            strings.TrimSpace(q.Get("userId")),
	}
	var err error
	if f.From, err = parseInstant(q.Get("from"), false); err != nil {
		return models.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "invalid from: "+err.Error())
	}
	if f.To, err = parseInstant(q.Get("to"), true); err != nil {
		return models.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "invalid to: "+err.Error())
	}
	return f, nil
}

func parseInstant(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return &t, nil
	}
	if t, err := time.ParseInLocation(layoutLocalDateTime, raw, time.Local); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(layoutDate, raw, time.Local)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "expected RFC 3339, YYYY-MM-DDTHH:MM:SS or YYYY-MM-DD")
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}
