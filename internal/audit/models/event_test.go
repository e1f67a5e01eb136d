package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	dErrors "atti/pkg/domain-errors"
)

func TestFilterMatches(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e := &Event{ProcessInstanceID: "proc-1", UserID: "mrossi", Timestamp: at}
	before, after := at.Add(-time.Minute), at.Add(time.Minute)

	cases := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches everything", Filter{}, true},
		{"process match", Filter{ProcessInstanceID: "proc-1"}, true},
		{"process mismatch", Filter{ProcessInstanceID: "proc-2"}, false},
		{"both fields must match", Filter{ProcessInstanceID: "proc-1", UserID: "other"}, false},
		{"user and process match", Filter{ProcessInstanceID: "proc-1", UserID: "mrossi"}, true},
		{"inclusive lower bound", Filter{From: &at}, true},
		{"inclusive upper bound", Filter{To: &at}, true},
		{"before range", Filter{From: &after}, false},
		{"after range", Filter{To: &before}, false},
		{"inside range", Filter{From: &before, To: &after}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Matches(e))
		})
	}
}

func TestFilterValidate(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	assert.NoError(t, Filter{From: &early, To: &late}.Validate())
	assert.True(t, dErrors.HasCode(Filter{From: &late, To: &early}.Validate(), dErrors.CodeValidation))
}
