// Package adapters connects the determinazione lifecycle to the other
// in-process modules.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	auditmodels "atti/internal/audit/models"
	"atti/internal/determinazioni/models"
	"atti/pkg/requestcontext"
)

// AuditAppender is the slice of the audit service used here.
type AuditAppender interface {
	Append(ctx context.Context, caller requestcontext.Caller, in auditmodels.NewEvent) (*auditmodels.Event, error)
}

// AuditRecorder files lifecycle events in the audit trail, under the
// process instance id when there is one and under the numero otherwise.
type AuditRecorder struct {
	audit AuditAppender
}

func NewAuditRecorder(audit AuditAppender) *AuditRecorder {
	return &AuditRecorder{audit: audit}
}

type lifecycleDetails struct {
	DeterminazioneID string `json:"determinazioneId"`
	Numero           string `json:"numero"`
	Da               string `json:"da,omitempty"`
	A                string `json:"a"`
}

func (r *AuditRecorder) RecordLifecycle(ctx context.Context, caller requestcontext.Caller, event models.LifecycleEvent) error {
	details, err := json.Marshal(lifecycleDetails{
		DeterminazioneID: event.DeterminazioneID.String(),
		Numero:           event.Number,
		Da:               string(event.From),
		A:                string(event.To),
	})
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	_, err = r.audit.Append(ctx, caller, auditmodels.NewEvent{
		ProcessInstanceID: event.CorrelationID(),
		EventType:         string(event.Type),
		UserID:            event.Actor,
		Details:           string(details),
	})
	return err
}
