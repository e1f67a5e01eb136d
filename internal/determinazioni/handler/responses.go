package handler

import (
	"time"

	"atti/internal/determinazioni/models"
)

// DeterminazioneResponse is the wire form of a determinazione. Absent
// optional fields serialize as null.
type DeterminazioneResponse struct {
	ID                int64      `json:"id"`
	Oggetto           string     `json:"oggetto"`
	Importo           *float64   `json:"importo"`
	CentroSpesa       *string    `json:"centroSpesa"`
	Dirigente         *string    `json:"dirigente"`
	LivelloDirigente  *string    `json:"livelloDirigente"`
	Stato             string     `json:"stato"`
	DataCreazione     time.Time  `json:"dataCreazione"`
	DataPubblicazione *time.Time `json:"dataPubblicazione"`
	ProcessInstanceID *string    `json:"processInstanceId"`
	Numero            string     `json:"numero"`
}

func FromDeterminazione(d *models.Determinazione) *DeterminazioneResponse {
	return &DeterminazioneResponse{
		ID:                int64(d.ID),
		Oggetto:           d.Subject,
		Importo:           d.Amount,
		CentroSpesa:       optional(d.ExpenseCenter),
		Dirigente:         optional(d.Manager),
		LivelloDirigente:  optional(string(d.ManagerLevel)),
		Stato:             string(d.Status),
		DataCreazione:     d.CreatedAt,
		DataPubblicazione: d.PublishedAt,
		ProcessInstanceID: optional(d.ProcessInstanceID),
		Numero:            d.Number,
	}
}

func FromDeterminazioni(ds []*models.Determinazione) []*DeterminazioneResponse {
	out := make([]*DeterminazioneResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, FromDeterminazione(d))
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
