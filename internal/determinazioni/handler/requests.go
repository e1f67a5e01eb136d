package handler

import (
	"strings"
	"unicode/utf8"

	"atti/internal/determinazioni/models"
	dErrors "atti/pkg/domain-errors"
)

// CreateRequest is the body of POST /determinazioni.
type CreateRequest struct {
	Oggetto           string   `json:"oggetto"`
	Importo           *float64 `json:"importo"`
	CentroSpesa       string   `json:"centroSpesa"`
	Dirigente         string   `json:"dirigente"`
	LivelloDirigente  string   `json:"livelloDirigente"`
	ProcessInstanceID string   `json:"processInstanceId"`

	level models.ManagerLevel
}

// Validate implements httputil.Validatable.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Oggetto = strings.TrimSpace(r.Oggetto)
	if r.Oggetto == "" {
		return dErrors.New(dErrors.CodeValidation, "oggetto is required")
	}
	if utf8.RuneCountInString(r.Oggetto) > 500 {
		return dErrors.New(dErrors.CodeValidation, "oggetto must be 500 characters or less")
	}
	if r.Importo != nil && *r.Importo < 0 {
		return dErrors.New(dErrors.CodeValidation, "importo cannot be negative")
	}
	level, err := models.ParseManagerLevel(r.LivelloDirigente)
	if err != nil {
		return err
	}
	r.level = level
	return nil
}

// Draft converts the validated request into the service input.
func (r *CreateRequest) Draft() models.Draft {
	return models.Draft{
		Subject:           r.Oggetto,
		Amount:            r.Importo,
		ExpenseCenter:     r.CentroSpesa,
		Manager:           r.Dirigente,
		ManagerLevel:      r.level,
		ProcessInstanceID: r.ProcessInstanceID,
	}
}

// UpdateStatusRequest is the body of PUT /determinazioni/{id}/stato.
type UpdateStatusRequest struct {
	Stato string `json:"stato"`
}

func (r *UpdateStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Stato = strings.TrimSpace(r.Stato)
	if r.Stato == "" {
		return dErrors.New(dErrors.CodeValidation, "stato is required")
	}
	return nil
}
