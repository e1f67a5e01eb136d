package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"atti/internal/determinazioni/numbering"
	id "atti/pkg/domain"
	dErrors "atti/pkg/domain-errors"
)

const maxSubjectLength = 500

// Determinazione is the aggregate root for a managerial resolution.
//
// Invariants:
//   - Subject is non-blank and at most 500 characters
//   - Amount, when present, is not negative
//   - Number is DET-{Year}-{Sequence}; (Year, Sequence) is unique
//   - Year equals the calendar year of CreatedAt
//   - PublishedAt is set if and only if Status is PUBBLICATA
//   - Status is always an enumerated value
//   - ID, Number and CreatedAt are immutable after creation
type Determinazione struct {
	ID                id.DeterminazioneID
	Subject           string
	Amount            *float64
	ExpenseCenter     string
	Manager           string
	ManagerLevel      ManagerLevel
	Status            Status
	CreatedAt         time.Time
	PublishedAt       *time.Time
	ProcessInstanceID string
	Number            string
	Year              int
	Sequence          int
}

// Draft carries the caller supplied fields of a new determinazione.
type Draft struct {
	Subject           string
	Amount            *float64
	ExpenseCenter     string
	Manager           string
	ManagerLevel      ManagerLevel
	ProcessInstanceID string
}

// Normalize trims free text fields.
func (d *Draft) Normalize() {
	d.Subject = strings.TrimSpace(d.Subject)
	d.ExpenseCenter = strings.TrimSpace(d.ExpenseCenter)
	d.Manager = strings.TrimSpace(d.Manager)
	d.ProcessInstanceID = strings.TrimSpace(d.ProcessInstanceID)
}

// NewDeterminazione builds a draft record numbered (year, seq).
func NewDeterminazione(draft Draft, year, seq int, now time.Time) (*Determinazione, error) {
	draft.Normalize()
	if draft.Subject == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "oggetto cannot be empty")
	}
	if utf8.RuneCountInString(draft.Subject) > maxSubjectLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "oggetto must be 500 characters or less")
	}
	if draft.Amount != nil && *draft.Amount < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "importo cannot be negative")
	}
	if year != now.Year() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "numbering year must match creation year")
	}
	number, err := numbering.Format(year, seq)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "invalid numero")
	}
	return &Determinazione{
		Subject:           draft.Subject,
		Amount:            draft.Amount,
		ExpenseCenter:     draft.ExpenseCenter,
		Manager:           draft.Manager,
		ManagerLevel:      draft.ManagerLevel,
		Status:            StatusDraft,
		CreatedAt:         now,
		ProcessInstanceID: draft.ProcessInstanceID,
		Number:            number,
		Year:              year,
		Sequence:          seq,
	}, nil
}

// IsPublished reports whether the record reached the albo pretorio.
func (d *Determinazione) IsPublished() bool {
	return d.Status == StatusPublished
}

// CanTransition checks if the record may move to status under policy.
// Returns nil if the transition is valid.
func (d *Determinazione) CanTransition(to Status, policy TransitionPolicy) error {
	return policy.Allows(d.Status, to)
}

// ApplyTransition moves the record to status. Publication stamps
// PublishedAt with now. Must only be called after CanTransition returns nil.
func (d *Determinazione) ApplyTransition(to Status, now time.Time) {
	d.Status = to
	if to == StatusPublished {
		published := now
		d.PublishedAt = &published
		return
	}
	d.PublishedAt = nil
}
