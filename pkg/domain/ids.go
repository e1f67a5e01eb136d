// Package domain holds typed identifiers shared across modules.
//
// Identifiers are parsed at trust boundaries (HTTP paths, query strings) so
// services only ever see values that passed validation.
package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "atti/pkg/domain-errors"
)

// DeterminazioneID is the store-assigned identity of a determinazione.
type DeterminazioneID int64

// AuditEventID identifies an appended audit event.
type AuditEventID uuid.UUID

func (id DeterminazioneID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// IsZero reports whether the id has not been assigned.
func (id DeterminazioneID) IsZero() bool {
	return id == 0
}

// ParseDeterminazioneID parses a positive decimal id.
func ParseDeterminazioneID(s string) (DeterminazioneID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "determinazione id is required")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid determinazione id")
	}
	return DeterminazioneID(n), nil
}

// NewAuditEventID returns a fresh random event id.
func NewAuditEventID() AuditEventID {
	return AuditEventID(uuid.New())
}

// ParseAuditEventID parses a non-nil UUID.
func ParseAuditEventID(s string) (AuditEventID, error) {
	if s == "" {
		return AuditEventID{}, dErrors.New(dErrors.CodeInvalidInput, "audit event id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil || u == uuid.Nil {
		return AuditEventID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid audit event id")
	}
	return AuditEventID(u), nil
}

func (id AuditEventID) String() string {
	return uuid.UUID(id).String()
}

func (id AuditEventID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id AuditEventID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *AuditEventID) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return err
	}
	*id = AuditEventID(u)
	return nil
}
