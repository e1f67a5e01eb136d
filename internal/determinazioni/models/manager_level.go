package models

import (
	"strings"

	dErrors "atti/pkg/domain-errors"
)

// ManagerLevel bounds a manager's spending authority.
type ManagerLevel string

const (
	ManagerLevelD1 ManagerLevel = "D1"
	ManagerLevelD2 ManagerLevel = "D2"
	ManagerLevelD3 ManagerLevel = "D3"
)

// ParseManagerLevel accepts D1, D2, D3 or blank (not specified).
func ParseManagerLevel(s string) (ManagerLevel, error) {
	l := ManagerLevel(strings.ToUpper(strings.TrimSpace(s)))
	switch l {
	case "", ManagerLevelD1, ManagerLevelD2, ManagerLevelD3:
		return l, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "livelloDirigente must be one of D1, D2, D3")
	}
}
