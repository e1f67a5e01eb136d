package models

import (
	"strings"

	dErrors "atti/pkg/domain-errors"
)

// Status is the lifecycle state of a determinazione. Wire values are the
// Italian labels used by the process engine and the front office.
type Status string

const (
	StatusDraft              Status = "BOZZA"
	StatusUnderReview        Status = "ISTRUTTORIA"
	StatusFinancialClearance Status = "VISTO_CONTABILE"
	StatusSigned             Status = "FIRMATA"
	StatusPublished          Status = "PUBBLICATA"
	StatusRejected           Status = "RIFIUTATA"
)

// Statuses lists every enumerated status in lifecycle order.
var Statuses = []Status{
	StatusDraft,
	StatusUnderReview,
	StatusFinancialClearance,
	StatusSigned,
	StatusPublished,
	StatusRejected,
}

// ParseStatus accepts an enumerated value, ignoring case and surrounding space.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown stato: "+s)
	}
	return st, nil
}

func (s Status) IsValid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusPublished || s == StatusRejected
}

func (s Status) String() string {
	return string(s)
}

// TransitionPolicy decides which status edges are legal.
type TransitionPolicy string

const (
	// PolicyStrict follows the documented lifecycle graph.
	PolicyStrict TransitionPolicy = "strict"
	// PolicyPermissive lets an external process engine drive the field: any
	// enumerated target is accepted as long as the record is not terminal.
	PolicyPermissive TransitionPolicy = "permissive"
)

// strictEdges excludes RIFIUTATA, which is reachable from every non-terminal state.
var strictEdges = map[Status]Status{
	StatusDraft:              StatusUnderReview,
	StatusUnderReview:        StatusFinancialClearance,
	StatusFinancialClearance: StatusSigned,
	StatusSigned:             StatusPublished,
}

// ParseTransitionPolicy maps a configuration value onto a policy.
func ParseTransitionPolicy(s string) (TransitionPolicy, error) {
	switch p := TransitionPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyStrict, PolicyPermissive:
		return p, nil
	case "":
		return PolicyStrict, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown transition policy: "+s)
	}
}

// Allows returns nil when from -> to is legal under p. Violations carry
// CodeInvariantViolation.
func (p TransitionPolicy) Allows(from, to Status) error {
	if !to.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown stato: "+string(to))
	}
	if from.IsTerminal() {
		return dErrors.New(dErrors.CodeInvariantViolation, "determinazione is in terminal state "+string(from))
	}
	if p == PolicyPermissive {
		return nil
	}
	if to == StatusRejected || strictEdges[from] == to {
		return nil
	}
	return dErrors.New(dErrors.CodeInvariantViolation, "transition "+string(from)+" -> "+string(to)+" is not allowed")
}
