package app

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError is a caller mistake; it maps to 400 and is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type ConflictParty string

const (
	PartyRecruiter  ConflictParty = "RECRUITER"
	PartyCandidate  ConflictParty = "CANDIDATE"
	PartyInvitation ConflictParty = "INVITATION"
)

// ConflictError means the requested state change lost to existing state; clients should
// re-offer a fresh slot menu rather than retry.
type ConflictError struct {
	Party ConflictParty
}

func (e *ConflictError) Error() string {
	switch e.Party {
	case PartyRecruiter:
		return "Recruiter has a conflicting booking"
	case PartyCandidate:
		return "Candidate has a conflicting booking"
	default:
		return "Invitation has already been handled"
	}
}
