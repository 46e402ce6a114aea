// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package fault

import (
	"errors"
	"fmt"
)

// Code classifies a failure. Every error surfaced by the coordination
// core carries exactly one code, so callers can branch on failure
// class without string matching.
type Code string

const (
	// NotFound means an unknown task, mission, plan, loop-state, or
	// question ID. Never silently defaulted — a dangling reference
	// means something is wrong, not that the entity is absent by
	// design.
	NotFound Code = "not_found"

	// Validation means the request was rejected before any mutation:
	// duplicate ID on creation, unknown enum value, missing required
	// field.
	Validation Code = "validation"

	// InvalidTransition means an operation was attempted from a
	// status that does not permit it (e.g., reviewing a task that
	// was never submitted).
	InvalidTransition Code = "invalid_transition"

	// Conflict means a concurrent write was detected: the record
	// changed between read and write. Retryable — the caller should
	// re-read and re-apply.
	Conflict Code = "conflict"

	// Corrupt means a stored record is present but unparseable.
	// Distinct from NotFound: treating unparseable state as empty is
	// a data-loss hazard, so the operation fails instead.
	Corrupt Code = "corrupt"
)

// Error is the structured error type for the coordination core.
// Callers extract it with errors.As:
//
//	var coreErr *fault.Error
//	if errors.As(err, &coreErr) {
//	    if coreErr.Code == fault.Conflict { ... retry ... }
//	}
type Error struct {
	// Code is the failure class.
	Code Code

	// Kind names the entity kind involved ("task", "mission",
	// "plan", "loop", "question"). Empty when no single entity is
	// involved.
	Kind string

	// ID is the entity ID the operation targeted.
	ID string

	// Op is the operation that failed (e.g., "review",
	// "mark_in_progress").
	Op string

	// Status is the entity's current status at the time of failure.
	// Set for InvalidTransition errors so the caller can decide
	// whether to retry, wait, or give up.
	Status string

	// Msg is the human-readable description.
	Msg string

	// Wrapped is the underlying cause, if any.
	Wrapped error
}

func (e *Error) Error() string {
	prefix := string(e.Code)
	if e.Kind != "" && e.ID != "" {
		prefix = fmt.Sprintf("%s: %s %s", e.Code, e.Kind, e.ID)
	} else if e.Kind != "" {
		prefix = fmt.Sprintf("%s: %s", e.Code, e.Kind)
	}
	msg := e.Msg
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, msg, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is supports errors.Is against sentinel *Error values that carry
// only a Code, so callers can write errors.Is(err, fault.ErrConflict).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Code == e.Code &&
		(other.Kind == "" || other.Kind == e.Kind) &&
		(other.ID == "" || other.ID == e.ID)
}

// Sentinel values for errors.Is checks. These match any *Error with
// the same code regardless of entity details.
var (
	ErrNotFound          = &Error{Code: NotFound}
	ErrValidation        = &Error{Code: Validation}
	ErrInvalidTransition = &Error{Code: InvalidTransition}
	ErrConflict          = &Error{Code: Conflict}
	ErrCorrupt           = &Error{Code: Corrupt}
)

// CodeOf returns the fault code of err, or "" if err does not carry
// one.
func CodeOf(err error) Code {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Code
	}
	return ""
}

// NotFoundf builds a NotFound error for the given entity.
func NotFoundf(kind, id, op string) *Error {
	return &Error{
		Code: NotFound,
		Kind: kind,
		ID:   id,
		Op:   op,
		Msg:  "no such " + kind,
	}
}

// Validationf builds a Validation error with a formatted message.
func Validationf(kind, id, op, format string, args ...any) *Error {
	return &Error{
		Code: Validation,
		Kind: kind,
		ID:   id,
		Op:   op,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Transitionf builds an InvalidTransition error recording the entity's
// current status.
func Transitionf(kind, id, op, status, format string, args ...any) *Error {
	return &Error{
		Code:   InvalidTransition,
		Kind:   kind,
		ID:     id,
		Op:     op,
		Status: status,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// Conflictf builds a Conflict error. The caller is expected to re-read
// the record and retry the operation.
func Conflictf(kind, id, op, format string, args ...any) *Error {
	return &Error{
		Code: Conflict,
		Kind: kind,
		ID:   id,
		Op:   op,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Corruptf builds a Corrupt error wrapping the decode failure.
func Corruptf(kind, id, op string, cause error) *Error {
	return &Error{
		Code:    Corrupt,
		Kind:    kind,
		ID:      id,
		Op:      op,
		Msg:     "stored record is unparseable",
		Wrapped: cause,
	}
}
