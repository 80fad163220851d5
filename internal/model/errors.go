package model

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by the services wraps exactly one of
// these so callers can classify it with errors.Is.
var (
	// ErrNotFound is returned when a referenced event, request or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a business rule forbids the operation.
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned for malformed input, before any state is touched.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden is returned when the actor has no rights over the target.
	ErrForbidden = errors.New("forbidden")
)

var (
	ErrUserNotFound    = fmt.Errorf("%w: user", ErrNotFound)
	ErrEventNotFound   = fmt.Errorf("%w: event", ErrNotFound)
	ErrRequestNotFound = fmt.Errorf("%w: request", ErrNotFound)
)

var (
	ErrEventPublished      = fmt.Errorf("%w: event is already published", ErrConflict)
	ErrEventNotPending     = fmt.Errorf("%w: event is not pending", ErrConflict)
	ErrEventNotPublished   = fmt.Errorf("%w: event is not published", ErrConflict)
	ErrEventFull           = fmt.Errorf("%w: participant limit reached", ErrConflict)
	ErrLimitBelowConfirmed = fmt.Errorf("%w: participant limit below confirmed requests", ErrConflict)
	ErrDuplicateRequest    = fmt.Errorf("%w: request already exists", ErrConflict)
	ErrOwnEventRequest     = fmt.Errorf("%w: owner cannot request own event", ErrConflict)
	ErrRequestNotPending   = fmt.Errorf("%w: request is not pending", ErrConflict)
	ErrRequestTerminal     = fmt.Errorf("%w: request can no longer be canceled", ErrConflict)
	ErrEmailTaken          = fmt.Errorf("%w: email already registered", ErrConflict)

	// ErrNotRequester is both a Conflict, which is how the HTTP surface reports it,
	// and a Forbidden, which is what it means.
	ErrNotRequester = fmt.Errorf("%w: %w: request belongs to another user", ErrConflict, ErrForbidden)
)

var (
	ErrEventDateTooSoon = fmt.Errorf("%w: event date is too close to now", ErrValidation)
	ErrInvalidRange     = fmt.Errorf("%w: range end is before range start", ErrValidation)
	ErrInvalidAction    = fmt.Errorf("%w: state action not allowed for this actor", ErrValidation)
	ErrInvalidStatus    = fmt.Errorf("%w: status must be CONFIRMED or REJECTED", ErrValidation)
	ErrNoRequestIDs     = fmt.Errorf("%w: request ids are required", ErrValidation)
)
