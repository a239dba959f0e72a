package models

import "errors"

// The engine's whole failure surface. Every operation returns one of these
// (wrapped with context); nothing panics for control flow.
var (
	// ErrInvalidInput: malformed or missing required field, rejected before
	// any write.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden: the actor is not a permitted party for the action.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition: the action is not legal from the current status,
	// even for a permitted actor.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrStaleState: an optimistic-concurrency precondition failed; the row
	// changed under the caller, who should re-fetch and re-decide.
	ErrStaleState = errors.New("stale state")
	// ErrConflict: domain-level uniqueness violation, e.g. a second open
	// dispute on the same order.
	ErrConflict = errors.New("conflict")
	// ErrNotEligible: review attempted outside the allowed window or parties.
	ErrNotEligible = errors.New("not eligible")
	// ErrNotFound: the referenced row does not exist.
	ErrNotFound = errors.New("not found")
)
