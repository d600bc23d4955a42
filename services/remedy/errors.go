// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remedy

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors for the transport layer.
type Kind int

const (
	// KindUnknown covers errors that carry no classification.
	KindUnknown Kind = iota

	// KindValidation marks caller errors: empty or blank query text,
	// rejected before any matcher runs.
	KindValidation

	// KindNotFound marks lookups of unknown item or bundle keys.
	KindNotFound

	// KindCollaborator marks embedding or extraction provider failures.
	// For the embedding provider this is fatal to the request; for the
	// extraction provider the orchestrator degrades to raw text instead
	// of surfacing this kind.
	KindCollaborator
)

// Error is the engine's typed error. The orchestrator never partially
// returns a Recommendation: a request either fully succeeds or fails with
// exactly one Error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidationError creates a KindValidation error.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewNotFoundError creates a KindNotFound error.
func NewNotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// NewCollaboratorError creates a KindCollaborator error wrapping the
// provider failure.
func NewCollaboratorError(message string, err error) *Error {
	return &Error{Kind: KindCollaborator, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain. Returns KindUnknown for
// nil and for errors that are not engine Errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
