package queue

import "errors"

var (
	// ErrItemNotFound is returned when a mutation targets an unknown id. It
	// indicates an orchestration bug and must not be swallowed.
	ErrItemNotFound = errors.New("tracked item not found")
	// ErrUnknownKind rejects kinds without a capability handler.
	ErrUnknownKind = errors.New("unknown item kind")
	// ErrEmptyID rejects blank identifiers at enqueue time.
	ErrEmptyID = errors.New("item id is empty")
	// ErrMissingResultRef rejects completions that do not say where output went.
	ErrMissingResultRef = errors.New("result reference is required to complete an item")
	// ErrInvalidFailureStatus rejects failure transitions other than retry or error.
	ErrInvalidFailureStatus = errors.New("failure status must be retry or error")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)
