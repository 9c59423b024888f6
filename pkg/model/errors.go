package model

import "errors"

var (
	// ErrNotFound is returned when a document is not found.
	ErrNotFound = errors.New("document not found")
	// ErrNoDocuments is reported when a predicate matches nothing.
	ErrNoDocuments = errors.New("no documents found")
	// ErrPayloadTooLarge is returned when an encoded document exceeds
	// the channel's maximum payload size.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrInvalidFilter is returned when a filter is malformed for the
	// requested operation.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrNotInitialized is returned when the store cannot be brought up.
	ErrNotInitialized = errors.New("store not initialized")
)
