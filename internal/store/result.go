package store

import "teledb/pkg/model"

// Result reports the outcome of a mutating operation. Domain failures
// (nothing matched, payload too large, send retries exhausted) are
// carried here rather than raised; only Initialize returns hard
// errors.
type Result struct {
	Success bool
	Message string
	Err     error

	// Documents lists the documents the operation actually applied.
	// For batch updates this is the successes list, never
	// all-or-nothing.
	Documents []model.Document

	// MessageID is the channel message carrying a single-document
	// write.
	MessageID int64

	// DeletedCount counts matches whose channel message was actually
	// removed. It can be lower than len(Documents): removal from the
	// index is unconditional, remote deletion is best-effort.
	DeletedCount int
}

func failure(msg string, err error) Result {
	return Result{Success: false, Message: msg, Err: err}
}

func success(msg string, docs ...model.Document) Result {
	return Result{Success: true, Message: msg, Documents: docs}
}
