package engine

import (
	"github.com/roach88/dealbook/internal/apperr"
)

// DefaultMaxBatchEdits is the default maximum number of edits per batch.
// A batch holds its write transaction open for every edit, so an unbounded
// batch blocks other writers for an unbounded time.
const DefaultMaxBatchEdits = 1000

// BatchQuota enforces a maximum batch size.
//
// Zero or negative limits disable the check.
type BatchQuota struct {
	maxEdits int
}

// NewBatchQuota creates a quota with the given limit.
func NewBatchQuota(maxEdits int) BatchQuota {
	return BatchQuota{maxEdits: maxEdits}
}

// Check validates size against the limit. It returns a BatchTooLarge
// validation error when the batch is over.
func (q BatchQuota) Check(size int) error {
	if q.maxEdits > 0 && size > q.maxEdits {
		return apperr.BatchTooLarge(size, q.maxEdits)
	}
	return nil
}

// MaxEdits returns the limit.
// Used for logging and diagnostics.
func (q BatchQuota) MaxEdits() int {
	return q.maxEdits
}
