package service

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// ErrNotFound is returned when a file record does not exist or is not owned
// by the requesting user.
var ErrNotFound = errors.New("file not found")

// ValidationError rejects malformed input on the upload path.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// QuotaExceededError is returned when a reservation would push the user's
// logical usage past the quota. No ledger mutation survives the rejection.
type QuotaExceededError struct {
	UserID    string
	Used      int64
	Quota     int64
	Requested int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf(
		"storage quota exceeded. Current usage: %s, Limit: %s, File size: %s",
		humanize.IBytes(uint64(e.Used)),
		humanize.IBytes(uint64(e.Quota)),
		humanize.IBytes(uint64(e.Requested)),
	)
}

// StorageIOError is fatal for the specific read/write and triggers a full
// rollback of the reservation and any partial blob write.
type StorageIOError struct {
	Op  string
	Err error
}

func (e *StorageIOError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageIOError) Unwrap() error { return e.Err }

// ExtractionError is confined to the indexing pipeline: the file stays
// stored and downloadable, its index status becomes FAILED.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("content extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// RetryableTaskError marks a transient indexing failure worth re-queueing.
type RetryableTaskError struct {
	Err error
}

func (e *RetryableTaskError) Error() string {
	return fmt.Sprintf("retryable task error: %v", e.Err)
}

func (e *RetryableTaskError) Unwrap() error { return e.Err }

// PermanentTaskError terminates an indexing task without further retries.
type PermanentTaskError struct {
	Err error
}

func (e *PermanentTaskError) Error() string {
	return fmt.Sprintf("permanent task error: %v", e.Err)
}

func (e *PermanentTaskError) Unwrap() error { return e.Err }
