package service

import (
	"github.com/tnqbao/gau-file-hub/repository"
)

// QuotaLedger enforces the per-user storage quota on both counters: logical
// usage (bytes as if deduplication did not exist) and actual usage. The
// bounds are independent: deleting a canonical record while references
// remain leaves actual above logical, so an upload of new content must
// clear the quota on both.
type QuotaLedger struct {
	Quota int64
}

func NewQuotaLedger(quota int64) *QuotaLedger {
	return &QuotaLedger{Quota: quota}
}

// Reserve charges the ledger before any blob write commits. It runs against
// the repositories of the caller's transaction, so a failed upload rolls the
// reservation back with everything else. countsAsActual is true only when
// the upload introduced a new fingerprint.
func (q *QuotaLedger) Reserve(repos *repository.Repository, userID string, size int64, countsAsActual bool) error {
	ok, err := repos.UserStorageRepo.TryReserve(userID, size, countsAsActual, q.Quota)
	if err != nil {
		return err
	}
	if !ok {
		used := int64(0)
		if storage, err := repos.UserStorageRepo.Find(userID); err == nil {
			used = storage.LogicalUsed
		}
		return &QuotaExceededError{
			UserID:    userID,
			Used:      used,
			Quota:     q.Quota,
			Requested: size,
		}
	}
	return nil
}

// Release is the inverse of Reserve, used on deletion.
func (q *QuotaLedger) Release(repos *repository.Repository, userID string, size int64, countsAsActual bool) error {
	return repos.UserStorageRepo.Release(userID, size, countsAsActual)
}
