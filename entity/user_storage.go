package entity

import "time"

// UserStorage is the per-user quota ledger.
//
// LogicalUsed is the sum of sizes of every file the user currently owns, as
// if deduplication did not exist. ActualUsed only grows when the user's
// upload introduces a brand-new fingerprint, and only shrinks when the user
// deletes a canonical record that has no remaining references at delete
// time. The asymmetry is deliberate: a canonical record deleted while other
// users still reference its blob keeps its bytes on the uploader's actual
// counter.
type UserStorage struct {
	UserID      string    `json:"user_id" gorm:"type:varchar(255);primaryKey"`
	ActualUsed  int64     `json:"total_storage_used" gorm:"not null;default:0"`
	LogicalUsed int64     `json:"original_storage_used" gorm:"not null;default:0"`
	UpdatedAt   time.Time `json:"last_updated" gorm:"autoUpdateTime"`
}

// StorageSavings is the number of bytes deduplication saved this user.
func (s *UserStorage) StorageSavings() int64 {
	return s.LogicalUsed - s.ActualUsed
}
