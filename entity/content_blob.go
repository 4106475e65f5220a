package entity

import "time"

// ContentBlob is the physical storage row for one distinct byte-sequence.
// It is owned collectively by every FileRecord sharing the fingerprint; the
// ref count tracks all of them (canonical and references alike) and the
// MinIO object is removed only when the count reaches zero. No single record
// is privileged as the blob's owner, so deleting the canonical record while
// references remain leaves the blob fully resolvable.
type ContentBlob struct {
	Fingerprint string    `json:"fingerprint" gorm:"type:varchar(64);primaryKey"`
	Size        int64     `json:"size" gorm:"not null"`
	StorageKey  string    `json:"storage_key" gorm:"type:varchar(255);not null"`
	RefCount    int64     `json:"ref_count" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
}
