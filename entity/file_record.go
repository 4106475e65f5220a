package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IndexStatus represents the content-indexing state of a file record.
type IndexStatus string

const (
	IndexStatusPending     IndexStatus = "PENDING"
	IndexStatusIndexed     IndexStatus = "INDEXED"
	IndexStatusFailed      IndexStatus = "FAILED"
	IndexStatusUnsupported IndexStatus = "UNSUPPORTED"
)

// FileRecord is one user-visible file. Byte-identical uploads share a single
// ContentBlob: the first upload of a fingerprint is the canonical record
// (is_reference=false), every later upload of the same bytes is a reference.
type FileRecord struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	UserID           string         `json:"user_id" gorm:"type:varchar(255);not null;index:idx_user_uploaded,priority:1"`
	OriginalFilename string         `json:"original_filename" gorm:"type:varchar(255);not null"`
	FileType         string         `json:"file_type" gorm:"type:varchar(100)"` // normalized MIME type
	Size             int64          `json:"size" gorm:"not null"`
	Fingerprint      string         `json:"file_hash" gorm:"type:varchar(64);not null;index:idx_hash_ref,priority:1"` // SHA-256, hex
	IsReference      bool           `json:"is_reference" gorm:"not null;default:false;index:idx_hash_ref,priority:2"`
	OriginalFileID   *uuid.UUID     `json:"original_file_id,omitempty" gorm:"type:uuid"`
	UploadedAt       time.Time      `json:"uploaded_at" gorm:"not null;autoCreateTime;index:idx_user_uploaded,priority:2"`
	IndexStatus      IndexStatus    `json:"index_status" gorm:"type:varchar(16);not null;default:'PENDING'"`
	IndexDetail      datatypes.JSON `json:"index_detail,omitempty"`

	OriginalFile *FileRecord `json:"original_file,omitempty" gorm:"foreignKey:OriginalFileID"`
}
