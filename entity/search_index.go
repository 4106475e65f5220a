package entity

import (
	"time"

	"github.com/google/uuid"
)

// Keyword is one normalized token shared across files. Keywords with no
// remaining index entries are allowed to linger; they are cheap and get
// reused the next time any file contains the token.
type Keyword struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Token     string    `json:"keyword" gorm:"type:varchar(255);uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
}

// IndexEntry is one edge of the inverted keyword-to-file index. A file's
// entries are always rebuilt wholesale (delete-then-insert), which makes
// reindexing idempotent no matter how many workers run it concurrently.
type IndexEntry struct {
	KeywordID    int64     `json:"keyword_id" gorm:"primaryKey;autoIncrement:false"`
	FileRecordID uuid.UUID `json:"file_record_id" gorm:"type:uuid;primaryKey;index"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
}
