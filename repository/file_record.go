package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-file-hub/entity"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FileRecordRepository struct {
	db *gorm.DB
}

func NewFileRecordRepository(db *gorm.DB) *FileRecordRepository {
	return &FileRecordRepository{db: db}
}

// RecordFilter narrows List results. Zero values mean "no constraint".
type RecordFilter struct {
	Search   string // case-insensitive substring of the original filename
	FileType string // substring of the MIME type
	MinSize  int64
	MaxSize  int64
	Start    time.Time
	End      time.Time
	OrderBy  string // uploaded_at | size | original_filename
	Desc     bool
}

func (r *FileRecordRepository) Create(record *entity.FileRecord) error {
	return r.db.Create(record).Error
}

func (r *FileRecordRepository) FindByID(id uuid.UUID) (*entity.FileRecord, error) {
	var record entity.FileRecord
	err := r.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *FileRecordRepository) FindByIDAndUser(id uuid.UUID, userID string) (*entity.FileRecord, error) {
	var record entity.FileRecord
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindCanonicalByFingerprint returns the non-reference record for a
// fingerprint, if one currently exists.
func (r *FileRecordRepository) FindCanonicalByFingerprint(fingerprint string) (*entity.FileRecord, error) {
	var record entity.FileRecord
	err := r.db.Where("fingerprint = ? AND is_reference = ?", fingerprint, false).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *FileRecordRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&entity.FileRecord{}, "id = ?", id).Error
}

func (r *FileRecordRepository) UpdateIndexStatus(id uuid.UUID, status entity.IndexStatus, detail datatypes.JSON) error {
	updates := map[string]interface{}{"index_status": status}
	if detail != nil {
		updates["index_detail"] = detail
	}
	return r.db.Model(&entity.FileRecord{}).Where("id = ?", id).Updates(updates).Error
}

func (r *FileRecordRepository) ListByUser(userID string, filter RecordFilter) ([]entity.FileRecord, error) {
	q := r.db.Where("user_id = ?", userID)

	if filter.Search != "" {
		q = q.Where("lower(original_filename) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.FileType != "" {
		q = q.Where("file_type LIKE ?", "%"+filter.FileType+"%")
	}
	if filter.MinSize > 0 {
		q = q.Where("size >= ?", filter.MinSize)
	}
	if filter.MaxSize > 0 {
		q = q.Where("size <= ?", filter.MaxSize)
	}
	if !filter.Start.IsZero() {
		q = q.Where("uploaded_at >= ?", filter.Start)
	}
	if !filter.End.IsZero() {
		q = q.Where("uploaded_at <= ?", filter.End)
	}

	order := "uploaded_at DESC"
	switch filter.OrderBy {
	case "size", "original_filename", "uploaded_at":
		order = filter.OrderBy
		if filter.Desc {
			order += " DESC"
		}
	}

	var records []entity.FileRecord
	err := q.Order(order).Find(&records).Error
	return records, err
}

func (r *FileRecordRepository) DistinctFileTypes(userID string) ([]string, error) {
	var types []string
	err := r.db.Model(&entity.FileRecord{}).
		Where("user_id = ?", userID).
		Distinct("file_type").
		Pluck("file_type", &types).Error
	return types, err
}

// AllIDs returns every record id; used by the bulk reindex producer.
func (r *FileRecordRepository) AllIDs() ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&entity.FileRecord{}).Pluck("id", &ids).Error
	return ids, err
}

func (r *FileRecordRepository) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&entity.FileRecord{}).Count(&count).Error
	return count, err
}

func (r *FileRecordRepository) CountByReference(isReference bool) (int64, error) {
	var count int64
	err := r.db.Model(&entity.FileRecord{}).Where("is_reference = ?", isReference).Count(&count).Error
	return count, err
}

// SumSizes totals all record sizes, the logical byte count as if
// deduplication did not exist.
func (r *FileRecordRepository) SumSizes() (int64, error) {
	var total int64
	err := r.db.Model(&entity.FileRecord{}).
		Select("COALESCE(SUM(size), 0)").Scan(&total).Error
	return total, err
}
