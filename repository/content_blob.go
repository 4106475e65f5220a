package repository

import (
	"github.com/tnqbao/gau-file-hub/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContentBlobRepository struct {
	db *gorm.DB
}

func NewContentBlobRepository(db *gorm.DB) *ContentBlobRepository {
	return &ContentBlobRepository{db: db}
}

// Claim atomically inserts the blob row for a new fingerprint. Returns true
// when this caller won the claim. Concurrent claims of the same fingerprint
// are serialized by the primary-key conflict: exactly one insert succeeds,
// the others observe an existing row and must treat the content as already
// stored.
func (r *ContentBlobRepository) Claim(blob *entity.ContentBlob) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoNothing: true,
	}).Create(blob)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ContentBlobRepository) FindByFingerprint(fingerprint string) (*entity.ContentBlob, error) {
	var blob entity.ContentBlob
	err := r.db.Where("fingerprint = ?", fingerprint).First(&blob).Error
	if err != nil {
		return nil, err
	}
	return &blob, nil
}

// IncrementRef bumps the ref count and returns how many rows matched. Zero
// means the blob row disappeared since the caller observed it (a concurrent
// delete drove the count to zero), and the caller must re-claim instead of
// referencing freed content.
func (r *ContentBlobRepository) IncrementRef(fingerprint string) (int64, error) {
	res := r.db.Model(&entity.ContentBlob{}).
		Where("fingerprint = ?", fingerprint).
		UpdateColumn("ref_count", gorm.Expr("ref_count + 1"))
	return res.RowsAffected, res.Error
}

// DecrementRef lowers the ref count and returns the remaining count. The
// row-level write lock taken by the UPDATE serializes concurrent releases,
// so exactly one caller observes zero.
func (r *ContentBlobRepository) DecrementRef(fingerprint string) (int64, error) {
	err := r.db.Model(&entity.ContentBlob{}).
		Where("fingerprint = ?", fingerprint).
		UpdateColumn("ref_count", gorm.Expr("ref_count - 1")).Error
	if err != nil {
		return 0, err
	}

	var remaining int64
	err = r.db.Model(&entity.ContentBlob{}).
		Where("fingerprint = ?", fingerprint).
		Pluck("ref_count", &remaining).Error
	return remaining, err
}

func (r *ContentBlobRepository) Delete(fingerprint string) error {
	return r.db.Delete(&entity.ContentBlob{}, "fingerprint = ?", fingerprint).Error
}

func (r *ContentBlobRepository) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&entity.ContentBlob{}).Count(&count).Error
	return count, err
}

// SumSizes totals the physically stored bytes. Unlike summing canonical
// record sizes, this still counts blobs whose canonical record was deleted
// while references keep them alive.
func (r *ContentBlobRepository) SumSizes() (int64, error) {
	var total int64
	err := r.db.Model(&entity.ContentBlob{}).
		Select("COALESCE(SUM(size), 0)").Scan(&total).Error
	return total, err
}
