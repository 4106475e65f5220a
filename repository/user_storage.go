package repository

import (
	"github.com/tnqbao/gau-file-hub/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserStorageRepository struct {
	db *gorm.DB
}

func NewUserStorageRepository(db *gorm.DB) *UserStorageRepository {
	return &UserStorageRepository{db: db}
}

// GetOrCreate ensures a ledger row exists for the user and returns it.
func (r *UserStorageRepository) GetOrCreate(userID string) (*entity.UserStorage, error) {
	storage := entity.UserStorage{UserID: userID}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&storage).Error
	if err != nil {
		return nil, err
	}

	err = r.db.Where("user_id = ?", userID).First(&storage).Error
	if err != nil {
		return nil, err
	}
	return &storage, nil
}

// TryReserve charges the ledger if and only if both counters stay within
// the quota. Neither bound implies the other: actual usage can exceed
// logical usage after a canonical record is deleted while references
// remain. The guards live in the UPDATE's WHERE clause, so the
// check-and-charge is one atomic statement: concurrent reservations by the
// same user cannot both slip under the limit. Returns false when the quota
// would be exceeded.
func (r *UserStorageRepository) TryReserve(userID string, size int64, countsAsActual bool, quota int64) (bool, error) {
	if _, err := r.GetOrCreate(userID); err != nil {
		return false, err
	}

	var actualDelta int64
	if countsAsActual {
		actualDelta = size
	}

	res := r.db.Model(&entity.UserStorage{}).
		Where("user_id = ? AND logical_used + ? <= ? AND actual_used + ? <= ?",
			userID, size, quota, actualDelta, quota).
		Updates(map[string]interface{}{
			"logical_used": gorm.Expr("logical_used + ?", size),
			"actual_used":  gorm.Expr("actual_used + ?", actualDelta),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Release is the inverse of TryReserve, used on deletion. Never fails on
// quota: freeing bytes is always allowed.
func (r *UserStorageRepository) Release(userID string, size int64, countsAsActual bool) error {
	var actualDelta int64
	if countsAsActual {
		actualDelta = size
	}

	return r.db.Model(&entity.UserStorage{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"logical_used": gorm.Expr("logical_used - ?", size),
			"actual_used":  gorm.Expr("actual_used - ?", actualDelta),
		}).Error
}

func (r *UserStorageRepository) Find(userID string) (*entity.UserStorage, error) {
	var storage entity.UserStorage
	err := r.db.Where("user_id = ?", userID).First(&storage).Error
	if err != nil {
		return nil, err
	}
	return &storage, nil
}
