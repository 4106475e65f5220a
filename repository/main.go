package repository

import (
	"github.com/tnqbao/gau-file-hub/infra"
	"gorm.io/gorm"
)

type Repository struct {
	FileRecordRepo  *FileRecordRepository
	ContentBlobRepo *ContentBlobRepository
	UserStorageRepo *UserStorageRepository
	SearchIndexRepo *SearchIndexRepository
}

var repository *Repository

func InitRepository(infra *infra.Infra) *Repository {
	repository = New(infra.Postgres.DB)
	return repository
}

// New builds a repository set over an arbitrary gorm handle. Used directly
// by tests and by WithTransaction.
func New(db *gorm.DB) *Repository {
	return &Repository{
		FileRecordRepo:  NewFileRecordRepository(db),
		ContentBlobRepo: NewContentBlobRepository(db),
		UserStorageRepo: NewUserStorageRepository(db),
		SearchIndexRepo: NewSearchIndexRepository(db),
	}
}

func GetRepository() *Repository {
	if repository == nil {
		panic("repository not initialized")
	}
	return repository
}

func (r *Repository) WithTransaction(tx *gorm.DB) *Repository {
	return New(tx)
}
