package repository

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-file-hub/entity"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entity.ContentBlob{},
		&entity.FileRecord{},
		&entity.UserStorage{},
		&entity.Keyword{},
		&entity.IndexEntry{},
	)
	require.NoError(t, err)

	return db
}
