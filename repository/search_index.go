package repository

import (
	"github.com/google/uuid"
	"github.com/tnqbao/gau-file-hub/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SearchIndexRepository struct {
	db *gorm.DB
}

func NewSearchIndexRepository(db *gorm.DB) *SearchIndexRepository {
	return &SearchIndexRepository{db: db}
}

// UpsertKeywords inserts any missing tokens and returns the keyword ids for
// all of them. Existing tokens are reused, never duplicated.
func (r *SearchIndexRepository) UpsertKeywords(tokens []string) ([]int64, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	keywords := make([]entity.Keyword, 0, len(tokens))
	for _, token := range tokens {
		keywords = append(keywords, entity.Keyword{Token: token})
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoNothing: true,
	}).Create(&keywords).Error
	if err != nil {
		return nil, err
	}

	var ids []int64
	err = r.db.Model(&entity.Keyword{}).
		Where("token IN ?", tokens).
		Pluck("id", &ids).Error
	return ids, err
}

// ReplaceEntries rebuilds a file's index entries wholesale. Delete-then-insert
// keeps reindexing idempotent under concurrent or repeated runs.
func (r *SearchIndexRepository) ReplaceEntries(fileID uuid.UUID, keywordIDs []int64) error {
	if err := r.DeleteEntriesByFile(fileID); err != nil {
		return err
	}
	if len(keywordIDs) == 0 {
		return nil
	}

	entries := make([]entity.IndexEntry, 0, len(keywordIDs))
	for _, kid := range keywordIDs {
		entries = append(entries, entity.IndexEntry{KeywordID: kid, FileRecordID: fileID})
	}
	return r.db.Create(&entries).Error
}

func (r *SearchIndexRepository) DeleteEntriesByFile(fileID uuid.UUID) error {
	return r.db.Delete(&entity.IndexEntry{}, "file_record_id = ?", fileID).Error
}

// FindRecordsByTokens returns the given user's records matching any of the
// tokens (OR semantics). Scoping happens on the record's owner, never on the
// blob: two users sharing a blob each see only their own records.
func (r *SearchIndexRepository) FindRecordsByTokens(tokens []string, userID string) ([]entity.FileRecord, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	var records []entity.FileRecord
	err := r.db.Model(&entity.FileRecord{}).
		Distinct("file_records.*").
		Joins("JOIN index_entries ON index_entries.file_record_id = file_records.id").
		Joins("JOIN keywords ON keywords.id = index_entries.keyword_id").
		Where("keywords.token IN ? AND file_records.user_id = ?", tokens, userID).
		Order("file_records.uploaded_at DESC").
		Find(&records).Error
	return records, err
}

// EntryTokens lists the tokens currently indexed for a file.
func (r *SearchIndexRepository) EntryTokens(fileID uuid.UUID) ([]string, error) {
	var tokens []string
	err := r.db.Model(&entity.IndexEntry{}).
		Joins("JOIN keywords ON keywords.id = index_entries.keyword_id").
		Where("index_entries.file_record_id = ?", fileID).
		Pluck("keywords.token", &tokens).Error
	return tokens, err
}

func (r *SearchIndexRepository) CountKeywords() (int64, error) {
	var count int64
	err := r.db.Model(&entity.Keyword{}).Count(&count).Error
	return count, err
}

// TopKeyword returns the token referenced by the most files and its file
// count. Returns an empty token when the index is empty.
func (r *SearchIndexRepository) TopKeyword() (string, int64, error) {
	var row struct {
		Token string
		Count int64
	}
	err := r.db.Model(&entity.IndexEntry{}).
		Select("keywords.token AS token, COUNT(index_entries.file_record_id) AS count").
		Joins("JOIN keywords ON keywords.id = index_entries.keyword_id").
		Group("keywords.token").
		Order("count DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return "", 0, err
	}
	return row.Token, row.Count, nil
}
