package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-file-hub/entity"
	"github.com/tnqbao/gau-file-hub/infra"
	"gorm.io/gorm"
)

func seedIndexedFile(t *testing.T, db *gorm.DB, store *fakeStore, userID, content, filename string) *entity.FileRecord {
	t.Helper()
	registry := NewFileRegistry(db, store, &fakeQueue{}, NewQuotaLedger(1<<20), infra.NewTestLogger(), 10*1024*1024)
	record, err := registry.Upload(context.Background(), userID, strings.NewReader(content), filename, "text/plain")
	require.NoError(t, err)

	ix := newTestIndexer(t, db, store)
	_, err = ix.IndexFile(context.Background(), record.ID)
	require.NoError(t, err)
	return record
}

func TestSearchMatchesAnyKeyword(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()

	apples := seedIndexedFile(t, db, store, "alice", "apples are tasty", "apples.txt")
	bananas := seedIndexedFile(t, db, store, "alice", "bananas are yellow", "bananas.txt")
	seedIndexedFile(t, db, store, "alice", "completely unrelated text", "other.txt")

	searcher := NewSearchService(db)
	results, err := searcher.Search([]string{"apples", "bananas"}, "alice")
	require.NoError(t, err)

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID.String())
	}
	assert.ElementsMatch(t, []string{apples.ID.String(), bananas.ID.String()}, ids)
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()
	record := seedIndexedFile(t, db, store, "alice", "Quantum Computing Basics", "qc.txt")

	searcher := NewSearchService(db)
	results, err := searcher.Search([]string{"QUANTUM"}, "alice")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, record.ID, results[0].ID)
}

func TestSearchScopedToUser(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()

	seedIndexedFile(t, db, store, "alice", "shared secret phrase", "a.txt")
	bobRecord := seedIndexedFile(t, db, store, "bob", "shared secret phrase two", "b.txt")

	searcher := NewSearchService(db)
	results, err := searcher.Search([]string{"secret"}, "bob")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, bobRecord.ID, results[0].ID)
}

func TestSearchDistinctWithMultipleMatches(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()
	record := seedIndexedFile(t, db, store, "alice", "apples and bananas together", "both.txt")

	// A file matching several keywords appears once.
	searcher := NewSearchService(db)
	results, err := searcher.Search([]string{"apples", "bananas"}, "alice")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, record.ID, results[0].ID)
}

func TestSearchRequiresKeywords(t *testing.T) {
	searcher := NewSearchService(newTestDB(t))

	var validationErr *ValidationError
	_, err := searcher.Search(nil, "alice")
	assert.ErrorAs(t, err, &validationErr)

	_, err = searcher.Search([]string{"  ", ""}, "alice")
	assert.ErrorAs(t, err, &validationErr)
}

func TestSearchNoMatches(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()
	seedIndexedFile(t, db, store, "alice", "nothing relevant", "a.txt")

	searcher := NewSearchService(db)
	results, err := searcher.Search([]string{"zebra"}, "alice")
	require.NoError(t, err)
	assert.Empty(t, results)
}
