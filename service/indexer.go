package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-file-hub/entity"
	"github.com/tnqbao/gau-file-hub/infra"
	"github.com/tnqbao/gau-file-hub/repository"
	"github.com/tnqbao/gau-file-hub/service/extract"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// defaultStopWords are skipped during tokenization. Matching the indexer's
// English defaults keeps the keyword table from filling with glue words.
var defaultStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "has": true,
	"have": true, "this": true, "that": true, "with": true, "from": true,
	"they": true, "been": true, "were": true, "their": true, "would": true,
	"there": true, "what": true, "about": true, "which": true, "when": true,
	"will": true, "more": true, "your": true, "said": true, "them": true,
	"some": true, "into": true, "than": true, "then": true, "also": true,
}

// Indexer executes keyword-indexing tasks: fetch the blob, extract text,
// tokenize and rebuild the file's index entries. It is driven by the queue
// consumer but safe to call directly (reindexing, tests).
type Indexer struct {
	db        *gorm.DB
	store     ObjectStorage
	extractor *extract.Service
	logger    *infra.LoggerClient

	minWordLength int
	maxWordLength int
	stopWords     map[string]bool
}

func NewIndexer(db *gorm.DB, store ObjectStorage, extractor *extract.Service, logger *infra.LoggerClient, minWordLength, maxWordLength int) *Indexer {
	return &Indexer{
		db:            db,
		store:         store,
		extractor:     extractor,
		logger:        logger,
		minWordLength: minWordLength,
		maxWordLength: maxWordLength,
		stopWords:     defaultStopWords,
	}
}

// Tokenize lowercases the text, splits it into alphanumeric runs and keeps
// each distinct token within the configured length bounds, stop words
// excluded. The result is sorted for deterministic storage.
func (ix *Indexer) Tokenize(text string) []string {
	seen := map[string]bool{}
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if len(token) < ix.minWordLength || len(token) > ix.maxWordLength {
			continue
		}
		if ix.stopWords[token] {
			continue
		}
		seen[token] = true
	}
	tokens := make([]string, 0, len(seen))
	for token := range seen {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

// IndexFile processes one indexing task. A missing record is treated as
// stale (the file was deleted after enqueueing) and succeeds with zero
// keywords. A storage read failure is retryable; an extraction failure is
// terminal and marks the record FAILED without touching stored bytes.
func (ix *Indexer) IndexFile(ctx context.Context, fileID uuid.UUID) (int, error) {
	repos := repository.New(ix.db)

	record, err := repos.FileRecordRepo.FindByID(fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ix.logger.InfoWithContextf(ctx, "index task for %s skipped: record no longer exists", fileID)
			return 0, nil
		}
		return 0, &RetryableTaskError{Err: fmt.Errorf("load record %s: %w", fileID, err)}
	}

	if !ix.extractor.Supported(record.FileType) {
		detail, _ := json.Marshal(map[string]interface{}{"reason": "unsupported file type", "file_type": record.FileType})
		if err := ix.markStatus(record.ID, entity.IndexStatusUnsupported, detail, true); err != nil {
			return 0, &RetryableTaskError{Err: err}
		}
		return 0, nil
	}

	obj, err := ix.store.Get(ctx, blobKey(record.Fingerprint))
	if err != nil {
		return 0, &RetryableTaskError{Err: &StorageIOError{Op: "get", Err: err}}
	}
	data, err := io.ReadAll(obj)
	obj.Close()
	if err != nil {
		return 0, &RetryableTaskError{Err: &StorageIOError{Op: "read", Err: err}}
	}

	text, err := ix.extractor.Extract(data, record.FileType)
	if err != nil {
		detail, _ := json.Marshal(map[string]interface{}{"error": err.Error()})
		if markErr := ix.markStatus(record.ID, entity.IndexStatusFailed, detail, false); markErr != nil {
			return 0, &RetryableTaskError{Err: markErr}
		}
		return 0, &ExtractionError{Err: err}
	}

	tokens := ix.Tokenize(text)

	err = ix.db.Transaction(func(tx *gorm.DB) error {
		txRepos := repos.WithTransaction(tx)
		ids, err := txRepos.SearchIndexRepo.UpsertKeywords(tokens)
		if err != nil {
			return err
		}
		if err := txRepos.SearchIndexRepo.ReplaceEntries(record.ID, ids); err != nil {
			return err
		}
		detail, _ := json.Marshal(map[string]interface{}{"keywords": len(tokens)})
		return txRepos.FileRecordRepo.UpdateIndexStatus(record.ID, entity.IndexStatusIndexed, detail)
	})
	if err != nil {
		return 0, &RetryableTaskError{Err: fmt.Errorf("persist index for %s: %w", fileID, err)}
	}

	return len(tokens), nil
}

// MarkFailed records a terminal failure, used by the consumer once a task
// exhausts its retries.
func (ix *Indexer) MarkFailed(fileID uuid.UUID, reason string) error {
	detail, _ := json.Marshal(map[string]interface{}{"error": reason})
	return ix.markStatus(fileID, entity.IndexStatusFailed, detail, false)
}

// markStatus updates the record's index status. When clearEntries is set any
// existing index entries are removed in the same transaction so an
// unsupported or re-typed file never matches stale keywords.
func (ix *Indexer) markStatus(fileID uuid.UUID, status entity.IndexStatus, detail datatypes.JSON, clearEntries bool) error {
	return ix.db.Transaction(func(tx *gorm.DB) error {
		txRepos := repository.New(tx)
		if clearEntries {
			if err := txRepos.SearchIndexRepo.DeleteEntriesByFile(fileID); err != nil {
				return err
			}
		}
		return txRepos.FileRecordRepo.UpdateIndexStatus(fileID, status, detail)
	})
}
