package service

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-file-hub/entity"
	"github.com/tnqbao/gau-file-hub/infra"
	"github.com/tnqbao/gau-file-hub/repository"
	"github.com/tnqbao/gau-file-hub/service/extract"
	"gorm.io/gorm"
)

// ObjectStorage is the physical blob storage the registry writes to.
// Implemented by infra.MinioClient; tests substitute an in-memory fake.
type ObjectStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// IndexQueue is the producer side of the indexing task queue. Implemented by
// produce.IndexProduceService.
type IndexQueue interface {
	PublishIndexFile(ctx context.Context, fileID uuid.UUID) error
}

// FileRegistry owns the FileRecord lifecycle. The upload path is fully
// synchronous: fingerprinting, dedup resolution, quota reservation, blob
// commit and record creation all complete (in one database transaction)
// before the caller gets a response. Only keyword indexing is deferred to
// the queue.
type FileRegistry struct {
	db          *gorm.DB
	store       ObjectStorage
	queue       IndexQueue
	ledger      *QuotaLedger
	logger      *infra.LoggerClient
	maxFileSize int64
}

func NewFileRegistry(db *gorm.DB, store ObjectStorage, queue IndexQueue, ledger *QuotaLedger, logger *infra.LoggerClient, maxFileSize int64) *FileRegistry {
	return &FileRegistry{
		db:          db,
		store:       store,
		queue:       queue,
		ledger:      ledger,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

func blobKey(fingerprint string) string {
	return "blobs/" + fingerprint
}

// Upload stores a file for the user, deduplicating against every previously
// stored byte-sequence system-wide. The first upload of a fingerprint
// becomes the canonical record and pays actual quota; any later upload of
// the same bytes (any user, any filename) becomes a reference charged only
// logically.
func (r *FileRegistry) Upload(ctx context.Context, userID string, reader io.Reader, filename, declaredType string) (*entity.FileRecord, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}

	// The limit caps how much an oversized or unbounded stream can write to
	// the temp volume; one extra byte distinguishes at-limit from over it.
	spool, err := SpoolAndHash(io.LimitReader(reader, r.maxFileSize+1))
	if err != nil {
		return nil, err
	}
	defer spool.Cleanup()

	if spool.Size > r.maxFileSize {
		return nil, &ValidationError{Reason: "file size exceeds maximum allowed size"}
	}

	contentType := extract.NormalizeMime(declaredType)
	record := &entity.FileRecord{
		ID:               uuid.New(),
		UserID:           userID,
		OriginalFilename: filename,
		FileType:         contentType,
		Size:             spool.Size,
		Fingerprint:      spool.Fingerprint,
		IndexStatus:      entity.IndexStatusPending,
	}

	var objectWritten bool
	err = r.db.Transaction(func(tx *gorm.DB) error {
		repos := repository.New(tx)

		blob := &entity.ContentBlob{
			Fingerprint: spool.Fingerprint,
			Size:        spool.Size,
			StorageKey:  blobKey(spool.Fingerprint),
			RefCount:    1,
		}

		// Claim-or-reference loop. Losing the claim does not lock the
		// existing row, so a concurrent delete can free the blob before
		// our ref bump lands; a zero-row bump means exactly that, and the
		// content must be claimed again as new.
		var claimed bool
		for {
			var err error
			claimed, err = repos.ContentBlobRepo.Claim(blob)
			if err != nil {
				return err
			}
			if claimed {
				break
			}
			rows, err := repos.ContentBlobRepo.IncrementRef(spool.Fingerprint)
			if err != nil {
				return err
			}
			if rows == 1 {
				break
			}
		}

		if claimed {
			// Brand-new content: the user pays actual quota and this
			// becomes the canonical record. The physical write happens
			// before commit so a commit failure can roll it back.
			if err := r.ledger.Reserve(repos, userID, spool.Size, true); err != nil {
				return err
			}

			body, err := spool.Reader()
			if err != nil {
				return err
			}
			if err := r.store.Put(ctx, blob.StorageKey, body, spool.Size, contentType); err != nil {
				return &StorageIOError{Op: "put", Err: err}
			}
			objectWritten = true
		} else {
			// Known content: only logical usage is charged, no physical
			// write happens, and the record references the canonical one
			// when it still exists.
			if err := r.ledger.Reserve(repos, userID, spool.Size, false); err != nil {
				return err
			}

			record.IsReference = true
			canonical, err := repos.FileRecordRepo.FindCanonicalByFingerprint(spool.Fingerprint)
			switch {
			case err == nil:
				record.OriginalFileID = &canonical.ID
			case errors.Is(err, gorm.ErrRecordNotFound):
				// Canonical record was deleted while references remain;
				// the blob row keeps the content resolvable.
			default:
				return err
			}
		}

		return repos.FileRecordRepo.Create(record)
	})
	if err != nil {
		if objectWritten {
			if rmErr := r.store.Remove(ctx, blobKey(spool.Fingerprint)); rmErr != nil {
				r.logger.WarningWithContextf(ctx, "[Registry] Failed to clean up blob %s after rollback: %v", spool.Fingerprint, rmErr)
			}
		}
		return nil, err
	}

	r.logger.InfoWithContextf(ctx, "[Registry] Stored file %s for user %s (reference=%t, fingerprint=%s)",
		record.ID, userID, record.IsReference, record.Fingerprint)

	// Indexing never blocks the upload response. A failed enqueue leaves the
	// record PENDING; a bulk reindex picks it up later.
	if err := r.queue.PublishIndexFile(ctx, record.ID); err != nil {
		r.logger.ErrorWithContextf(ctx, err, "[Registry] Failed to enqueue index task for file %s", record.ID)
	}

	return record, nil
}

// Delete removes one of the user's records and releases its share of the
// ledger and the blob. The blob's bytes are removed only when no record of
// any user points at the fingerprint anymore.
func (r *FileRegistry) Delete(ctx context.Context, userID string, fileID uuid.UUID) error {
	var freedKey string

	err := r.db.Transaction(func(tx *gorm.DB) error {
		repos := repository.New(tx)

		record, err := repos.FileRecordRepo.FindByIDAndUser(fileID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		// Index entries go away with the record; orphaned keywords linger.
		if err := repos.SearchIndexRepo.DeleteEntriesByFile(record.ID); err != nil {
			return err
		}

		remaining, err := repos.ContentBlobRepo.DecrementRef(record.Fingerprint)
		if err != nil {
			return err
		}

		// Actual usage is released only when a canonical record leaves no
		// references behind. A canonical deleted while references remain
		// keeps its bytes charged to the uploader.
		releaseActual := !record.IsReference && remaining == 0
		if err := r.ledger.Release(repos, userID, record.Size, releaseActual); err != nil {
			return err
		}

		if remaining <= 0 {
			blob, err := repos.ContentBlobRepo.FindByFingerprint(record.Fingerprint)
			if err != nil {
				return err
			}
			if err := repos.ContentBlobRepo.Delete(record.Fingerprint); err != nil {
				return err
			}
			freedKey = blob.StorageKey
		}

		return repos.FileRecordRepo.Delete(record.ID)
	})
	if err != nil {
		return err
	}

	if freedKey != "" {
		if rmErr := r.store.Remove(ctx, freedKey); rmErr != nil {
			r.logger.WarningWithContextf(ctx, "[Registry] Failed to remove freed blob object %s: %v", freedKey, rmErr)
		}
	}

	r.logger.InfoWithContextf(ctx, "[Registry] Deleted file %s for user %s", fileID, userID)
	return nil
}

// Get returns one of the user's records.
func (r *FileRegistry) Get(userID string, fileID uuid.UUID) (*entity.FileRecord, error) {
	record, err := repository.New(r.db).FileRecordRepo.FindByIDAndUser(fileID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

// Download streams the content of one of the user's records. Reference
// records resolve through the fingerprint to the shared blob.
func (r *FileRegistry) Download(ctx context.Context, userID string, fileID uuid.UUID) (io.ReadCloser, *entity.FileRecord, error) {
	record, err := r.Get(userID, fileID)
	if err != nil {
		return nil, nil, err
	}

	body, err := r.store.Get(ctx, blobKey(record.Fingerprint))
	if err != nil {
		return nil, nil, &StorageIOError{Op: "get", Err: err}
	}
	return body, record, nil
}

// List returns the user's records, filtered and ordered.
func (r *FileRegistry) List(userID string, filter repository.RecordFilter) ([]entity.FileRecord, error) {
	return repository.New(r.db).FileRecordRepo.ListByUser(userID, filter)
}

// FileTypes returns the distinct MIME types of the user's records.
func (r *FileRegistry) FileTypes(userID string) ([]string, error) {
	return repository.New(r.db).FileRecordRepo.DistinctFileTypes(userID)
}

// ReindexAll enqueues an indexing task for every record in the system.
// Returns the number of tasks queued.
func (r *FileRegistry) ReindexAll(ctx context.Context) (int, error) {
	ids, err := repository.New(r.db).FileRecordRepo.AllIDs()
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, id := range ids {
		if err := r.queue.PublishIndexFile(ctx, id); err != nil {
			r.logger.ErrorWithContextf(ctx, err, "[Registry] Failed to enqueue reindex for file %s", id)
			continue
		}
		queued++
	}

	r.logger.InfoWithContextf(ctx, "[Registry] Queued %d of %d files for reindexing", queued, len(ids))
	return queued, nil
}
