package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-file-hub/entity"
	"github.com/tnqbao/gau-file-hub/infra"
	"github.com/tnqbao/gau-file-hub/repository"
	"gorm.io/gorm"
)

func newTestRegistry(t *testing.T, db *gorm.DB, quota int64) (*FileRegistry, *fakeStore, *fakeQueue) {
	t.Helper()
	store := newFakeStore()
	queue := &fakeQueue{}
	registry := NewFileRegistry(db, store, queue, NewQuotaLedger(quota), infra.NewTestLogger(), 10*1024*1024)
	return registry, store, queue
}

func usageFor(t *testing.T, db *gorm.DB, userID string) *entity.UserStorage {
	t.Helper()
	usage, err := repository.New(db).UserStorageRepo.GetOrCreate(userID)
	require.NoError(t, err)
	return usage
}

func TestUploadDeduplicatesIdenticalContent(t *testing.T) {
	db := newTestDB(t)
	registry, store, _ := newTestRegistry(t, db, 1<<20)
	ctx := context.Background()

	first, err := registry.Upload(ctx, "alice", strings.NewReader("hello world"), "a.txt", "text/plain")
	require.NoError(t, err)
	second, err := registry.Upload(ctx, "bob", strings.NewReader("hello world"), "b.txt", "text/plain")
	require.NoError(t, err)

	assert.False(t, first.IsReference)
	assert.True(t, second.IsReference)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	require.NotNil(t, second.OriginalFileID)
	assert.Equal(t, first.ID, *second.OriginalFileID)

	// One physical write, one blob row, refcount 2.
	assert.Equal(t, 1, store.puts)
	assert.Equal(t, 1, store.count())
	blob, err := repository.New(db).ContentBlobRepo.FindByFingerprint(first.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, int64(2), blob.RefCount)
}

func TestUploadSameUserSameContentStillDeduplicates(t *testing.T) {
	db := newTestDB(t)
	registry, store, _ := newTestRegistry(t, db, 1<<20)
	ctx := context.Background()

	_, err := registry.Upload(ctx, "alice", strings.NewReader("same bytes"), "one.txt", "text/plain")
	require.NoError(t, err)
	dup, err := registry.Upload(ctx, "alice", strings.NewReader("same bytes"), "two.txt", "text/plain")
	require.NoError(t, err)

	assert.True(t, dup.IsReference)
	assert.Equal(t, 1, store.puts)
}

func TestUploadChargesActualOnlyForNewContent(t *testing.T) {
	db := newTestDB(t)
	registry, _, _ := newTestRegistry(t, db, 1<<20)
	ctx := context.Background()

	content := "duplicate payload"
	size := int64(len(content))

	_, err := registry.Upload(ctx, "alice", strings.NewReader(content), "a.txt", "text/plain")
	require.NoError(t, err)
	_, err = registry.Upload(ctx, "bob", strings.NewReader(content), "b.txt", "text/plain")
	require.NoError(t, err)

	alice := usageFor(t, db, "alice")
	assert.Equal(t, size, alice.ActualUsed)
	assert.Equal(t, size, alice.LogicalUsed)

	bob := usageFor(t, db, "bob")
	assert.Equal(t, int64(0), bob.ActualUsed)
	assert.Equal(t, size, bob.LogicalUsed)
	assert.Equal(t, size, bob.StorageSavings())
}

func TestUploadQuotaExceededLeavesNoState(t *testing.T) {
	db := newTestDB(t)
	registry, store, queue := newTestRegistry(t, db, 10)
	ctx := context.Background()

	_, err := registry.Upload(ctx, "alice", strings.NewReader("this payload is larger than ten bytes"), "big.txt", "text/plain")

	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, "alice", quotaErr.UserID)

	// The rejection rolls back everything: no record, no blob, no object,
	// no ledger charge, no index task.
	repos := repository.New(db)
	records, err := repos.FileRecordRepo.ListByUser("alice", repository.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
	blobs, err := repos.ContentBlobRepo.CountAll()
	require.NoError(t, err)
	assert.Zero(t, blobs)
	assert.Zero(t, store.count())
	assert.Zero(t, queue.count())

	usage := usageFor(t, db, "alice")
	assert.Zero(t, usage.ActualUsed)
	assert.Zero(t, usage.LogicalUsed)
}

func TestUploadQuotaChecksLogicalUsage(t *testing.T) {
	db := newTestDB(t)
	registry, _, _ := newTestRegistry(t, db, 20)
	ctx := context.Background()

	content := "twelve bytes" // 12 bytes
	_, err := registry.Upload(ctx, "alice", strings.NewReader(content), "a.txt", "text/plain")
	require.NoError(t, err)
	_, err = registry.Upload(ctx, "bob", strings.NewReader(content), "b.txt", "text/plain")
	require.NoError(t, err)

	// Bob's copy is deduplicated and costs no actual storage, yet it still
	// counts against his logical quota.
	var quotaErr *QuotaExceededError
	_, err = registry.Upload(ctx, "bob", strings.NewReader("ten bytes!"), "c.txt", "text/plain")
	require.ErrorAs(t, err, &quotaErr)
}

func TestUploadRejectsInvalidFilename(t *testing.T) {
	db := newTestDB(t)
	registry, _, _ := newTestRegistry(t, db, 1<<20)
	ctx := context.Background()

	cases := []string{"", "   ", "../escape.txt", "dir/inner.txt", "noextension", "virus.exe"}
	for _, name := range cases {
		_, err := registry.Upload(ctx, "alice", strings.NewReader("data"), name, "text/plain")
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr, "filename %q should be rejected", name)
	}
}

func TestUploadQuotaChecksActualUsage(t *testing.T) {
	db := newTestDB(t)
	registry, _, _ := newTestRegistry(t, db, 15)
	ctx := context.Background()

	content := "elevenbytes" // 11 bytes
	canonical, err := registry.Upload(ctx, "alice", strings.NewReader(content), "a.txt", "text/plain")
	require.NoError(t, err)
	_, err = registry.Upload(ctx, "bob", strings.NewReader(content), "b.txt", "text/plain")
	require.NoError(t, err)

	// Deleting the canonical while bob's reference remains keeps alice's
	// actual charge (11) while her logical usage drops to zero.
	require.NoError(t, registry.Delete(ctx, "alice", canonical.ID))
	alice := usageFor(t, db, "alice")
	require.Equal(t, int64(11), alice.ActualUsed)
	require.Zero(t, alice.LogicalUsed)

	// Fresh content of 10 bytes passes the logical bound (0+10 <= 15) but
	// would push actual usage to 21; it must be rejected.
	var quotaErr *QuotaExceededError
	_, err = registry.Upload(ctx, "alice", strings.NewReader("ten bytes!"), "c.txt", "text/plain")
	require.ErrorAs(t, err, &quotaErr)

	after := usageFor(t, db, "alice")
	assert.Equal(t, int64(11), after.ActualUsed)
	assert.Zero(t, after.LogicalUsed)
}

func TestConcurrentSameContentUploads(t *testing.T) {
	db := newTestFileDB(t)
	registry, store, _ := newTestRegistry(t, db, 1<<20)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	records := make([]*entity.FileRecord, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i], errs[i] = registry.Upload(ctx, fmt.Sprintf("user-%d", i),
				strings.NewReader("raced content"), fmt.Sprintf("f%d.txt", i), "text/plain")
		}(i)
	}
	wg.Wait()

	canonicals := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i], "upload %d", i)
		if !records[i].IsReference {
			canonicals++
		}
	}
	assert.Equal(t, 1, canonicals)

	repos := repository.New(db)
	blobs, err := repos.ContentBlobRepo.CountAll()
	require.NoError(t, err)
	assert.Equal(t, int64(1), blobs)
	blob, err := repos.ContentBlobRepo.FindByFingerprint(records[0].Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, int64(n), blob.RefCount)
	assert.Equal(t, 1, store.puts)
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()
	queue := &fakeQueue{}
	registry := NewFileRegistry(db, store, queue, NewQuotaLedger(1<<20), infra.NewTestLogger(), 8)

	_, err := registry.Upload(context.Background(), "alice", strings.NewReader("more than eight bytes"), "big.txt", "text/plain")
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Zero(t, store.count())
}

// endlessReader yields bytes forever and counts how many were consumed.
type endlessReader struct {
	consumed int64
}

func (r *endlessReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'a'
	}
	r.consumed += int64(len(p))
	return len(p), nil
}

func TestUploadSpoolsNoMoreThanLimit(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()
	registry := NewFileRegistry(db, store, &fakeQueue{}, NewQuotaLedger(1<<20), infra.NewTestLogger(), 8)

	src := &endlessReader{}
	_, err := registry.Upload(context.Background(), "alice", src, "endless.txt", "text/plain")

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	// One byte past the limit is enough to reject; the rest of the stream is
	// never pulled onto the temp volume.
	assert.LessOrEqual(t, src.consumed, int64(9))
}

func TestUploadStorageFailureRollsBack(t *testing.T) {
	db := newTestDB(t)
	registry, store, queue := newTestRegistry(t, db, 1<<20)
	store.putErr = errors.New("minio is down")

	_, err := registry.Upload(context.Background(), "alice", strings.NewReader("content"), "a.txt", "text/plain")

	var ioErr *StorageIOError
	require.ErrorAs(t, err, &ioErr)

	repos := repository.New(db)
	blobs, err := repos.ContentBlobRepo.CountAll()
	require.NoError(t, err)
	assert.Zero(t, blobs)
	usage := usageFor(t, db, "alice")
	assert.Zero(t, usage.LogicalUsed)
	assert.Zero(t, queue.count())
}

func TestUploadEnqueuesIndexTask(t *testing.T) {
	db := newTestDB(t)
	registry, _, queue := newTestRegistry(t, db, 1<<20)

	record, err := registry.Upload(context.Background(), "alice", strings.NewReader("index me"), "a.txt", "text/plain")
	require.NoError(t, err)

	require.Equal(t, 1, queue.count())
	assert.Equal(t, record.ID, queue.published[0])
	assert.Equal(t, entity.IndexStatusPending, record.IndexStatus)
}

func TestUploadSucceedsWhenEnqueueFails(t *testing.T) {
	db := newTestDB(t)
	registry, _, queue := newTestRegistry(t, db, 1<<20)
	queue.publishErr = errors.New("broker unreachable")

	record, err := registry.Upload(context.Background(), "alice", strings.NewReader("still stored"), "a.txt", "text/plain")
	require.NoError(t, err)

	// The record stays PENDING; a later bulk reindex picks it up.
	assert.Equal(t, entity.IndexStatusPending, record.IndexStatus)
}

func TestDeleteCanonicalKeepsBlobWhileReferenced(t *testing.T) {
	db := newTestDB(t)
	registry, store, _ := newTestRegistry(t, db, 1<<20)
	ctx := context.Background()

	content := "shared content"
	size := int64(len(content))

	canonical, err := registry.Upload(ctx, "alice", strings.NewReader(content), "a.txt", "text/plain")
	require.NoError(t, err)
	reference, err := registry.Upload(ctx, "bob", strings.NewReader(content), "b.txt", "text/plain")
	require.NoError(t, err)

	require.NoError(t, registry.Delete(ctx, "alice", canonical.ID))

	// Bob's reference still resolves to the shared bytes.
	body, _, err := registry.Download(ctx, "bob", reference.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, content, string(data))

	// Alice's logical usage drops but her actual charge stays: the bytes she
	// introduced are still stored for bob.
	alice := usageFor(t, db, "alice")
	assert.Equal(t, int64(0), alice.LogicalUsed)
	assert.Equal(t, size, alice.ActualUsed)
	assert.Zero(t, store.removes)
}

func TestDeleteLastRecordRemovesBlob(t *testing.T) {
	db := newTestDB(t)
	registry, store, _ := newTestRegistry(t, db, 1<<20)
	ctx := context.Background()

	record, err := registry.Upload(ctx, "alice", strings.NewReader("solo content"), "a.txt", "text/plain")
	require.NoError(t, err)
	require.NoError(t, registry.Delete(ctx, "alice", record.ID))

	repos := repository.New(db)
	blobs, err := repos.ContentBlobRepo.CountAll()
	require.NoError(t, err)
	assert.Zero(t, blobs)
	assert.Zero(t, store.count())

	alice := usageFor(t, db, "alice")
	assert.Zero(t, alice.ActualUsed)
	assert.Zero(t, alice.LogicalUsed)
}

func TestDeleteCanonicalThenReference(t *testing.T) {
	db := newTestDB(t)
	registry, store, _ := newTestRegistry(t, db, 1<<20)
	ctx := context.Background()

	content := "shared content"
	size := int64(len(content))

	canonical, err := registry.Upload(ctx, "alice", strings.NewReader(content), "a.txt", "text/plain")
	require.NoError(t, err)
	reference, err := registry.Upload(ctx, "bob", strings.NewReader(content), "b.txt", "text/plain")
	require.NoError(t, err)

	require.NoError(t, registry.Delete(ctx, "alice", canonical.ID))
	require.NoError(t, registry.Delete(ctx, "bob", reference.ID))

	// The blob is gone once the last record leaves.
	assert.Zero(t, store.count())

	// Deleting a reference never releases actual usage, so the charge alice
	// took for introducing the bytes stays on her ledger.
	alice := usageFor(t, db, "alice")
	assert.Equal(t, size, alice.ActualUsed)
	bob := usageFor(t, db, "bob")
	assert.Zero(t, bob.ActualUsed)
	assert.Zero(t, bob.LogicalUsed)
}

func TestDeleteUnknownFileReturnsNotFound(t *testing.T) {
	db := newTestDB(t)
	registry, _, _ := newTestRegistry(t, db, 1<<20)

	err := registry.Delete(context.Background(), "alice", uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	db := newTestDB(t)
	registry, _, _ := newTestRegistry(t, db, 1<<20)
	ctx := context.Background()

	record, err := registry.Upload(ctx, "alice", strings.NewReader("private"), "a.txt", "text/plain")
	require.NoError(t, err)

	err = registry.Delete(ctx, "mallory", record.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Alice's record is untouched.
	_, err = registry.Get("alice", record.ID)
	assert.NoError(t, err)
}

func TestUploadAfterCanonicalDeleted(t *testing.T) {
	db := newTestDB(t)
	registry, store, _ := newTestRegistry(t, db, 1<<20)
	ctx := context.Background()

	content := "orphan blob content"
	canonical, err := registry.Upload(ctx, "alice", strings.NewReader(content), "a.txt", "text/plain")
	require.NoError(t, err)
	_, err = registry.Upload(ctx, "bob", strings.NewReader(content), "b.txt", "text/plain")
	require.NoError(t, err)
	require.NoError(t, registry.Delete(ctx, "alice", canonical.ID))

	// A third upload of the same bytes dedups against the blob even though
	// the canonical record is gone. No canonical link is available.
	third, err := registry.Upload(ctx, "carol", strings.NewReader(content), "c.txt", "text/plain")
	require.NoError(t, err)
	assert.True(t, third.IsReference)
	assert.Nil(t, third.OriginalFileID)
	assert.Equal(t, 1, store.puts)
}

func TestListFilters(t *testing.T) {
	db := newTestDB(t)
	registry, _, _ := newTestRegistry(t, db, 1<<20)
	ctx := context.Background()

	_, err := registry.Upload(ctx, "alice", strings.NewReader("report body"), "report.txt", "text/plain")
	require.NoError(t, err)
	_, err = registry.Upload(ctx, "alice", strings.NewReader(`{"k":1}`), "data.json", "application/json")
	require.NoError(t, err)
	_, err = registry.Upload(ctx, "bob", strings.NewReader("not mine"), "other.txt", "text/plain")
	require.NoError(t, err)

	all, err := registry.List("alice", repository.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byType, err := registry.List("alice", repository.RecordFilter{FileType: "application/json"})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "data.json", byType[0].OriginalFilename)

	byName, err := registry.List("alice", repository.RecordFilter{Search: "report"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "report.txt", byName[0].OriginalFilename)

	types, err := registry.FileTypes("alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"text/plain", "application/json"}, types)
}

func TestReindexAllQueuesEveryRecord(t *testing.T) {
	db := newTestDB(t)
	registry, _, queue := newTestRegistry(t, db, 1<<20)
	ctx := context.Background()

	_, err := registry.Upload(ctx, "alice", strings.NewReader("one"), "one.txt", "text/plain")
	require.NoError(t, err)
	_, err = registry.Upload(ctx, "bob", strings.NewReader("two"), "two.txt", "text/plain")
	require.NoError(t, err)

	before := queue.count()
	queued, err := registry.ReindexAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, queued)
	assert.Equal(t, before+2, queue.count())
}
