package service

import (
	"github.com/tnqbao/gau-file-hub/repository"
	"gorm.io/gorm"
)

// UserStorageStats summarizes one user's quota ledger.
type UserStorageStats struct {
	UserID         string  `json:"user_id"`
	ActualUsed     int64   `json:"total_storage_used"`
	LogicalUsed    int64   `json:"original_storage_used"`
	Quota          int64   `json:"quota"`
	Remaining      int64   `json:"remaining"`
	UsagePercent   float64 `json:"usage_percent"`
	StorageSavings int64   `json:"storage_savings"`
}

// DeduplicationStats summarizes system-wide dedup effectiveness.
type DeduplicationStats struct {
	TotalFiles         int64   `json:"total_files"`
	OriginalFiles      int64   `json:"original_files"`
	ReferenceFiles     int64   `json:"reference_files"`
	UniqueBlobs        int64   `json:"unique_blobs"`
	DeduplicationRatio float64 `json:"deduplication_ratio"`
	LogicalBytes       int64   `json:"logical_bytes"`
	ActualBytes        int64   `json:"actual_bytes"`
	SavedBytes         int64   `json:"saved_bytes"`
	SavedPercent       float64 `json:"saved_percent"`
}

// IndexStats summarizes the keyword index.
type IndexStats struct {
	TotalKeywords       int64  `json:"total_keywords"`
	TopKeyword          string `json:"top_keyword,omitempty"`
	TopKeywordFileCount int64  `json:"top_keyword_file_count,omitempty"`
}

// StatsService aggregates reporting queries over the ledger, the blob table
// and the keyword index.
type StatsService struct {
	db    *gorm.DB
	quota int64
}

func NewStatsService(db *gorm.DB, quota int64) *StatsService {
	return &StatsService{db: db, quota: quota}
}

func (s *StatsService) UserStorage(userID string) (*UserStorageStats, error) {
	repos := repository.New(s.db)
	usage, err := repos.UserStorageRepo.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}

	stats := &UserStorageStats{
		UserID:         usage.UserID,
		ActualUsed:     usage.ActualUsed,
		LogicalUsed:    usage.LogicalUsed,
		Quota:          s.quota,
		Remaining:      s.quota - usage.LogicalUsed,
		StorageSavings: usage.StorageSavings(),
	}
	if s.quota > 0 {
		stats.UsagePercent = float64(usage.LogicalUsed) / float64(s.quota) * 100
	}
	return stats, nil
}

func (s *StatsService) Deduplication() (*DeduplicationStats, error) {
	repos := repository.New(s.db)

	total, err := repos.FileRecordRepo.CountAll()
	if err != nil {
		return nil, err
	}
	references, err := repos.FileRecordRepo.CountByReference(true)
	if err != nil {
		return nil, err
	}
	blobs, err := repos.ContentBlobRepo.CountAll()
	if err != nil {
		return nil, err
	}
	logicalBytes, err := repos.FileRecordRepo.SumSizes()
	if err != nil {
		return nil, err
	}
	actualBytes, err := repos.ContentBlobRepo.SumSizes()
	if err != nil {
		return nil, err
	}

	stats := &DeduplicationStats{
		TotalFiles:     total,
		OriginalFiles:  total - references,
		ReferenceFiles: references,
		UniqueBlobs:    blobs,
		LogicalBytes:   logicalBytes,
		ActualBytes:    actualBytes,
		SavedBytes:     logicalBytes - actualBytes,
	}
	if total > 0 {
		stats.DeduplicationRatio = float64(references) / float64(total)
	}
	if logicalBytes > 0 {
		stats.SavedPercent = float64(stats.SavedBytes) / float64(logicalBytes) * 100
	}
	return stats, nil
}

func (s *StatsService) Index() (*IndexStats, error) {
	repos := repository.New(s.db)

	total, err := repos.SearchIndexRepo.CountKeywords()
	if err != nil {
		return nil, err
	}
	stats := &IndexStats{TotalKeywords: total}
	if total > 0 {
		token, count, err := repos.SearchIndexRepo.TopKeyword()
		if err != nil {
			return nil, err
		}
		stats.TopKeyword = token
		stats.TopKeywordFileCount = count
	}
	return stats, nil
}
