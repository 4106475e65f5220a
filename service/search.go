package service

import (
	"strings"

	"github.com/tnqbao/gau-file-hub/entity"
	"github.com/tnqbao/gau-file-hub/repository"
	"gorm.io/gorm"
)

// SearchService answers keyword queries against the inverted index.
type SearchService struct {
	db *gorm.DB
}

func NewSearchService(db *gorm.DB) *SearchService {
	return &SearchService{db: db}
}

// Search returns the user's files whose index entries match any of the
// given keywords (OR semantics). Keywords are normalized the same way the
// indexer normalizes tokens, so lookups are case-insensitive.
func (s *SearchService) Search(keywords []string, userID string) ([]entity.FileRecord, error) {
	tokens := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		token := strings.ToLower(strings.TrimSpace(kw))
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	if len(tokens) == 0 {
		return nil, &ValidationError{Reason: "at least one search keyword is required"}
	}

	repos := repository.New(s.db)
	return repos.SearchIndexRepo.FindRecordsByTokens(tokens, userID)
}
