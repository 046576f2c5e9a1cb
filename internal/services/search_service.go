package services

import (
	"context"

	"github.com/asandoval/breeze/internal/db"
)

// SearchServiceImpl implements SearchService over the local store. The
// query-matching logic itself lives server-side; this only remembers
// what the user searched for.
type SearchServiceImpl struct {
	store        *db.Store
	accountEmail string
}

// NewSearchService creates a new search service.
func NewSearchService(store *db.Store, accountEmail string) *SearchServiceImpl {
	return &SearchServiceImpl{store: store, accountEmail: accountEmail}
}

// SaveHistory records a query in the account's search history.
func (s *SearchServiceImpl) SaveHistory(ctx context.Context, query string) error {
	if s.store == nil {
		return nil
	}
	return s.store.SaveSearchHistory(ctx, s.accountEmail, query)
}

// History returns the account's most recent queries, newest first.
func (s *SearchServiceImpl) History(ctx context.Context, limit int) ([]string, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.SearchHistory(ctx, s.accountEmail, limit)
}
