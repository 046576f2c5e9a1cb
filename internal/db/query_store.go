package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SaveSearchHistory records a query for an account, bumping its use
// count and recency if it was already there.
func (s *Store) SaveSearchHistory(ctx context.Context, accountEmail, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO search_history (account_email, query, last_used, use_count)
VALUES (?, ?, ?, 1)
ON CONFLICT (account_email, query)
DO UPDATE SET last_used = excluded.last_used, use_count = use_count + 1;
`, accountEmail, query, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save search history: %w", err)
	}
	return nil
}

// SearchHistory returns the most recent queries for an account, newest
// first.
func (s *Store) SearchHistory(ctx context.Context, accountEmail string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT query FROM search_history
WHERE account_email = ?
ORDER BY last_used DESC
LIMIT ?;
`, accountEmail, limit)
	if err != nil {
		return nil, fmt.Errorf("load search history: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ClearSearchHistory removes all recorded queries for an account.
func (s *Store) ClearSearchHistory(ctx context.Context, accountEmail string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM search_history WHERE account_email = ?;`, accountEmail)
	if err != nil {
		return fmt.Errorf("clear search history: %w", err)
	}
	return nil
}
