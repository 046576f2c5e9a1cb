package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/asandoval/breeze/internal/feed"
)

// SaveSnapshot replaces the cached entity list for a category. The cache
// exists so the UI can paint instantly on the next startup, before the
// first live snapshot arrives; it is never authoritative.
func (s *Store) SaveSnapshot(ctx context.Context, accountEmail string, snap feed.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM thread_cache WHERE account_email = ? AND category = ?;`,
		accountEmail, snap.Category)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear snapshot cache: %w", err)
	}
	now := time.Now().Unix()
	for i := range snap.Entities {
		e := snap.Entities[i]
		read := 0
		if e.Read {
			read = 1
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO thread_cache (account_email, category, thread_id, subject, sender, snippet, is_read, message_ids, date_ms, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, accountEmail, snap.Category, e.ID, e.Subject, e.From, e.Snippet, read,
			strings.Join(e.MessageIDs, ","), e.Date.UnixMilli(), now)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("cache thread %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// LoadSnapshot returns the cached entity list for a category, or an
// empty snapshot if nothing was cached.
func (s *Store) LoadSnapshot(ctx context.Context, accountEmail, category string) (feed.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT thread_id, subject, sender, snippet, is_read, message_ids, date_ms
FROM thread_cache
WHERE account_email = ? AND category = ?
ORDER BY date_ms DESC;
`, accountEmail, category)
	if err != nil {
		return feed.Snapshot{}, fmt.Errorf("load snapshot cache: %w", err)
	}
	defer rows.Close()
	snap := feed.Snapshot{Category: category}
	for rows.Next() {
		var e feed.Entity
		var read int
		var msgIDs string
		var dateMs int64
		if err := rows.Scan(&e.ID, &e.Subject, &e.From, &e.Snippet, &read, &msgIDs, &dateMs); err != nil {
			return feed.Snapshot{}, err
		}
		e.Category = category
		e.Read = read == 1
		if msgIDs != "" {
			e.MessageIDs = strings.Split(msgIDs, ",")
		}
		e.Date = time.UnixMilli(dateMs)
		snap.Entities = append(snap.Entities, e)
	}
	return snap, rows.Err()
}
