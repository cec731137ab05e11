package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/impromptu/internal/model"
)

// InsertHistory stores an entry and its topics. Missing IDs are generated.
func (s *Store) InsertHistory(ctx context.Context, entry model.HistoryEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO history_entries (id, created_at, dataset) VALUES (?, ?, ?)`,
		entry.ID,
		entry.CreatedAt.UTC().Format(timeLayout),
		entry.Dataset,
	); err != nil {
		return "", err
	}

	if len(entry.Topics) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO history_topics (entry_id, position, category, text) VALUES (?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return "", err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, topic := range entry.Topics {
			if _, err = stmt.ExecContext(ctx, entry.ID, i, topic.Category, topic.Text); err != nil {
				return "", err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// ListHistory returns entries newest first. A limit <= 0 returns everything.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	query := `SELECT id, created_at, dataset FROM history_entries ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var entries []model.HistoryEntry
	index := map[string]int{}
	for rows.Next() {
		var entry model.HistoryEntry
		var createdAt string
		if err := rows.Scan(&entry.ID, &createdAt, &entry.Dataset); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = parsed
		index[entry.ID] = len(entries)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}
	if err := s.loadTopics(ctx, entries, index); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) loadTopics(ctx context.Context, entries []model.HistoryEntry, index map[string]int) error {
	placeholders := make([]string, len(entries))
	args := make([]any, len(entries))
	for i, e := range entries {
		placeholders[i] = "?"
		args[i] = e.ID
	}
	query := fmt.Sprintf(`SELECT entry_id, category, text FROM history_topics
		WHERE entry_id IN (%s)
		ORDER BY entry_id, position`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for rows.Next() {
		var id string
		var pick model.TopicPick
		if err := rows.Scan(&id, &pick.Category, &pick.Text); err != nil {
			return err
		}
		i, ok := index[id]
		if !ok {
			continue
		}
		entries[i].Topics = append(entries[i].Topics, pick)
	}
	return rows.Err()
}

// ClearHistory deletes every history entry.
func (s *Store) ClearHistory(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM history_topics`); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM history_entries`); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// HistoryCategoryCounts counts drawn topics per category, optionally limited
// to one dataset name.
func (s *Store) HistoryCategoryCounts(ctx context.Context, dataset string) ([]model.CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.category, COUNT(*) FROM history_topics t
		 JOIN history_entries e ON e.id = t.entry_id
		 WHERE (? = '' OR e.dataset = ?)
		 GROUP BY t.category`, dataset, dataset)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	var out []model.CategoryCount
	for rows.Next() {
		var c model.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
