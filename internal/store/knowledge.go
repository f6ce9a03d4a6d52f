package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

// SaveKnowledge appends one content entry. Later entries for the same
// subject, class and topic win when replayed.
func (s *Store) SaveKnowledge(item model.KnowledgeImport, source string) error {
	_, err := s.db.Exec(
		`INSERT INTO knowledge_content (subject, class_level, topic, content, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		item.Subject, item.ClassLevel, item.Topic, item.Content, source, time.Now(),
	)
	return err
}

// ListKnowledge returns every stored entry in insertion order.
func (s *Store) ListKnowledge() ([]model.KnowledgeImport, error) {
	rows, err := s.db.Query(
		`SELECT subject, class_level, topic, content FROM knowledge_content ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.KnowledgeImport
	for rows.Next() {
		var it model.KnowledgeImport
		if err := rows.Scan(&it.Subject, &it.ClassLevel, &it.Topic, &it.Content); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// KnowledgeCount returns the number of stored entries.
func (s *Store) KnowledgeCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM knowledge_content`).Scan(&count)
	return count, err
}

// FileImported reports whether a file with the given SHA-256 was imported.
func (s *Store) FileImported(sha string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM imported_files WHERE sha256 = ?`, sha).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ImportKnowledgeFile stores all entries of one file and records its hash
// in a single transaction. It reports false when the file was already
// imported.
func (s *Store) ImportKnowledgeFile(filename, sha string, items []model.KnowledgeImport) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT OR IGNORE INTO imported_files (sha256, filename, entries, imported_at) VALUES (?, ?, ?, ?)`,
		sha, filename, len(items), time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("record import: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.Info("knowledge file already imported", "file", filename, "sha256", sha)
		return false, nil
	}

	stmt, err := tx.Prepare(
		`INSERT INTO knowledge_content (subject, class_level, topic, content, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return false, err
	}
	defer stmt.Close()
	now := time.Now()
	for _, it := range items {
		if _, err := stmt.Exec(it.Subject, it.ClassLevel, it.Topic, it.Content, filename, now); err != nil {
			return false, fmt.Errorf("insert %s/%s/%s: %w", it.Subject, it.ClassLevel, it.Topic, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	slog.Info("imported knowledge file", "file", filename, "entries", len(items))
	return true, nil
}
