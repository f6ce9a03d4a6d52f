package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

// UpsertAdmin creates an admin or replaces its password hash.
func (s *Store) UpsertAdmin(username, passwordHash string) error {
	_, err := s.db.Exec(
		`INSERT INTO admins (username, password_hash, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(username) DO UPDATE SET password_hash = excluded.password_hash`,
		username, passwordHash, time.Now(),
	)
	if err != nil {
		slog.Error("failed to save admin", "username", username, "error", err)
		return err
	}
	slog.Info("saved admin", "username", username)
	return nil
}

// GetAdmin returns an admin by username, or nil if there is none.
func (s *Store) GetAdmin(username string) (*model.Admin, error) {
	var a model.Admin
	err := s.db.QueryRow(
		`SELECT id, username, password_hash, created_at FROM admins WHERE username = ?`, username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AdminCount returns the number of admin accounts.
func (s *Store) AdminCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM admins`).Scan(&count)
	return count, err
}
