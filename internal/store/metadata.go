package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

const sessionKeyName = "session_signing_key"

// SetMetadata upserts a key-value pair in the app_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO app_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM app_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SessionKey returns the persisted cookie signing key, generating and
// storing a random one on first use so cookies survive restarts.
func (s *Store) SessionKey() ([]byte, error) {
	v, err := s.GetMetadata(sessionKeyName)
	if err != nil {
		return nil, err
	}
	if v != "" {
		return hex.DecodeString(v)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	if err := s.SetMetadata(sessionKeyName, hex.EncodeToString(key)); err != nil {
		return nil, err
	}
	return key, nil
}
