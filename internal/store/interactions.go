package store

import (
	"context"
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

// LogInteraction appends one tutoring turn to the interaction log.
func (s *Store) LogInteraction(ctx context.Context, in model.Interaction) error {
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (session_id, mode, subject, class_level, input, output, model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.SessionID, in.Mode, in.Subject, in.ClassLevel, in.Input, in.Output, in.Model, in.CreatedAt.UTC(),
	)
	return err
}

// ListInteractions returns logged turns in chronological order. A nil
// since returns the whole log.
func (s *Store) ListInteractions(since *time.Time) ([]model.Interaction, error) {
	query := `SELECT id, session_id, mode, subject, class_level, input, output, model, created_at
		 FROM interactions`
	var args []any
	if since != nil {
		query += ` WHERE created_at >= ?`
		args = append(args, since.UTC())
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []model.Interaction
	for rows.Next() {
		var in model.Interaction
		if err := rows.Scan(&in.ID, &in.SessionID, &in.Mode, &in.Subject, &in.ClassLevel,
			&in.Input, &in.Output, &in.Model, &in.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, in)
	}
	return list, rows.Err()
}

// InteractionCount returns the number of logged turns.
func (s *Store) InteractionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM interactions`).Scan(&count)
	return count, err
}
