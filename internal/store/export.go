package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

// ExportInteractions builds an export-ready snapshot of the interaction log.
func (s *Store) ExportInteractions(since *time.Time) (model.InteractionExport, error) {
	list, err := s.ListInteractions(since)
	if err != nil {
		return model.InteractionExport{}, fmt.Errorf("list interactions: %w", err)
	}

	out := model.InteractionExport{
		ExportedAt:   time.Now().UTC(),
		Since:        since,
		Count:        len(list),
		ModeCounts:   make(map[model.Mode]int),
		Interactions: make([]model.InteractionEntry, 0, len(list)),
	}
	sessions := make(map[string]struct{})
	for _, in := range list {
		sessions[in.SessionID] = struct{}{}
		out.ModeCounts[in.Mode]++
		out.Interactions = append(out.Interactions, model.InteractionEntry{
			SessionID:  in.SessionID,
			Mode:       in.Mode,
			Subject:    in.Subject,
			ClassLevel: in.ClassLevel,
			Input:      in.Input,
			Output:     in.Output,
			Model:      in.Model,
			At:         in.CreatedAt,
		})
	}
	out.Sessions = len(sessions)
	return out, nil
}
