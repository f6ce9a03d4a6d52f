package store

import (
	"context"
	"testing"
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func logTestInteraction(t *testing.T, s *Store, session string, mode model.Mode, at time.Time) {
	t.Helper()
	err := s.LogInteraction(context.Background(), model.Interaction{
		SessionID:  session,
		Mode:       mode,
		Subject:    "Science",
		ClassLevel: "Class 6",
		Input:      "input for " + string(mode),
		Output:     "output for " + string(mode),
		Model:      "mock",
		CreatedAt:  at,
	})
	if err != nil {
		t.Fatalf("LogInteraction: %v", err)
	}
}

func TestInteractionLog(t *testing.T) {
	s := newTestStore(t)

	count, err := s.InteractionCount()
	if err != nil {
		t.Fatalf("InteractionCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 interactions, got %d", count)
	}

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	logTestInteraction(t, s, "s1", model.ModeAsk, base)
	logTestInteraction(t, s, "s1", model.ModeQuiz, base.Add(time.Minute))
	logTestInteraction(t, s, "s2", model.ModeAsk, base.Add(2*time.Minute))

	list, err := s.ListInteractions(nil)
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 interactions, got %d", len(list))
	}
	if list[0].Mode != model.ModeAsk || list[1].Mode != model.ModeQuiz {
		t.Errorf("unexpected order: %q, %q", list[0].Mode, list[1].Mode)
	}
	if list[0].Input != "input for ask" || list[0].Model != "mock" {
		t.Errorf("fields not round-tripped: %+v", list[0])
	}

	since := base.Add(90 * time.Second)
	recent, err := s.ListInteractions(&since)
	if err != nil {
		t.Fatalf("ListInteractions(since): %v", err)
	}
	if len(recent) != 1 || recent[0].SessionID != "s2" {
		t.Errorf("expected only s2 after %v, got %+v", since, recent)
	}
}

func TestLogInteractionDefaultsTimestamp(t *testing.T) {
	s := newTestStore(t)
	err := s.LogInteraction(context.Background(), model.Interaction{
		SessionID: "s1", Mode: model.ModeExplain, Input: "i", Output: "o",
	})
	if err != nil {
		t.Fatalf("LogInteraction: %v", err)
	}
	list, _ := s.ListInteractions(nil)
	if len(list) != 1 || list[0].CreatedAt.IsZero() {
		t.Errorf("expected a timestamp, got %+v", list)
	}
}

func TestExportInteractions(t *testing.T) {
	s := newTestStore(t)

	empty, err := s.ExportInteractions(nil)
	if err != nil {
		t.Fatalf("ExportInteractions: %v", err)
	}
	if empty.Count != 0 || empty.Interactions == nil {
		t.Errorf("empty export should have a non-nil empty list, got %+v", empty)
	}

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	logTestInteraction(t, s, "s1", model.ModeAsk, base)
	logTestInteraction(t, s, "s1", model.ModeAsk, base.Add(time.Minute))
	logTestInteraction(t, s, "s2", model.ModeHomework, base.Add(2*time.Minute))

	exp, err := s.ExportInteractions(nil)
	if err != nil {
		t.Fatalf("ExportInteractions: %v", err)
	}
	if exp.Count != 3 {
		t.Errorf("Count = %d, want 3", exp.Count)
	}
	if exp.Sessions != 2 {
		t.Errorf("Sessions = %d, want 2", exp.Sessions)
	}
	if exp.ModeCounts[model.ModeAsk] != 2 || exp.ModeCounts[model.ModeHomework] != 1 {
		t.Errorf("ModeCounts = %v", exp.ModeCounts)
	}
	if exp.Interactions[2].SessionID != "s2" {
		t.Errorf("last entry = %+v", exp.Interactions[2])
	}
}

func TestKnowledgeRoundTrip(t *testing.T) {
	s := newTestStore(t)

	item := model.KnowledgeImport{Subject: "Science", ClassLevel: "Class 6", Topic: "Magnets", Content: "Like poles repel."}
	if err := s.SaveKnowledge(item, "admin"); err != nil {
		t.Fatalf("SaveKnowledge: %v", err)
	}
	item.Content = "Like poles repel. Unlike poles attract."
	if err := s.SaveKnowledge(item, "admin"); err != nil {
		t.Fatalf("SaveKnowledge: %v", err)
	}

	items, err := s.ListKnowledge()
	if err != nil {
		t.Fatalf("ListKnowledge: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(items))
	}
	if items[1].Content != "Like poles repel. Unlike poles attract." {
		t.Errorf("entries out of order: %+v", items)
	}
}

func TestImportKnowledgeFileDeduplicates(t *testing.T) {
	s := newTestStore(t)
	items := []model.KnowledgeImport{
		{Subject: "Mathematics", ClassLevel: "Class 7", Topic: "Ratios", Content: "A ratio compares two quantities."},
		{Subject: "Mathematics", ClassLevel: "Class 7", Topic: "Percent", Content: "Percent means per hundred."},
	}

	done, err := s.ImportKnowledgeFile("extra.json", "abc123", items)
	if err != nil {
		t.Fatalf("ImportKnowledgeFile: %v", err)
	}
	if !done {
		t.Fatal("first import should be applied")
	}
	imported, err := s.FileImported("abc123")
	if err != nil || !imported {
		t.Errorf("FileImported = %v, %v", imported, err)
	}

	done, err = s.ImportKnowledgeFile("renamed.json", "abc123", items)
	if err != nil {
		t.Fatalf("ImportKnowledgeFile again: %v", err)
	}
	if done {
		t.Error("same content should be skipped")
	}
	count, _ := s.KnowledgeCount()
	if count != 2 {
		t.Errorf("KnowledgeCount = %d, want 2", count)
	}

	if imported, _ := s.FileImported("other"); imported {
		t.Error("unknown hash should not be reported as imported")
	}
}

func TestAdmins(t *testing.T) {
	s := newTestStore(t)

	a, err := s.GetAdmin("root")
	if err != nil {
		t.Fatalf("GetAdmin: %v", err)
	}
	if a != nil {
		t.Fatal("expected nil for missing admin")
	}

	if err := s.UpsertAdmin("root", "hash-1"); err != nil {
		t.Fatalf("UpsertAdmin: %v", err)
	}
	if err := s.UpsertAdmin("root", "hash-2"); err != nil {
		t.Fatalf("UpsertAdmin again: %v", err)
	}
	a, err = s.GetAdmin("root")
	if err != nil || a == nil {
		t.Fatalf("GetAdmin: %v, %v", a, err)
	}
	if a.PasswordHash != "hash-2" {
		t.Errorf("PasswordHash = %q, want hash-2", a.PasswordHash)
	}
	if n, _ := s.AdminCount(); n != 1 {
		t.Errorf("AdminCount = %d, want 1", n)
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetMetadata("missing")
	if err != nil || v != "" {
		t.Errorf("GetMetadata(missing) = %q, %v", v, err)
	}
	if err := s.SetMetadata("k", "v1"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := s.SetMetadata("k", "v2"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if v, _ := s.GetMetadata("k"); v != "v2" {
		t.Errorf("GetMetadata = %q, want v2", v)
	}
}

func TestSessionKeyIsStable(t *testing.T) {
	s := newTestStore(t)
	first, err := s.SessionKey()
	if err != nil {
		t.Fatalf("SessionKey: %v", err)
	}
	if len(first) != 32 {
		t.Errorf("key length = %d, want 32", len(first))
	}
	second, err := s.SessionKey()
	if err != nil {
		t.Fatalf("SessionKey: %v", err)
	}
	if string(first) != string(second) {
		t.Error("SessionKey should return the persisted key")
	}
}
