package knowledge

import (
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/pavelanni/tutor/internal/model"
)

func seeded(t *testing.T) *Base {
	t.Helper()
	b, err := NewSeeded()
	if err != nil {
		t.Fatalf("NewSeeded: %v", err)
	}
	return b
}

func TestRelevantContentMatch(t *testing.T) {
	b := seeded(t)

	got := b.RelevantContent("photosynthesis", "Science", "Class 6")
	want := "Topic: Photosynthesis\nContent: Photosynthesis is the process by which green plants make their own food using sunlight, carbon dioxide, and water. Chlorophyll in leaves captures sunlight energy."
	if got != want {
		t.Errorf("RelevantContent = %q, want %q", got, want)
	}
}

func TestRelevantContentMatchesOnAnyWord(t *testing.T) {
	b := seeded(t)

	// "is" occurs in both summaries, so both are returned in stored order.
	got := b.RelevantContent("What is photosynthesis", "Science", "Class 6")
	blocks := strings.Split(got, "\n\n")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d: %q", len(blocks), got)
	}
	if !strings.HasPrefix(blocks[0], "Topic: Photosynthesis\n") {
		t.Errorf("first block = %q", blocks[0])
	}
	if !strings.HasPrefix(blocks[1], "Topic: Water Cycle\n") {
		t.Errorf("second block = %q", blocks[1])
	}
}

func TestRelevantContentFallsBackToTopics(t *testing.T) {
	b := seeded(t)

	got := b.RelevantContent("quadratic", "Mathematics", "Class 6")
	want := "Available topics in Mathematics Class 6: Knowing Our Numbers, Whole Numbers, Playing with Numbers, " +
		"Basic Geometrical Ideas, Understanding Elementary Shapes, Integers, Fractions, Decimals, Data Handling, Mensuration"
	if got != want {
		t.Errorf("RelevantContent = %q, want %q", got, want)
	}
}

func TestRelevantContentUnknownSection(t *testing.T) {
	b := seeded(t)

	tests := []struct {
		subject, class string
	}{
		{"Mathematics", "Class 12"},
		{"Physics", "Class 6"},
	}
	for _, tt := range tests {
		got := b.RelevantContent("anything", tt.subject, tt.class)
		want := "Available topics in " + tt.subject + " " + tt.class + ": "
		if got != want {
			t.Errorf("RelevantContent(%s, %s) = %q, want %q", tt.subject, tt.class, got, want)
		}
	}
}

func TestRelevantContentEmptyQuery(t *testing.T) {
	b := seeded(t)
	got := b.RelevantContent("   ", "English", "Class 6")
	if !strings.HasPrefix(got, "Available topics in English Class 6: Grammar: Nouns, Pronouns, Verbs") {
		t.Errorf("unexpected fallback: %q", got)
	}
}

func TestTopics(t *testing.T) {
	b := seeded(t)

	hindi := b.Topics("Hindi", "Class 6")
	if !slices.Equal(hindi, []string{"व्याकरण", "गद्य", "पद्य", "रचना", "पत्र लेखन"}) {
		t.Errorf("Topics(Hindi) = %v", hindi)
	}
	if got := b.Topics("Hindi", "Class 9"); got != nil {
		t.Errorf("expected nil for unknown class, got %v", got)
	}

	// Returned slice is a copy.
	hindi[0] = "changed"
	if b.Topics("Hindi", "Class 6")[0] != "व्याकरण" {
		t.Error("Topics exposed internal state")
	}
}

func TestAddContent(t *testing.T) {
	b := New()

	b.AddContent("Physics", "Class 11", "Motion", "Things move.")
	if got := b.Topics("Physics", "Class 11"); !slices.Equal(got, []string{"Motion"}) {
		t.Fatalf("Topics = %v", got)
	}
	if got := b.RelevantContent("move", "Physics", "Class 11"); got != "Topic: Motion\nContent: Things move." {
		t.Errorf("RelevantContent = %q", got)
	}

	// Same topic again: content overwritten, topic not duplicated.
	b.AddContent("Physics", "Class 11", "Motion", "Objects change position.")
	b.AddContent("Physics", "Class 11", "Gravity", "Masses attract.")
	if got := b.Topics("Physics", "Class 11"); !slices.Equal(got, []string{"Motion", "Gravity"}) {
		t.Errorf("Topics = %v", got)
	}
	got := b.RelevantContent("position", "Physics", "Class 11")
	if got != "Topic: Motion\nContent: Objects change position." {
		t.Errorf("RelevantContent after overwrite = %q", got)
	}
}

func TestAddContentTopicAlreadyListed(t *testing.T) {
	b := seeded(t)
	before := len(b.Topics("Mathematics", "Class 6"))

	b.AddContent("Mathematics", "Class 6", "Decimals", "Decimals use a point to show parts of ten.")
	if after := len(b.Topics("Mathematics", "Class 6")); after != before {
		t.Errorf("topic count changed from %d to %d", before, after)
	}
	if got := b.RelevantContent("decimals", "Mathematics", "Class 6"); !strings.Contains(got, "parts of ten") {
		t.Errorf("new content not returned: %q", got)
	}
}

func TestImport(t *testing.T) {
	b := New()
	b.Import([]model.KnowledgeImport{
		{Subject: "English", ClassLevel: "Class 7", Topic: "Tenses", Content: "Past, present and future."},
		{Subject: "English", ClassLevel: "Class 7", Topic: "Voice", Content: "Active and passive."},
	})
	if got := b.Topics("English", "Class 7"); !slices.Equal(got, []string{"Tenses", "Voice"}) {
		t.Errorf("Topics = %v", got)
	}
}

func TestParseImport(t *testing.T) {
	items, err := ParseImport([]byte(`[{"subject":"Science","class":"Class 8","topic":"Cells","content":"Units of life."}]`))
	if err != nil {
		t.Fatalf("ParseImport: %v", err)
	}
	if len(items) != 1 || items[0].ClassLevel != "Class 8" || items[0].Topic != "Cells" {
		t.Errorf("unexpected items: %+v", items)
	}

	bad := []string{
		`not json`,
		`[{"subject":"Science","class":"Class 8","topic":"","content":"x"}]`,
		`[{"subject":"","class":"Class 8","topic":"t","content":"x"}]`,
	}
	for _, in := range bad {
		if _, err := ParseImport([]byte(in)); err == nil {
			t.Errorf("ParseImport(%q): expected error", in)
		}
	}
}

func TestSuggestTopics(t *testing.T) {
	b := seeded(t)

	got := b.SuggestTopics("Mathematics", "Class 6", "frac", 5)
	if len(got) == 0 || got[0] != "Fractions" {
		t.Errorf("SuggestTopics(frac) = %v, want Fractions first", got)
	}

	got = b.SuggestTopics("Mathematics", "Class 6", "INT", 5)
	if len(got) == 0 || got[0] != "Integers" {
		t.Errorf("SuggestTopics(INT) = %v, want Integers first", got)
	}

	got = b.SuggestTopics("Mathematics", "Class 6", "", 3)
	if !slices.Equal(got, []string{"Knowing Our Numbers", "Whole Numbers", "Playing with Numbers"}) {
		t.Errorf("SuggestTopics(empty) = %v", got)
	}

	if got := b.SuggestTopics("Mathematics", "Class 6", "zzzz", 5); len(got) != 0 {
		t.Errorf("expected no suggestions, got %v", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	b := seeded(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.AddContent("Science", "Class 6", "Magnets", "Magnets attract iron.")
		}()
		go func() {
			defer wg.Done()
			_ = b.RelevantContent("magnets", "Science", "Class 6")
			_ = b.SuggestTopics("Science", "Class 6", "mag", 3)
		}()
	}
	wg.Wait()

	if n := len(b.Topics("Science", "Class 6")); n != 17 {
		t.Errorf("expected 17 topics, got %d", n)
	}
}

func TestSections(t *testing.T) {
	b := seeded(t)
	b.AddContent("Science", "Class 9", "Motion", "Distance and displacement.")

	var science []SectionInfo
	for _, s := range b.Sections() {
		if s.Subject == "Science" {
			science = append(science, s)
		}
	}
	want := []SectionInfo{
		{Subject: "Science", ClassLevel: "Class 6", Topics: 16},
		{Subject: "Science", ClassLevel: "Class 9", Topics: 1},
		{Subject: "Science", ClassLevel: "Class 10", Topics: 15},
	}
	if !slices.Equal(science, want) {
		t.Errorf("Science sections = %+v, want %+v", science, want)
	}
	if got := New().Sections(); len(got) != 0 {
		t.Errorf("empty base Sections() = %v", got)
	}
}
