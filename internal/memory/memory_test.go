package memory

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEvictsOldestFirst(t *testing.T) {
	m := New(3)
	for i := 1; i <= 5; i++ {
		m.Add(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), "Science", "Class 6", nil)
		assert.LessOrEqual(t, m.Len(), 3)
	}

	hist := m.History(0)
	require.Len(t, hist, 3)
	assert.Equal(t, "q3", hist[0].Question)
	assert.Equal(t, "q4", hist[1].Question)
	assert.Equal(t, "q5", hist[2].Question)
}

func TestNewDefaultsBound(t *testing.T) {
	assert.Equal(t, DefaultMaxConversations, New(0).Max())
	assert.Equal(t, DefaultMaxConversations, New(-4).Max())
	assert.Equal(t, 7, New(7).Max())
}

func TestAddStampsTime(t *testing.T) {
	m := New(5)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.Add("q", "a", "", "", map[string]any{"mode": "ask"})
	hist := m.History(0)
	require.Len(t, hist, 1)
	assert.Equal(t, fixed, hist[0].Timestamp)
	assert.Equal(t, "ask", hist[0].Metadata["mode"])

	data, err := json.Marshal(hist[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp":"2025-01-02T03:04:05Z"`)
}

func TestHistoryLimitAndCopy(t *testing.T) {
	m := New(10)
	m.Add("q1", "a1", "Math", "Class 6", map[string]any{"k": "v"})
	m.Add("q2", "a2", "Math", "Class 6", nil)
	m.Add("q3", "a3", "Math", "Class 6", nil)

	last2 := m.History(2)
	require.Len(t, last2, 2)
	assert.Equal(t, "q2", last2[0].Question)
	assert.Equal(t, "q3", last2[1].Question)

	assert.Len(t, m.History(100), 3)

	all := m.History(0)
	all[0].Question = "mutated"
	all[0].Metadata["k"] = "mutated"
	all = append(all[:0], all[1:]...)
	_ = all

	fresh := m.History(0)
	require.Len(t, fresh, 3)
	assert.Equal(t, "q1", fresh[0].Question)
	assert.Equal(t, "v", fresh[0].Metadata["k"])
}

func TestContextForEmptyMemory(t *testing.T) {
	m := New(5)
	for _, q := range []string{"", "What is photosynthesis", "anything at all"} {
		assert.Empty(t, m.ContextFor(q, 3))
	}
}

func TestContextForRelated(t *testing.T) {
	m := New(5)
	m.Add("Explain photosynthesis process in plants", "Plants make food.", "Science", "Class 6", nil)

	got := m.ContextFor("What is photosynthesis", 3)
	assert.Equal(t, "Previous Q: Explain photosynthesis process in plants\nPrevious A: Plants make food.", got)
}

func TestContextForOnlyRecentEntries(t *testing.T) {
	m := New(10)
	m.Add("photosynthesis in leaves", "old answer", "Science", "Class 6", nil)
	m.Add("rational numbers", "x", "Mathematics", "Class 7", nil)
	m.Add("integers on number line", "y", "Mathematics", "Class 6", nil)
	m.Add("fractions and decimals", "z", "Mathematics", "Class 7", nil)

	assert.Empty(t, m.ContextFor("photosynthesis", 3))
	assert.Contains(t, m.ContextFor("photosynthesis", 4), "old answer")
	// Non-positive window falls back to the default of three.
	assert.Empty(t, m.ContextFor("photosynthesis", 0))
}

func TestContextForJoinsInStoredOrder(t *testing.T) {
	m := New(10)
	m.Add("acids and bases", "first", "Science", "Class 10", nil)
	m.Add("bases and salts", "second", "Science", "Class 10", nil)

	got := m.ContextFor("bases", 3)
	assert.Equal(t, "Previous Q: acids and bases\nPrevious A: first\n\nPrevious Q: bases and salts\nPrevious A: second", got)
}

func TestRelated(t *testing.T) {
	tests := []struct {
		name    string
		prev    string
		current string
		want    bool
	}{
		{"single overlap short question", "Explain photosynthesis process in plants", "What is photosynthesis", true},
		{"two overlaps long question", "water cycle and evaporation", "describe the water cycle steps in detail please", true},
		{"one overlap long question", "water cycle", "describe water movement through the ocean floor", false},
		{"only stop words shared", "what is the answer", "what is the question", false},
		{"case insensitive", "PHOTOSYNTHESIS", "photosynthesis", true},
		{"no overlap", "fractions", "mauryan empire", false},
		{"empty current", "fractions", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Related(tt.prev, tt.current))
		})
	}
}

func TestBySubjectAndClass(t *testing.T) {
	m := New(20)
	for i := 0; i < 12; i++ {
		m.Add(fmt.Sprintf("math %d", i), "a", "Mathematics", "Class 7", nil)
	}
	m.Add("sci", "a", "Science", "Class 6", nil)

	math := m.BySubject("mathematics", DefaultFilterLimit)
	require.Len(t, math, 10)
	assert.Equal(t, "math 2", math[0].Question)
	assert.Equal(t, "math 11", math[9].Question)

	assert.Len(t, m.BySubject("MATHEMATICS", 0), 12)
	assert.Len(t, m.BySubject("Science", 10), 1)
	assert.Empty(t, m.BySubject("Hindi", 10))

	assert.Len(t, m.ByClass("Class 6", 10), 1)
	assert.Empty(t, m.ByClass("class 6", 10), "class filter is exact")
	assert.Len(t, m.ByClass("Class 7", 3), 3)
}

func TestSearch(t *testing.T) {
	m := New(20)
	m.Add("What is a Fraction?", "A part of a whole.", "Mathematics", "Class 6", nil)
	m.Add("Integers", "Whole numbers and negatives, not fractions.", "Mathematics", "Class 6", nil)
	m.Add("Water cycle", "Evaporation and rain.", "Science", "Class 6", nil)

	got := m.Search("FRACTION", DefaultSearchLimit)
	require.Len(t, got, 2)
	assert.Equal(t, "What is a Fraction?", got[0].Question)
	assert.Equal(t, "Integers", got[1].Question)

	last := m.Search("fraction", 1)
	require.Len(t, last, 1)
	assert.Equal(t, "Integers", last[0].Question)

	assert.Empty(t, m.Search("photosynthesis", 5))
}

func TestStatisticsEmpty(t *testing.T) {
	m := New(5)
	stats := m.Statistics()
	assert.Equal(t, Statistics{}, stats)

	data, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_conversations":0}`, string(data))
}

func TestStatisticsMostActive(t *testing.T) {
	m := New(10)
	m.Add("q1", "a", "Math", "Class 6", nil)
	m.Add("q2", "a", "Math", "Class 7", nil)
	m.Add("q3", "a", "Science", "Class 7", nil)

	stats := m.Statistics()
	assert.Equal(t, 3, stats.TotalConversations)
	assert.Equal(t, "Math", stats.MostActiveSubject)
	assert.Equal(t, "Class 7", stats.MostActiveClass)
	assert.Equal(t, map[string]int{"Math": 2, "Science": 1}, stats.SubjectsUsed)
	assert.Equal(t, map[string]int{"Class 6": 1, "Class 7": 2}, stats.ClassesUsed)
}

func TestStatisticsUnknownAndTies(t *testing.T) {
	m := New(10)
	m.Add("q1", "a", "", "", nil)
	m.Add("q2", "a", "Science", "Class 6", nil)

	stats := m.Statistics()
	assert.Equal(t, map[string]int{"Unknown": 1, "Science": 1}, stats.SubjectsUsed)
	// Tie: the first label encountered wins.
	assert.Equal(t, "Unknown", stats.MostActiveSubject)
	assert.Equal(t, "Unknown", stats.MostActiveClass)
}

func TestClear(t *testing.T) {
	m := New(5)
	m.Add("q", "a", "Math", "Class 6", nil)
	m.Add("q2", "a2", "Math", "Class 6", nil)
	m.Clear()

	assert.Empty(t, m.History(0))
	assert.Equal(t, 0, m.Statistics().TotalConversations)
	m.Clear()
	assert.Empty(t, m.History(0))
}
