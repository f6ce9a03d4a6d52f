// Package memory keeps a bounded, insertion-ordered log of question/answer
// pairs for one tutoring session.
package memory

import (
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/pavelanni/tutor/internal/model"
)

const (
	// DefaultMaxConversations is the capacity used when none is given.
	DefaultMaxConversations = 50
	// DefaultContextSize is how many recent entries ContextFor inspects.
	DefaultContextSize = 3
	// DefaultFilterLimit is the result cap for BySubject and ByClass.
	DefaultFilterLimit = 10
	// DefaultSearchLimit is the result cap for Search.
	DefaultSearchLimit = 5

	unknownLabel = "Unknown"
)

// stopWords are dropped before comparing questions for relatedness.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "what": {}, "how": {}, "why": {}, "when": {}, "where": {},
}

// Memory is a FIFO-bounded conversation log. It is safe for concurrent use;
// every method takes the lock so turns of one session serialize.
type Memory struct {
	mu      sync.Mutex
	entries []model.ConversationEntry
	max     int
	now     func() time.Time
}

// New creates a Memory holding at most maxConversations entries.
// A non-positive bound falls back to DefaultMaxConversations.
func New(maxConversations int) *Memory {
	if maxConversations <= 0 {
		maxConversations = DefaultMaxConversations
	}
	return &Memory{max: maxConversations, now: time.Now}
}

// Add records a question/answer pair, evicting the oldest entries when the
// log would exceed its bound.
func (m *Memory) Add(question, answer, subject, classLevel string, metadata map[string]any) {
	md := make(map[string]any, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, model.ConversationEntry{
		Timestamp:  m.now(),
		Question:   question,
		Answer:     answer,
		Subject:    subject,
		ClassLevel: classLevel,
		Metadata:   md,
	})
	if over := len(m.entries) - m.max; over > 0 {
		m.entries = append([]model.ConversationEntry(nil), m.entries[over:]...)
	}
}

// History returns the most recent limit entries, oldest first. A
// non-positive limit returns everything. The result is a copy.
func (m *Memory) History(limit int) []model.ConversationEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lastN(m.entries, limit)
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Max returns the capacity bound.
func (m *Memory) Max() int {
	return m.max
}

// ContextFor formats the recent entries related to question as
// "Previous Q/Previous A" blocks. Only the last maxContext entries are
// considered; a non-positive maxContext means DefaultContextSize.
func (m *Memory) ContextFor(question string, maxContext int) string {
	if maxContext <= 0 {
		maxContext = DefaultContextSize
	}

	m.mu.Lock()
	recent := lastN(m.entries, maxContext)
	m.mu.Unlock()

	var parts []string
	for _, e := range recent {
		if Related(e.Question, question) {
			parts = append(parts, "Previous Q: "+e.Question+"\nPrevious A: "+e.Answer)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Related reports whether prev and current share enough non-stop-word tokens.
// This is a crude bag-of-words overlap test, not semantic matching: two
// shared tokens always count, one shared token counts only when the current
// question has at most three meaningful tokens.
func Related(prev, current string) bool {
	prevWords := contentWords(prev)
	currentWords := contentWords(current)

	shared := 0
	for w := range currentWords {
		if _, ok := prevWords[w]; ok {
			shared++
		}
	}
	return shared >= 2 || (shared >= 1 && len(currentWords) <= 3)
}

func contentWords(s string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		words[w] = struct{}{}
	}
	return words
}

// BySubject returns up to the last limit entries whose subject matches,
// ignoring case. A non-positive limit returns every match.
func (m *Memory) BySubject(subject string, limit int) []model.ConversationEntry {
	return m.filter(limit, func(e model.ConversationEntry) bool {
		return strings.EqualFold(e.Subject, subject)
	})
}

// ByClass returns up to the last limit entries whose class level matches
// exactly. A non-positive limit returns every match.
func (m *Memory) ByClass(classLevel string, limit int) []model.ConversationEntry {
	return m.filter(limit, func(e model.ConversationEntry) bool {
		return e.ClassLevel == classLevel
	})
}

// Search returns up to the last limit entries whose question or answer
// contains query, ignoring case. A non-positive limit returns every match.
func (m *Memory) Search(query string, limit int) []model.ConversationEntry {
	q := strings.ToLower(query)
	return m.filter(limit, func(e model.ConversationEntry) bool {
		return strings.Contains(strings.ToLower(e.Question), q) ||
			strings.Contains(strings.ToLower(e.Answer), q)
	})
}

func (m *Memory) filter(limit int, keep func(model.ConversationEntry) bool) []model.ConversationEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	matches := lo.Filter(m.entries, func(e model.ConversationEntry, _ int) bool {
		return keep(e)
	})
	return lastN(matches, limit)
}

// Clear drops every entry.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
}

// Statistics summarises usage. An empty memory yields only the total.
type Statistics struct {
	TotalConversations int            `json:"total_conversations"`
	SubjectsUsed       map[string]int `json:"subjects_used,omitempty"`
	ClassesUsed        map[string]int `json:"classes_used,omitempty"`
	MostActiveSubject  string         `json:"most_active_subject,omitempty"`
	MostActiveClass    string         `json:"most_active_class,omitempty"`
}

// Statistics counts entries per subject and class. Entries without a label
// are counted as "Unknown". Ties for most active go to the label seen first.
func (m *Memory) Statistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Statistics{TotalConversations: len(m.entries)}
	if len(m.entries) == 0 {
		return stats
	}

	subjects := lo.Map(m.entries, func(e model.ConversationEntry, _ int) string {
		return labelOrUnknown(e.Subject)
	})
	classes := lo.Map(m.entries, func(e model.ConversationEntry, _ int) string {
		return labelOrUnknown(e.ClassLevel)
	})

	stats.SubjectsUsed = lo.CountValues(subjects)
	stats.ClassesUsed = lo.CountValues(classes)
	stats.MostActiveSubject = mostFrequent(lo.Uniq(subjects), stats.SubjectsUsed)
	stats.MostActiveClass = mostFrequent(lo.Uniq(classes), stats.ClassesUsed)
	return stats
}

func labelOrUnknown(s string) string {
	if s == "" {
		return unknownLabel
	}
	return s
}

// mostFrequent returns the first key in order with the highest count.
func mostFrequent(order []string, counts map[string]int) string {
	best, bestCount := "", -1
	for _, k := range order {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best
}

// lastN copies the trailing n elements of s (all of s when n <= 0).
func lastN(s []model.ConversationEntry, n int) []model.ConversationEntry {
	if n > 0 && n < len(s) {
		s = s[len(s)-n:]
	}
	out := make([]model.ConversationEntry, len(s))
	for i, e := range s {
		e.Metadata = maps.Clone(e.Metadata)
		out[i] = e
	}
	return out
}
