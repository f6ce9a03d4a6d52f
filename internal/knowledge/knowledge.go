// Package knowledge holds the curriculum reference text that is injected
// into prompts: per subject and class, an ordered topic list and a few
// topic summaries.
package knowledge

import (
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/pavelanni/tutor/internal/model"
)

//go:embed seed.json
var seedFS embed.FS

// maxListedTopics caps the topic list returned when nothing matches a query.
const maxListedTopics = 10

// Entry is one topic summary.
type Entry struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
}

// Section is the material for one subject and class.
type Section struct {
	Subject    string   `json:"subject"`
	ClassLevel string   `json:"class"`
	Topics     []string `json:"topics"`
	Content    []Entry  `json:"content"`
}

type sectionKey struct {
	subject    string
	classLevel string
}

// Base is safe for concurrent use. Reads vastly outnumber writes, which
// only happen through AddContent.
type Base struct {
	mu       sync.RWMutex
	sections map[sectionKey]*Section
}

// New returns an empty knowledge base.
func New() *Base {
	return &Base{sections: make(map[sectionKey]*Section)}
}

// NewSeeded returns a knowledge base loaded with the built-in sample
// curriculum.
func NewSeeded() (*Base, error) {
	data, err := seedFS.ReadFile("seed.json")
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var sections []Section
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	b := New()
	for i := range sections {
		s := sections[i]
		b.sections[sectionKey{s.Subject, s.ClassLevel}] = &s
	}
	return b, nil
}

// RelevantContent returns every topic summary whose topic or text contains
// any word of the query, formatted as "Topic: T\nContent: C" blocks joined
// by a blank line. When nothing matches it lists the first ten topics.
func (b *Base) RelevantContent(query, subject, classLevel string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var topics []string
	var content []Entry
	if s, ok := b.sections[sectionKey{subject, classLevel}]; ok {
		topics, content = s.Topics, s.Content
	}

	words := strings.Fields(strings.ToLower(query))
	var blocks []string
	for _, e := range content {
		topic, text := strings.ToLower(e.Topic), strings.ToLower(e.Content)
		if slices.ContainsFunc(words, func(w string) bool {
			return strings.Contains(topic, w) || strings.Contains(text, w)
		}) {
			blocks = append(blocks, "Topic: "+e.Topic+"\nContent: "+e.Content)
		}
	}

	if len(blocks) == 0 {
		listed := topics[:min(len(topics), maxListedTopics)]
		return fmt.Sprintf("Available topics in %s %s: %s", subject, classLevel, strings.Join(listed, ", "))
	}
	return strings.Join(blocks, "\n\n")
}

// Topics returns the ordered topic list, or nil for an unknown pair.
func (b *Base) Topics(subject, classLevel string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.sections[sectionKey{subject, classLevel}]
	if !ok {
		return nil
	}
	return slices.Clone(s.Topics)
}

// SectionInfo names one subject and class with its topic count.
type SectionInfo struct {
	Subject    string `json:"subject"`
	ClassLevel string `json:"class"`
	Topics     int    `json:"topics"`
}

// Sections lists every subject and class, sorted by subject then class.
func (b *Base) Sections() []SectionInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]SectionInfo, 0, len(b.sections))
	for _, s := range b.sections {
		out = append(out, SectionInfo{Subject: s.Subject, ClassLevel: s.ClassLevel, Topics: len(s.Topics)})
	}
	slices.SortFunc(out, func(a, b SectionInfo) int {
		if c := strings.Compare(a.Subject, b.Subject); c != 0 {
			return c
		}
		return classOrder(a.ClassLevel) - classOrder(b.ClassLevel)
	})
	return out
}

// classOrder sorts known classes numerically and unknown ones last.
func classOrder(c string) int {
	if i := slices.Index(model.Classes, c); i >= 0 {
		return i
	}
	return len(model.Classes)
}

// AddContent records a topic summary, creating the subject and class as
// needed. The topic is appended to the topic list if absent and an existing
// summary for it is replaced in place.
func (b *Base) AddContent(subject, classLevel, topic, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := sectionKey{subject, classLevel}
	s, ok := b.sections[key]
	if !ok {
		s = &Section{Subject: subject, ClassLevel: classLevel}
		b.sections[key] = s
	}
	if !slices.Contains(s.Topics, topic) {
		s.Topics = append(s.Topics, topic)
	}
	if i := slices.IndexFunc(s.Content, func(e Entry) bool { return e.Topic == topic }); i >= 0 {
		s.Content[i].Content = content
		return
	}
	s.Content = append(s.Content, Entry{Topic: topic, Content: content})
}

// Import applies a batch of additions in order.
func (b *Base) Import(items []model.KnowledgeImport) {
	for _, it := range items {
		b.AddContent(it.Subject, it.ClassLevel, it.Topic, it.Content)
	}
}

// SuggestTopics ranks topics of a subject and class against a partial
// query, closest first. An empty query returns the first topics in order.
func (b *Base) SuggestTopics(subject, classLevel, query string, limit int) []string {
	topics := b.Topics(subject, classLevel)
	if limit <= 0 {
		limit = maxListedTopics
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return topics[:min(len(topics), limit)]
	}

	ranks := fuzzy.RankFindNormalizedFold(query, topics)
	sort.Sort(ranks)
	out := make([]string, 0, min(len(ranks), limit))
	for _, r := range ranks {
		if len(out) == limit {
			break
		}
		out = append(out, r.Target)
	}
	return out
}

// ParseImport decodes a JSON array of knowledge additions and rejects
// entries with blank fields.
func ParseImport(data []byte) ([]model.KnowledgeImport, error) {
	var items []model.KnowledgeImport
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse knowledge file: %w", err)
	}
	for i, it := range items {
		if err := ValidateImport(it); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return items, nil
}

// ValidateImport checks that every field of an addition is present.
func ValidateImport(it model.KnowledgeImport) error {
	switch {
	case strings.TrimSpace(it.Subject) == "":
		return fmt.Errorf("subject is required")
	case strings.TrimSpace(it.ClassLevel) == "":
		return fmt.Errorf("class is required")
	case strings.TrimSpace(it.Topic) == "":
		return fmt.Errorf("topic is required")
	case strings.TrimSpace(it.Content) == "":
		return fmt.Errorf("content is required")
	}
	return nil
}
