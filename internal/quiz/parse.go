// Package quiz turns free-text quiz replies from the model into structured
// questions and scores a student's answers against them.
package quiz

import (
	"log/slog"
	"strings"

	"github.com/pavelanni/tutor/internal/model"
)

const (
	questionMarker = "Question "
	answerMarker   = "Correct Answer:"

	// ParseFailedMessage tags the placeholder quiz returned when a reply
	// cannot be parsed.
	ParseFailedMessage = "Quiz parsing failed, showing sample question"
)

var optionPrefixes = []string{"A)", "B)", "C)", "D)"}

// Parse scans the model's reply line by line. It is a best-effort heuristic
// over prose, not a grammar: only the first line of a question body is kept,
// and option markers are only recognised at the start of a line. When no
// question is found the placeholder from Fallback is returned instead.
func Parse(text string, qtype model.QuestionType) (quiz model.Quiz) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("quiz parse panic", "panic", r)
			quiz = Fallback(qtype)
		}
	}()

	var (
		questions []model.QuizQuestion
		current   *model.QuizQuestion
	)
	flush := func() {
		if current != nil {
			questions = append(questions, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, questionMarker):
			flush()
			body := line
			if _, after, found := strings.Cut(line, ":"); found {
				body = strings.TrimSpace(after)
			}
			current = &model.QuizQuestion{Question: body}
			if qtype == model.QuestionMultipleChoice {
				current.Options = []string{}
			}

		case qtype == model.QuestionMultipleChoice && hasOptionPrefix(line):
			if current == nil {
				current = &model.QuizQuestion{}
			}
			current.Options = append(current.Options, strings.TrimSpace(line[2:]))

		case strings.HasPrefix(line, answerMarker):
			if current == nil {
				current = &model.QuizQuestion{}
			}
			current.CorrectAnswer = strings.TrimSpace(strings.TrimPrefix(line, answerMarker))
		}
	}
	flush()

	if len(questions) == 0 {
		slog.Warn("quiz reply contained no questions", "type", qtype, "length", len(text))
		return Fallback(qtype)
	}

	return model.Quiz{
		Questions:      questions,
		TotalQuestions: len(questions),
		QuestionType:   qtype,
	}
}

// OptionLabel returns the letter of option i as it appears in a reply, or
// "" when i is out of range.
func OptionLabel(i int) string {
	if i < 0 || i >= len(optionPrefixes) {
		return ""
	}
	return optionPrefixes[i][:1]
}

func hasOptionPrefix(line string) bool {
	for _, p := range optionPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// Fallback is the single placeholder question shown when a reply could not
// be parsed. Its Error field is always set.
func Fallback(qtype model.QuestionType) model.Quiz {
	q := model.QuizQuestion{
		Question:      "Sample question about the topic",
		CorrectAnswer: "True",
	}
	if qtype == model.QuestionMultipleChoice {
		q.Options = []string{"Option A", "Option B", "Option C", "Option D"}
		q.CorrectAnswer = "Option A"
	}
	return model.Quiz{
		Questions:      []model.QuizQuestion{q},
		TotalQuestions: 1,
		QuestionType:   qtype,
		Error:          ParseFailedMessage,
	}
}
