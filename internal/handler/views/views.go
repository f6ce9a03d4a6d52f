// Package views renders the tutor's HTML pages as templ components.
package views

import (
	"context"
	"fmt"
	"strconv"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/tutor/internal/i18n"
	"github.com/pavelanni/tutor/internal/memory"
	"github.com/pavelanni/tutor/internal/model"
	"github.com/pavelanni/tutor/internal/quiz"
)

// IndexData is everything the main tutoring page shows.
type IndexData struct {
	Mode         model.Mode
	ClassLevel   string
	Subject      string
	Input        string
	Output       string
	Quiz         *model.Quiz
	QuizResult   *model.QuizResult
	Topics       []string
	HistoryCount int
	Model        string
}

var navModes = []model.Mode{model.ModeAsk, model.ModeExplain, model.ModeHomework, model.ModeQuiz}

func link(ctx context.Context, path string) templ.SafeURL {
	return templ.SafeURL(model.BasePathFromContext(ctx) + path)
}

func modeLink(ctx context.Context, m model.Mode) templ.SafeURL {
	return link(ctx, "/?mode="+string(m))
}

func langLink(lang string) templ.SafeURL {
	return templ.SafeURL("?lang=" + lang)
}

func modeLabel(m model.Mode) string {
	switch m {
	case model.ModeExplain:
		return "ModeExplain"
	case model.ModeHomework:
		return "ModeHomework"
	case model.ModeQuiz:
		return "ModeQuiz"
	default:
		return "ModeAsk"
	}
}

func modeTitle(ctx context.Context, m model.Mode) string {
	return appI18n.T(ctx, modeLabel(m))
}

func strs[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func modelLine(ctx context.Context, name string) string {
	return appI18n.Td(ctx, "ModelLine", map[string]any{"Model": name})
}

func scoreLine(ctx context.Context, res model.QuizResult) string {
	return appI18n.Td(ctx, "ScoreLine", map[string]any{
		"Score":      res.Score,
		"Total":      res.Total,
		"Percentage": fmt.Sprintf("%.1f", res.Percentage),
	})
}

func answerText(ctx context.Context, answer string) string {
	if answer == "" {
		return appI18n.T(ctx, "NoAnswer")
	}
	return answer
}

func answerName(i int) string { return "answer_" + strconv.Itoa(i) }

func entryMeta(e model.ConversationEntry) string {
	return fmt.Sprintf("%s %s · %s", e.ClassLevel, e.Subject, e.Timestamp.Format("2006-01-02 15:04"))
}

func isTrueFalse(q model.Quiz) bool { return q.QuestionType == model.QuestionTrueFalse }

type count struct {
	Label string
	N     string
}

// counts lists known labels in display order, then any others.
func counts(known []string, m map[string]int) []count {
	out := make([]count, 0, len(m))
	seen := make(map[string]bool, len(known))
	for _, k := range known {
		seen[k] = true
		if n, ok := m[k]; ok {
			out = append(out, count{k, strconv.Itoa(n)})
		}
	}
	for k, n := range m {
		if !seen[k] {
			out = append(out, count{k, strconv.Itoa(n)})
		}
	}
	return out
}

func totalConversations(s memory.Statistics) string { return strconv.Itoa(s.TotalConversations) }

func numberInput(n int) string { return strconv.Itoa(n) }

var (
	minQuestions     = numberInput(quiz.MinQuestions)
	maxQuestions     = numberInput(quiz.MaxQuestions)
	defaultQuestions = numberInput(quiz.DefaultQuestions)
)
