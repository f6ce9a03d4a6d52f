package views

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/tutor/internal/i18n"
	"github.com/pavelanni/tutor/internal/model"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n init: %v", err)
	}
	ctx := model.ContextWithCSRFToken(context.Background(), "tok")
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestQuizFormOptions(t *testing.T) {
	q := model.Quiz{
		QuestionType: model.QuestionMultipleChoice,
		Questions: []model.QuizQuestion{
			{Question: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswer: "B"},
		},
	}
	got := render(t, QuizForm(q))

	for _, want := range []string{
		`<input type="radio" name="answer_0" value="A"> A) 3</label>`,
		`<input type="radio" name="answer_0" value="B"> B) 4</label>`,
		`name="csrf_token" value="tok"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %s in\n%s", want, got)
		}
	}
	if strings.Contains(got, `value="4"`) {
		t.Error("options should not submit their text")
	}
}

func TestQuizFormTrueFalseAndShortAnswer(t *testing.T) {
	tf := render(t, QuizForm(model.Quiz{
		QuestionType: model.QuestionTrueFalse,
		Questions:    []model.QuizQuestion{{Question: "The Sun is a star.", CorrectAnswer: "True"}},
	}))
	if !strings.Contains(tf, `value="True"`) || !strings.Contains(tf, `value="False"`) {
		t.Errorf("true/false radios missing:\n%s", tf)
	}

	sa := render(t, QuizForm(model.Quiz{
		QuestionType: model.QuestionShortAnswer,
		Questions:    []model.QuizQuestion{{Question: "Name a gas.", CorrectAnswer: "Oxygen"}},
	}))
	if !strings.Contains(sa, `<input name="answer_0">`) {
		t.Errorf("text input missing:\n%s", sa)
	}
}

func TestQuizFormError(t *testing.T) {
	got := render(t, QuizForm(model.Quiz{Error: "model unavailable"}))
	if !strings.Contains(got, `<p class="error">model unavailable</p>`) {
		t.Errorf("error line missing:\n%s", got)
	}
	if strings.Contains(got, "<form") {
		t.Error("no form without questions")
	}
}

func TestReplyEscapes(t *testing.T) {
	got := render(t, Reply("<script>alert(1)</script>", "gemini-2.0-flash"))
	if strings.Contains(got, "<script>") {
		t.Errorf("reply not escaped:\n%s", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") || !strings.Contains(got, "Answered by gemini-2.0-flash") {
		t.Errorf("unexpected reply:\n%s", got)
	}
}

func TestSelectOptions(t *testing.T) {
	got := render(t, selectOptions([]string{"Class 6", "Class 7"}, "Class 7"))
	want := `<option value="Class 6">Class 6</option><option value="Class 7" selected>Class 7</option>`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCounts(t *testing.T) {
	got := counts([]string{"Mathematics", "Science"}, map[string]int{"Science": 2, "Unknown": 1})
	if len(got) != 2 || got[0] != (count{"Science", "2"}) || got[1] != (count{"Unknown", "1"}) {
		t.Errorf("counts = %v", got)
	}
}
