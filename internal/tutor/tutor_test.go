package tutor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pavelanni/tutor/internal/knowledge"
	"github.com/pavelanni/tutor/internal/llm"
	"github.com/pavelanni/tutor/internal/memory"
	"github.com/pavelanni/tutor/internal/model"
	"github.com/pavelanni/tutor/internal/quiz"
)

type recordingLog struct {
	mu    sync.Mutex
	items []model.Interaction
	err   error
}

func (r *recordingLog) LogInteraction(_ context.Context, in model.Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, in)
	return r.err
}

func newTestService(t *testing.T, outcomes ...llm.Outcome) (*Service, *llm.MockProvider, *recordingLog) {
	t.Helper()
	mock := llm.NewMockProvider(outcomes...)
	gw := llm.NewGateway(mock, llm.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond})
	kb, err := knowledge.NewSeeded()
	if err != nil {
		t.Fatalf("NewSeeded: %v", err)
	}
	logs := &recordingLog{}
	svc, err := New(gw, kb, logs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc, mock, logs
}

func TestAskDoubtEmptyInput(t *testing.T) {
	svc, mock, logs := newTestService(t)
	mem := memory.New(10)

	for _, in := range []string{"", "   ", "\n\t"} {
		got := svc.AskDoubt(context.Background(), Request{Input: in, Memory: mem})
		if got != MsgEmptyQuestion {
			t.Errorf("AskDoubt(%q) = %q, want %q", in, got, MsgEmptyQuestion)
		}
	}
	if mock.CallCount() != 0 {
		t.Errorf("expected no model calls, got %d", mock.CallCount())
	}
	if mem.Len() != 0 || len(logs.items) != 0 {
		t.Error("blank input should not be recorded")
	}
}

func TestAskDoubtSuccess(t *testing.T) {
	svc, mock, logs := newTestService(t, llm.Success("Plants make food from sunlight."))
	mem := memory.New(10)

	got := svc.AskDoubt(context.Background(), Request{
		SessionID:  "s1",
		Subject:    "Science",
		ClassLevel: "Class 6",
		Input:      "  What is photosynthesis?  ",
		Memory:     mem,
	})
	if got != "Plants make food from sunlight." {
		t.Fatalf("AskDoubt = %q", got)
	}

	prompt := mock.LastPrompt()
	if !strings.Contains(prompt, "Topic: Photosynthesis") {
		t.Error("prompt should include knowledge context")
	}
	if !strings.Contains(prompt, "What is photosynthesis?") {
		t.Error("prompt should include the question")
	}

	hist := mem.History(0)
	if len(hist) != 1 {
		t.Fatalf("expected 1 memory entry, got %d", len(hist))
	}
	if hist[0].Question != "What is photosynthesis?" || hist[0].Subject != "Science" || hist[0].ClassLevel != "Class 6" {
		t.Errorf("unexpected entry: %+v", hist[0])
	}
	if hist[0].Metadata["mode"] != "ask" || hist[0].Metadata["model"] != "mock" {
		t.Errorf("unexpected metadata: %v", hist[0].Metadata)
	}

	if len(logs.items) != 1 {
		t.Fatalf("expected 1 logged interaction, got %d", len(logs.items))
	}
	if logs.items[0].Mode != model.ModeAsk || logs.items[0].SessionID != "s1" || logs.items[0].Model != "mock" {
		t.Errorf("unexpected interaction: %+v", logs.items[0])
	}
}

func TestAskDoubtUsesRelatedHistory(t *testing.T) {
	svc, mock, _ := newTestService(t, llm.Success("first"), llm.Success("second"))
	mem := memory.New(10)
	req := Request{Subject: "Science", ClassLevel: "Class 6", Memory: mem}

	req.Input = "Explain photosynthesis process in plants"
	svc.AskDoubt(context.Background(), req)

	req.Input = "What is photosynthesis"
	svc.AskDoubt(context.Background(), req)

	if !strings.Contains(mock.LastPrompt(), "Previous Q: Explain photosynthesis process in plants\nPrevious A: first") {
		t.Errorf("second prompt should carry related history:\n%s", mock.LastPrompt())
	}
}

func TestAskDoubtProviderFailure(t *testing.T) {
	fatal := llm.Outcome{Kind: llm.Fatal, Err: &llm.ErrProviderUnavailable{Err: errors.New("invalid API key")}}
	svc, _, logs := newTestService(t, fatal)
	mem := memory.New(10)

	got := svc.AskDoubt(context.Background(), Request{Input: "What is an integer?", Memory: mem})
	if !strings.HasPrefix(got, "I encountered an error: Error generating answer: ") {
		t.Errorf("AskDoubt = %q", got)
	}
	if !strings.Contains(got, "invalid API key") {
		t.Errorf("error text should include the cause: %q", got)
	}
	if mem.Len() != 0 {
		t.Error("failed turns must not enter memory")
	}
	if len(logs.items) != 1 || logs.items[0].Output != got {
		t.Errorf("failure should still be logged: %+v", logs.items)
	}
}

func TestAskDoubtRateLimitRetried(t *testing.T) {
	rl := llm.Outcome{Kind: llm.Retryable, Err: &llm.ErrRateLimit{Err: errors.New("quota")}}
	svc, mock, _ := newTestService(t, rl, llm.Success("after retry"))

	got := svc.AskDoubt(context.Background(), Request{Input: "What is a fraction?"})
	if got != "after retry" {
		t.Errorf("AskDoubt = %q", got)
	}
	if mock.CallCount() != 2 {
		t.Errorf("expected 2 calls, got %d", mock.CallCount())
	}
}

func TestAskDoubtEmptyReply(t *testing.T) {
	svc, _, _ := newTestService(t, llm.Success(""))
	mem := memory.New(10)

	got := svc.AskDoubt(context.Background(), Request{Input: "What is a fraction?", Memory: mem})
	if got != MsgNoAnswer {
		t.Errorf("AskDoubt = %q, want apology", got)
	}
	if mem.Len() != 0 {
		t.Error("empty replies must not enter memory")
	}
}

func TestExplainTopic(t *testing.T) {
	svc, mock, logs := newTestService(t, llm.Success("Integers are whole numbers and their negatives."))

	if got := svc.ExplainTopic(context.Background(), Request{Input: " "}, model.ExplainSummary); got != MsgEmptyTopic {
		t.Errorf("blank topic: %q", got)
	}

	got := svc.ExplainTopic(context.Background(), Request{
		Subject: "Mathematics", ClassLevel: "Class 6", Input: "Integers",
	}, model.ExplainStepByStep)
	if got != "Integers are whole numbers and their negatives." {
		t.Errorf("ExplainTopic = %q", got)
	}
	if !strings.Contains(mock.LastPrompt(), "Break down the topic into easy-to-follow steps") {
		t.Error("prompt should carry the style instruction")
	}
	if len(logs.items) != 1 || logs.items[0].Mode != model.ModeExplain {
		t.Errorf("unexpected log: %+v", logs.items)
	}
}

func TestExplainTopicFailure(t *testing.T) {
	svc, _, _ := newTestService(t)
	got := svc.ExplainTopic(context.Background(), Request{Input: "Integers"}, model.ExplainDetailed)
	if !strings.HasPrefix(got, "I encountered an error: Error generating explanation: ") {
		t.Errorf("ExplainTopic = %q", got)
	}
}

func TestHomeworkHelp(t *testing.T) {
	svc, mock, _ := newTestService(t, llm.Success("Subtract 3 from both sides."), llm.Success(" "))

	if got := svc.HomeworkHelp(context.Background(), Request{}, model.HelpHintOnly); got != MsgEmptyProblem {
		t.Errorf("blank problem: %q", got)
	}

	got := svc.HomeworkHelp(context.Background(), Request{
		Subject: "Mathematics", ClassLevel: "Class 7", Input: "Solve 2x + 3 = 7",
	}, model.HelpHintOnly)
	if got != "Subtract 3 from both sides." {
		t.Errorf("HomeworkHelp = %q", got)
	}
	if !strings.Contains(mock.LastPrompt(), "Give helpful hints to guide the student without giving away the answer") {
		t.Error("prompt should carry the help instruction")
	}

	got = svc.HomeworkHelp(context.Background(), Request{Input: "Solve x = 1"}, model.HelpConcept)
	if got != MsgNoHelp {
		t.Errorf("empty reply: %q", got)
	}
}

func TestGenerateQuiz(t *testing.T) {
	reply := "Question 1: What is 2+2?\nA) 3\nB) 4\nC) 5\nD) 6\nCorrect Answer: B\n\n" +
		"Question 2: What is 3+3?\nA) 6\nB) 5\nC) 9\nD) 0\nCorrect Answer: A"
	svc, mock, logs := newTestService(t, llm.Success(reply))

	q := svc.GenerateQuiz(context.Background(), "s1", model.QuizConfig{
		Chapter:    "Addition",
		Subject:    "Mathematics",
		ClassLevel: "Class 6",
	})
	if q.Error != "" {
		t.Fatalf("unexpected error: %s", q.Error)
	}
	if q.TotalQuestions != 2 || q.QuestionType != model.QuestionMultipleChoice {
		t.Errorf("unexpected quiz: %+v", q)
	}
	if !strings.Contains(mock.LastPrompt(), "Number of Questions: 5") {
		t.Error("default question count should be 5")
	}
	if len(logs.items) != 1 || logs.items[0].Mode != model.ModeQuiz {
		t.Errorf("unexpected log: %+v", logs.items)
	}

	res := svc.EvaluateQuiz(q, []string{"b", "A"})
	if res.Percentage != 100 || res.Score != 2 {
		t.Errorf("EvaluateQuiz = %+v", res)
	}
}

func TestGenerateQuizUnparseable(t *testing.T) {
	svc, _, _ := newTestService(t, llm.Success("Sorry, I cannot do that."))
	q := svc.GenerateQuiz(context.Background(), "", model.QuizConfig{
		Chapter: "Water", QuestionType: model.QuestionTrueFalse,
	})
	if q.Error != quiz.ParseFailedMessage {
		t.Errorf("Error = %q, want parse fallback", q.Error)
	}
	if len(q.Questions) != 1 || q.Questions[0].CorrectAnswer != "True" {
		t.Errorf("unexpected fallback: %+v", q.Questions)
	}
}

func TestGenerateQuizFailures(t *testing.T) {
	svc, mock, _ := newTestService(t, llm.Success(""))

	q := svc.GenerateQuiz(context.Background(), "", model.QuizConfig{Chapter: "  "})
	if q.Error != MsgEmptyChapter {
		t.Errorf("blank chapter: %q", q.Error)
	}
	q = svc.GenerateQuiz(context.Background(), "", model.QuizConfig{Chapter: "x", Difficulty: "Brutal"})
	if q.Error == "" || mock.CallCount() != 0 {
		t.Errorf("invalid difficulty should be rejected before calling the model: %+v", q)
	}

	q = svc.GenerateQuiz(context.Background(), "", model.QuizConfig{Chapter: "Water"})
	if q.Error != MsgNoQuiz {
		t.Errorf("empty reply: %q", q.Error)
	}

	q = svc.GenerateQuiz(context.Background(), "", model.QuizConfig{Chapter: "Water"})
	if !strings.HasPrefix(q.Error, "Error generating quiz: ") || len(q.Questions) != 0 {
		t.Errorf("provider failure: %+v", q)
	}
}

func TestInteractionLogErrorIgnored(t *testing.T) {
	svc, _, logs := newTestService(t, llm.Success("fine"))
	logs.err = errors.New("disk full")

	if got := svc.AskDoubt(context.Background(), Request{Input: "hello there"}); got != "fine" {
		t.Errorf("AskDoubt = %q", got)
	}
}

func TestNilInteractionLog(t *testing.T) {
	gw := llm.NewGateway(llm.NewMockProvider(llm.Success("ok")), llm.RetryConfig{MaxAttempts: 1})
	svc, err := New(gw, knowledge.New(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := svc.AskDoubt(context.Background(), Request{Input: "q"}); got != "ok" {
		t.Errorf("AskDoubt = %q", got)
	}
}
