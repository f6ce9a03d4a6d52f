// Package tutor runs one tutoring turn for each mode: validate the input,
// look up reference material, build the prompt, call the model and shape
// the reply for display.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/tutor/internal/llm"
	"github.com/pavelanni/tutor/internal/llm/prompts"
	"github.com/pavelanni/tutor/internal/memory"
	"github.com/pavelanni/tutor/internal/model"
	"github.com/pavelanni/tutor/internal/quiz"
)

// Validation messages shown when the input is blank.
const (
	MsgEmptyQuestion = "Please enter a valid question."
	MsgEmptyTopic    = "Please enter a topic name to get started!"
	MsgEmptyProblem  = "Please enter your homework problem!"
	MsgEmptyChapter  = "Please enter a chapter or topic!"
)

// Replies used when the model answers with no text.
const (
	MsgNoAnswer      = "I'm sorry, I couldn't generate an answer. Please try rephrasing your question."
	MsgNoExplanation = "I'm sorry, I couldn't generate an explanation. Please try again."
	MsgNoHelp        = "I'm sorry, I couldn't generate help. Please try rephrasing your problem."
	MsgNoQuiz        = "Failed to generate quiz"
)

// Completer is the model gateway as seen by the service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Knowledge supplies reference material for prompts.
type Knowledge interface {
	RelevantContent(query, subject, classLevel string) string
}

// InteractionLog records every turn. It may be nil.
type InteractionLog interface {
	LogInteraction(ctx context.Context, in model.Interaction) error
}

// Request carries the student's input and selection for one turn.
type Request struct {
	SessionID  string
	Subject    string
	ClassLevel string
	Input      string
	// Memory receives successful ask-doubt turns and supplies related
	// earlier turns to the prompt. It may be nil.
	Memory *memory.Memory
}

// Service is safe for concurrent use; per-session state lives in Request.
type Service struct {
	llm  Completer
	kb   Knowledge
	logs InteractionLog
	now  func() time.Time
}

// New returns a Service. logs may be nil.
func New(c Completer, kb Knowledge, logs InteractionLog) (*Service, error) {
	if err := prompts.Load(prompts.FS); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	return &Service{llm: c, kb: kb, logs: logs, now: time.Now}, nil
}

// Model returns the model identifier used for replies.
func (s *Service) Model() string { return s.llm.Model() }

// AskDoubt answers a free-text question. Successful answers are added to
// the request's memory.
func (s *Service) AskDoubt(ctx context.Context, req Request) string {
	question := strings.TrimSpace(req.Input)
	if question == "" {
		return MsgEmptyQuestion
	}

	kbContext := s.kb.RelevantContent(question, req.Subject, req.ClassLevel)
	var history string
	if req.Memory != nil {
		history = req.Memory.ContextFor(question, memory.DefaultContextSize)
	}

	prompt, err := prompts.BuildAnswer(question, req.Subject, req.ClassLevel, kbContext, history)
	if err != nil {
		return s.failure(ctx, model.ModeAsk, req, "answer", err)
	}

	answer, err := s.llm.Complete(ctx, prompt)
	switch {
	case errors.Is(err, llm.ErrEmptyResponse):
		answer = MsgNoAnswer
	case err != nil:
		return s.failure(ctx, model.ModeAsk, req, "answer", err)
	default:
		if req.Memory != nil {
			req.Memory.Add(question, answer, req.Subject, req.ClassLevel, map[string]any{
				"mode":  string(model.ModeAsk),
				"model": s.llm.Model(),
			})
		}
	}

	s.record(ctx, model.ModeAsk, req, answer)
	return answer
}

// ExplainTopic explains a topic in the requested style.
func (s *Service) ExplainTopic(ctx context.Context, req Request, style model.ExplanationType) string {
	topic := strings.TrimSpace(req.Input)
	if topic == "" {
		return MsgEmptyTopic
	}

	kbContext := s.kb.RelevantContent(topic, req.Subject, req.ClassLevel)
	prompt, err := prompts.BuildExplain(topic, req.Subject, req.ClassLevel, kbContext, style)
	if err != nil {
		return s.failure(ctx, model.ModeExplain, req, "explanation", err)
	}
	return s.complete(ctx, model.ModeExplain, req, prompt, "explanation", MsgNoExplanation)
}

// HomeworkHelp assists with a homework problem in the requested way.
func (s *Service) HomeworkHelp(ctx context.Context, req Request, help model.HelpType) string {
	problem := strings.TrimSpace(req.Input)
	if problem == "" {
		return MsgEmptyProblem
	}

	kbContext := s.kb.RelevantContent(problem, req.Subject, req.ClassLevel)
	prompt, err := prompts.BuildHomework(problem, req.Subject, req.ClassLevel, kbContext, help)
	if err != nil {
		return s.failure(ctx, model.ModeHomework, req, "help", err)
	}
	return s.complete(ctx, model.ModeHomework, req, prompt, "help", MsgNoHelp)
}

// GenerateQuiz asks the model for a quiz and parses it. Failures are
// reported through the quiz's Error field; the question list is then empty
// unless parsing fell back to the placeholder.
func (s *Service) GenerateQuiz(ctx context.Context, sessionID string, cfg model.QuizConfig) model.Quiz {
	cfg = quiz.Normalize(cfg)
	if cfg.Chapter == "" {
		return model.Quiz{QuestionType: cfg.QuestionType, Error: MsgEmptyChapter}
	}
	if err := quiz.Validate(cfg); err != nil {
		return model.Quiz{QuestionType: cfg.QuestionType, Error: err.Error()}
	}

	req := Request{SessionID: sessionID, Subject: cfg.Subject, ClassLevel: cfg.ClassLevel, Input: cfg.Chapter}
	prompt, err := prompts.BuildQuiz(cfg)
	if err != nil {
		return s.quizFailure(ctx, req, cfg, err)
	}

	text, err := s.llm.Complete(ctx, prompt)
	switch {
	case errors.Is(err, llm.ErrEmptyResponse):
		s.record(ctx, model.ModeQuiz, req, MsgNoQuiz)
		return model.Quiz{QuestionType: cfg.QuestionType, Error: MsgNoQuiz}
	case err != nil:
		return s.quizFailure(ctx, req, cfg, err)
	}

	q := quiz.Parse(text, cfg.QuestionType)
	s.record(ctx, model.ModeQuiz, req, text)
	return q
}

// EvaluateQuiz scores answers against a quiz.
func (s *Service) EvaluateQuiz(q model.Quiz, answers []string) model.QuizResult {
	return quiz.Evaluate(q, answers)
}

func (s *Service) complete(ctx context.Context, mode model.Mode, req Request, prompt, what, empty string) string {
	text, err := s.llm.Complete(ctx, prompt)
	switch {
	case errors.Is(err, llm.ErrEmptyResponse):
		text = empty
	case err != nil:
		return s.failure(ctx, mode, req, what, err)
	}
	s.record(ctx, mode, req, text)
	return text
}

// failure logs err and returns the display string for it.
func (s *Service) failure(ctx context.Context, mode model.Mode, req Request, what string, err error) string {
	slog.Error("tutoring turn failed", "mode", mode, "session", req.SessionID, "error", err)
	msg := ErrorMessage(what, err)
	s.record(ctx, mode, req, msg)
	return msg
}

func (s *Service) quizFailure(ctx context.Context, req Request, cfg model.QuizConfig, err error) model.Quiz {
	slog.Error("quiz generation failed", "session", req.SessionID, "error", err)
	msg := fmt.Sprintf("Error generating quiz: %v", err)
	s.record(ctx, model.ModeQuiz, req, msg)
	return model.Quiz{QuestionType: cfg.QuestionType, Error: msg}
}

// ErrorMessage formats a model failure for display, e.g.
// "I encountered an error: Error generating answer: ...".
func ErrorMessage(what string, err error) string {
	return fmt.Sprintf("I encountered an error: Error generating %s: %v", what, err)
}

func (s *Service) record(ctx context.Context, mode model.Mode, req Request, output string) {
	if s.logs == nil {
		return
	}
	in := model.Interaction{
		SessionID:  req.SessionID,
		Mode:       mode,
		Subject:    req.Subject,
		ClassLevel: req.ClassLevel,
		Input:      req.Input,
		Output:     output,
		Model:      s.llm.Model(),
		CreatedAt:  s.now().UTC(),
	}
	// Best effort; detached from request cancellation.
	if err := s.logs.LogInteraction(context.WithoutCancel(ctx), in); err != nil {
		slog.Warn("failed to record interaction", "mode", mode, "error", err)
	}
}
